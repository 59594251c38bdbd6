package detector

import (
	"strconv"
	"strings"
)

// FormatRawOutput renders a tensor as nested bracketed rows, e.g. [[0.3 0.7]].
func FormatRawOutput(t Tensor) string {
	if len(t.Shape) == 0 {
		if len(t.Data) == 0 {
			return "[]"
		}
		return formatScore(t.Data[0])
	}

	var sb strings.Builder
	writeNested(&sb, t.Shape, t.Data)
	return sb.String()
}

func writeNested(sb *strings.Builder, shape []int, data []float32) {
	sb.WriteByte('[')
	if len(shape) == 1 {
		for i := 0; i < shape[0] && i < len(data); i++ {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(formatScore(data[i]))
		}
		sb.WriteByte(']')
		return
	}

	stride := numElements(shape[1:])
	for i := range shape[0] {
		if i > 0 {
			sb.WriteByte(' ')
		}
		lo := min(i*stride, len(data))
		hi := min(lo+stride, len(data))
		writeNested(sb, shape[1:], data[lo:hi])
	}
	sb.WriteByte(']')
}

// formatScore prints the shortest decimal that round-trips as float32
func formatScore(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}
