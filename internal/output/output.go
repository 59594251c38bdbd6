// Package output writes the single JSON result line read by the calling
// process. Keys and values are separated by ": " and members by ", ";
// non-ASCII characters are written as \uXXXX escapes.
package output

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/deepscan/fakedetect/internal/detector"
	"github.com/deepscan/fakedetect/internal/errors"
)

// NoImagePathMessage is reported when the image path argument is missing
const NoImagePathMessage = "No image path provided"

// FormatResult renders a prediction result without the trailing newline
func FormatResult(r detector.Result) string {
	if !r.OK() {
		return FormatError(r.ErrorMessage())
	}
	return fmt.Sprintf(`{"isFake": %t, "confidence": %s}`, r.Verdict.IsFake, formatFloat(r.Verdict.Confidence))
}

// FormatError renders an error record without the trailing newline
func FormatError(message string) string {
	return `{"error": ` + quote(message) + `}`
}

// WriteResult writes the result as one JSON line
func WriteResult(w io.Writer, r detector.Result) error {
	return writeLine(w, FormatResult(r))
}

// WriteError writes an error record as one JSON line
func WriteError(w io.Writer, message string) error {
	return writeLine(w, FormatError(message))
}

func writeLine(w io.Writer, line string) error {
	if _, err := io.WriteString(w, line+"\n"); err != nil {
		return errors.New(fmt.Errorf("failed to write result: %w", err)).
			Category(errors.CategoryOutput).
			Build()
	}
	return nil
}

// formatFloat prints the shortest float32 decimal, keeping a fractional
// part on whole numbers (1.0, not 1).
func formatFloat(v float32) string {
	f := float64(v)
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}

	s := strconv.FormatFloat(f, 'g', -1, 32)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// quote escapes s as a JSON string with every non-printable or non-ASCII
// character written as \uXXXX.
func quote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		default:
			switch {
			case r >= 0x20 && r < 0x7f:
				sb.WriteRune(r)
			case r > 0xffff:
				hi, lo := utf16.EncodeRune(r)
				fmt.Fprintf(&sb, `\u%04x\u%04x`, hi, lo)
			default:
				fmt.Fprintf(&sb, `\u%04x`, r)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
