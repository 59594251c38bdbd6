package output

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepscan/fakedetect/internal/detector"
	"github.com/deepscan/fakedetect/internal/errors"
)

func TestFormatResult(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		result detector.Result
		want   string
	}{
		{
			name:   "fake sigmoid",
			result: detector.Success(detector.Verdict{IsFake: true, Confidence: 0.82}),
			want:   `{"isFake": true, "confidence": 0.82}`,
		},
		{
			name:   "fake softmax",
			result: detector.Success(detector.Verdict{IsFake: true, Confidence: 0.7}),
			want:   `{"isFake": true, "confidence": 0.7}`,
		},
		{
			name:   "real",
			result: detector.Success(detector.Verdict{IsFake: false, Confidence: 0.5}),
			want:   `{"isFake": false, "confidence": 0.5}`,
		},
		{
			name:   "whole number keeps a fraction",
			result: detector.Success(detector.Verdict{IsFake: false, Confidence: 1}),
			want:   `{"isFake": false, "confidence": 1.0}`,
		},
		{
			name:   "tiny confidence uses an exponent",
			result: detector.Success(detector.Verdict{IsFake: false, Confidence: 0.00001}),
			want:   `{"isFake": false, "confidence": 1e-05}`,
		},
		{
			name:   "error",
			result: detector.Failure(errors.NewStd("open missing.png: no such file or directory")),
			want:   `{"error": "open missing.png: no such file or directory"}`,
		},
		{
			name:   "empty result",
			result: detector.Result{},
			want:   `{"error": "no prediction"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FormatResult(tt.result))
		})
	}
}

func TestQuote(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{`plain`, `"plain"`},
		{`say "hi"`, `"say \"hi\""`},
		{`C:\images\a.png`, `"C:\\images\\a.png"`},
		{"line\nbreak\ttab", `"line\nbreak\ttab"`},
		{"bell\x07", `"bell\u0007"`},
		{"del\x7f", `"del\u007f"`},
		{"<tag>&", `"<tag>&"`},
		{"café", `"caf\u00e9"`},
		{"face 🙂", `"face \ud83d\ude42"`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, quote(tt.in))
		})
	}
}

func TestWriteError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteError(&buf, NoImagePathMessage))
	assert.Equal(t, "{\"error\": \"No image path provided\"}\n", buf.String())
}

func TestWriteResultSingleLine(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteResult(&buf, detector.Failure(fmt.Errorf("bad\nthing"))))
	assert.Equal(t, "{\"error\": \"bad\\nthing\"}\n", buf.String())
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("\n")))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, fmt.Errorf("broken pipe") }

func TestWriteResultFailure(t *testing.T) {
	t.Parallel()

	err := WriteResult(failingWriter{}, detector.Success(detector.Verdict{IsFake: true, Confidence: 0.9}))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryOutput))
}
