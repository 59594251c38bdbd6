//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// MinMaxBuiltin detects integer min/max computed through math.Min/Max.
//
// Old pattern:
//
//	threads := int(math.Max(float64(n), 1))
//
// New pattern (Go 1.21+):
//
//	threads := max(n, 1)
//
// See: https://pkg.go.dev/builtin#max
func MinMaxBuiltin(m dsl.Matcher) {
	m.Match(`int(math.Min(float64($a), float64($b)))`).
		Report("use min($a, $b) instead of int(math.Min(float64(...))) (Go 1.21+)").
		Suggest("min($a, $b)")

	m.Match(`int(math.Max(float64($a), float64($b)))`).
		Report("use max($a, $b) instead of int(math.Max(float64(...))) (Go 1.21+)").
		Suggest("max($a, $b)")
}

// RangeOverInteger detects counting loops from 0 to n and suggests the
// range-over-integer form. Pixel loops in the image pipeline use it.
//
// Old pattern:
//
//	for y := 0; y < height; y++ {
//
// New pattern (Go 1.22+):
//
//	for y := range height {
//
// See: https://go.dev/doc/go1.22#language
func RangeOverInteger(m dsl.Matcher) {
	m.Match(`for $i := 0; $i < $n; $i++ { $*body }`).
		Where(!m["n"].Text.Matches(`.*\.N$`)).
		Report("use for $i := range $n instead of for $i := 0; $i < $n; $i++ (Go 1.22+)").
		Suggest("for $i := range $n { $body }")
}
