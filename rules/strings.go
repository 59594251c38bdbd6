//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// StringsSplitIteration detects strings.Split used only for iteration and
// suggests strings.SplitSeq.
//
// Old pattern:
//
//	for _, segment := range strings.Split(path, "/") {
//
// New pattern (Go 1.24+):
//
//	for segment := range strings.SplitSeq(path, "/") {
//
// See: https://pkg.go.dev/strings#SplitSeq
func StringsSplitIteration(m dsl.Matcher) {
	m.Match(`for $_, $part := range strings.Split($s, $sep) { $*body }`).
		Where(!m["sep"].Text.Matches(`^"\\n"$`)).
		Report("use for $part := range strings.SplitSeq($s, $sep) to avoid intermediate slice allocation (Go 1.24+)")

	m.Match(`for $_, $line := range strings.Split($s, "\n") { $*body }`).
		Report(`use for $line := range strings.Lines($s) instead of ranging over strings.Split($s, "\n") (Go 1.24+)`)
}

// StringsFieldsIteration detects strings.Fields used only for iteration.
//
// See: https://pkg.go.dev/strings#FieldsSeq
func StringsFieldsIteration(m dsl.Matcher) {
	m.Match(`for $_, $field := range strings.Fields($s) { $*body }`).
		Report("use for $field := range strings.FieldsSeq($s) to avoid intermediate slice allocation (Go 1.24+)")
}
