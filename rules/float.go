//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// Float32Formatting flags float32 model scores formatted with a 64-bit size.
// The shortest representation of a widened float32 carries noise digits:
// 0.82 prints as 0.8199999928474426.
//
// Broken pattern:
//
//	strconv.FormatFloat(float64(score), 'g', -1, 64)
//
// Correct pattern:
//
//	strconv.FormatFloat(float64(score), 'g', -1, 32)
func Float32Formatting(m dsl.Matcher) {
	m.Match(`strconv.FormatFloat(float64($x), $fmt, -1, 64)`).
		Where(m["x"].Type.Is("float32")).
		Report("format float32 values with bitSize 32 to get their shortest representation").
		Suggest("strconv.FormatFloat(float64($x), $fmt, -1, 32)")

	m.Match(`fmt.Sprint(float64($x))`, `fmt.Sprintf("%v", float64($x))`).
		Where(m["x"].Type.Is("float32")).
		Report("widening a float32 before printing adds noise digits; format it with strconv and bitSize 32")
}
