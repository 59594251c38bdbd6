//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// DeferredTimeSince detects time.Since passed straight to a deferred call.
// The argument is evaluated when the defer statement runs, so the recorded
// duration is always close to zero.
//
// Broken pattern:
//
//	start := time.Now()
//	defer d.recorder.RecordPrediction(backend, time.Since(start).Seconds(), err)
//
// Correct pattern:
//
//	defer func() { d.record(result, time.Since(start)) }()
func DeferredTimeSince(m dsl.Matcher) {
	m.Match(
		`defer $fn($*_, time.Since($start), $*_)`,
		`defer $fn($*_, time.Since($start).Seconds(), $*_)`,
	).
		Report("time.Since($start) is evaluated at defer time, not function exit; wrap the call in func()")
}
