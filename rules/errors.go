//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// DirectSentryCapture flags calls into the Sentry SDK outside the telemetry
// and errors packages. Errors reach Sentry through the errors builder, which
// categorizes them and scrubs paths before they leave the process.
//
// Broken pattern:
//
//	sentry.CaptureException(err)
//
// Correct pattern:
//
//	return errors.New(err).Category(errors.CategoryInference).Build()
func DirectSentryCapture(m dsl.Matcher) {
	m.Match(
		`sentry.CaptureException($*_)`,
		`sentry.CaptureMessage($*_)`,
		`sentry.CaptureEvent($*_)`,
	).
		Where(!m.File().PkgPath.Matches(`/internal/(errors|telemetry)$`)).
		Report("report errors through the internal errors builder instead of calling Sentry directly")
}

// StdlibErrorsNew flags the standard library errors constructor in files
// that import it, so new errors carry a category.
//
// Old pattern:
//
//	return errors.New("model has no input tensor")
//
// New pattern:
//
//	return errors.Newf("model has no input tensor").Category(errors.CategoryModelInit).Build()
func StdlibErrorsNew(m dsl.Matcher) {
	m.Match(`errors.New($msg)`).
		Where(m.File().Imports("errors") &&
			!m.File().PkgPath.Matches(`/internal/(errors|logger)$`) &&
			!m.File().Name.Matches(`_test\.go$`)).
		Report("use the internal errors package so the error gets a category and telemetry context")
}

// BuildMissing flags builder chains that are never finished. Without Build
// the value is an *ErrorBuilder and nothing is reported.
func BuildMissing(m dsl.Matcher) {
	m.Match(
		`return errors.New($err).Category($c)`,
		`return errors.Newf($*_).Category($c)`,
	).
		Report("finish the error builder chain with .Build()")
}
