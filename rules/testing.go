//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// TestingChdir detects tests changing the process working directory by hand.
// t.Chdir restores it on cleanup and refuses to run in parallel tests.
//
// Old pattern:
//
//	wd, _ := os.Getwd()
//	os.Chdir(dir)
//	defer os.Chdir(wd)
//
// New pattern (Go 1.24+):
//
//	t.Chdir(dir)
//
// See: https://pkg.go.dev/testing#T.Chdir
func TestingChdir(m dsl.Matcher) {
	m.Match(`os.Chdir($dir)`, `_ = os.Chdir($dir)`).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report("in tests, use t.Chdir($dir) so the working directory is restored (Go 1.24+)")
}

// TestingSetenv detects tests setting environment variables directly.
// Config loading reads FAKEDETECT_* variables, so leaked values change the
// outcome of later tests.
//
// See: https://pkg.go.dev/testing#T.Setenv
func TestingSetenv(m dsl.Matcher) {
	m.Match(`os.Setenv($k, $v)`, `_ = os.Setenv($k, $v)`).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report("in tests, use t.Setenv($k, $v) so the variable is restored")
}

// TestingTempDir detects tests creating temporary directories by hand.
//
// See: https://pkg.go.dev/testing#T.TempDir
func TestingTempDir(m dsl.Matcher) {
	m.Match(`$dir, $err := os.MkdirTemp($*_)`).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report("in tests, use t.TempDir() which is removed automatically")
}
