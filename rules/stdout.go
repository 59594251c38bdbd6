//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// StdoutReserved flags writes to standard output outside the packages that
// own the JSON result line. Standard output carries exactly one line per run;
// diagnostics belong on standard error or the logger.
//
// Broken pattern:
//
//	fmt.Println("loaded model", path)
//
// Correct pattern:
//
//	log.Debug("loaded model", logger.String("path", path))
func StdoutReserved(m dsl.Matcher) {
	m.Match(
		`fmt.Print($*_)`,
		`fmt.Println($*_)`,
		`fmt.Printf($*_)`,
	).
		Where(!m.File().PkgPath.Matches(`/internal/output$`) && !m.File().Name.Matches(`_test\.go$`)).
		Report("standard output is reserved for the JSON result line; use the logger or write to stderr")

	m.Match(
		`fmt.Fprint(os.Stdout, $*_)`,
		`fmt.Fprintln(os.Stdout, $*_)`,
		`fmt.Fprintf(os.Stdout, $*_)`,
		`os.Stdout.Write($_)`,
		`os.Stdout.WriteString($_)`,
	).
		Where(!m.File().PkgPath.Matches(`/internal/output$`) && !m.File().PkgPath.Matches(`/cmd$`)).
		Report("standard output is reserved for the JSON result line; use the logger or write to stderr")
}

// BuiltinPrintln flags the print builtins, which write to stderr without
// going through the logger.
func BuiltinPrintln(m dsl.Matcher) {
	m.Match(`println($*_)`, `print($*_)`).
		Report("use the module logger instead of the print builtins")
}
