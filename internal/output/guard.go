package output

import "os"

// GuardStdout reserves standard output for the JSON result. Native runtimes
// print to file descriptor 1 on their own, so fd 1 is pointed at standard
// error and the returned file writes to the original standard output. The
// restore function undoes the redirection and closes the returned file.
func GuardStdout() (*os.File, func(), error) {
	return guard(os.Stdout, os.Stderr)
}
