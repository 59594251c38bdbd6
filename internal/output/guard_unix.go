//go:build !windows

package output

import (
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/deepscan/fakedetect/internal/errors"
)

func guard(stdout, stderr *os.File) (*os.File, func(), error) {
	noop := func() {}
	stdoutFd := int(stdout.Fd()) //nolint:gosec // G115: file descriptors fit in int
	stderrFd := int(stderr.Fd()) //nolint:gosec // G115: file descriptors fit in int

	dup, err := unix.Dup(stdoutFd)
	if err != nil {
		return stdout, noop, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "dup_stdout").
			Build()
	}
	unix.CloseOnExec(dup)

	if err := unix.Dup2(stderrFd, stdoutFd); err != nil {
		_ = unix.Close(dup)
		return stdout, noop, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "redirect_stdout").
			Build()
	}

	out := os.NewFile(uintptr(dup), "stdout")
	restore := sync.OnceFunc(func() {
		_ = out.Sync()
		_ = unix.Dup2(dup, stdoutFd)
		_ = out.Close()
	})
	return out, restore, nil
}
