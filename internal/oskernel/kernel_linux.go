//go:build linux

package oskernel

import (
	"golang.org/x/sys/unix"

	"github.com/ALEYI17/kgsltrace/pkg/types"
)

// SyscallKernel forwards straight to the kernel.
type SyscallKernel struct{}

// Resolve returns the kernel entry points of this platform.
func Resolve() (types.Kernel, error) {
	return SyscallKernel{}, nil
}

func (SyscallKernel) Open(path string, flags int, mode uint32) (int, error) {
	return unix.Open(path, flags, mode)
}

func (SyscallKernel) Ioctl(fd int, request uint, arg uintptr) (int, error) {
	r, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(request), arg)
	if errno != 0 {
		return -1, errno
	}
	return int(r), nil
}
