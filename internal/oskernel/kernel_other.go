//go:build !linux

package oskernel

import (
	"fmt"
	"runtime"

	"github.com/ALEYI17/kgsltrace/pkg/types"
)

func Resolve() (types.Kernel, error) {
	return nil, fmt.Errorf("no open/ioctl entry points on %s", runtime.GOOS)
}
