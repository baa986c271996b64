package tracer

import (
	"go.uber.org/zap"

	"github.com/ALEYI17/kgsltrace/internal/classifier"
	"github.com/ALEYI17/kgsltrace/internal/hexdump"
	"github.com/ALEYI17/kgsltrace/internal/kgsl"
	"github.com/ALEYI17/kgsltrace/pkg/types"
)

// call is the state of one intercepted ioctl, shared by its hooks.
type call struct {
	fd      int
	slot    *classifier.Slot
	request uint
	arg     uint64
	name    string

	ret int
	err error
}

func (c *call) is2D() bool {
	return c.slot.Family == types.FamilyKGSL2D
}

// traceRequest prints the per-direction trace line and, when the request
// moves data in that direction, the raw parameter block.
func (t *Tracer) traceRequest(c *call, dir uint) {
	marker := '>'
	if dir == types.DIR_READ {
		marker = '<'
	}

	t.printf("%c [%4d] %8s: %s (%08x)", marker, c.fd, c.slot.Family, c.name, c.request)
	if dir == types.DIR_READ {
		t.printf(" => %d", c.ret)
	}
	t.printf("\n")

	size := int(kgsl.IOC_SIZE(c.request))
	if kgsl.IOC_DIR(c.request)&dir == 0 || size == 0 || c.arg == 0 {
		return
	}
	t.dump(c.arg, size)
}

// dump hex-dumps size bytes of traced memory at addr.
func (t *Tracer) dump(addr uint64, size int) {
	data, err := t.mem.ReadAt(addr, size)
	if err != nil {
		t.logger.Warn("Failed to read traced memory",
			zap.Uint64("addr", addr),
			zap.Int("size", size),
			zap.Error(err))
		if len(data) == 0 {
			return
		}
	}
	if err := hexdump.Dump(t.out, addr, data); err != nil {
		t.logger.Warn("Failed to write dump", zap.Error(err))
	}
}

// readParam decodes the request's parameter block into v.
func (t *Tracer) readParam(c *call, v any, size int) bool {
	data, err := t.mem.ReadAt(c.arg, size)
	if err == nil {
		err = kgsl.Unmarshal(data, v)
	}
	if err != nil {
		t.logger.Warn("Failed to decode parameters",
			zap.String("request", c.name),
			zap.Uint64("arg", c.arg),
			zap.Error(err))
		return false
	}
	return true
}
