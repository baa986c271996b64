// Package classifier remembers which file descriptors belong to the
// accelerator and allocator devices.
package classifier

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/ALEYI17/kgsltrace/pkg/types"
)

// DeviceDir is the prefix under which unrecognized device paths are
// reported.
const DeviceDir = "/dev/"

// Unbound marks a slot whose device has not been opened yet.
const Unbound = -1

// Slot is one recognized device identity.
type Slot struct {
	Name   string
	Path   string
	Family string
	Fd     int

	seq uint64
}

func (s *Slot) Bound() bool {
	return s.Fd != Unbound
}

// KnownDevices lists the device nodes the tracer decodes.
func KnownDevices() []Slot {
	return []Slot{
		{Name: "kgsl_3d0", Path: "/dev/kgsl-3d0", Family: types.FamilyKGSL3D, Fd: Unbound},
		{Name: "kgsl_2d0", Path: "/dev/kgsl-2d0", Family: types.FamilyKGSL2D, Fd: Unbound},
		{Name: "kgsl_2d1", Path: "/dev/kgsl-2d1", Family: types.FamilyKGSL2D, Fd: Unbound},
		{Name: "pmem_gpu0", Path: "/dev/pmem_gpu0", Family: types.FamilyPMEM, Fd: Unbound},
		{Name: "pmem_gpu1", Path: "/dev/pmem_gpu1", Family: types.FamilyPMEM, Fd: Unbound},
	}
}

// Classifier is not safe for concurrent use; the tracer serializes calls.
type Classifier struct {
	slots  []Slot
	seq    uint64
	out    io.Writer
	logger *zap.Logger
}

func New(out io.Writer, logger *zap.Logger) *Classifier {
	return &Classifier{
		slots:  KnownDevices(),
		out:    out,
		logger: logger,
	}
}

// Opened records a successful open of path that returned fd. It reports
// the slot that was bound, if any.
func (c *Classifier) Opened(path string, fd int) (*Slot, bool) {
	for i := range c.slots {
		s := &c.slots[i]
		if s.Path != path {
			continue
		}
		c.seq++
		s.Fd = fd
		s.seq = c.seq
		fmt.Fprintf(c.out, "found %s: %d\n", s.Name, fd)
		c.logger.Info("Bound device", zap.String("device", s.Name), zap.String("path", path), zap.Int("fd", fd))
		return s, true
	}

	if strings.Contains(path, DeviceDir) {
		fmt.Fprintf(c.out, "#### missing device, path: %s: %d\n", path, fd)
		c.logger.Warn("Missing device", zap.String("path", path), zap.Int("fd", fd))
	}
	return nil, false
}

// Classify returns the slot bound to fd. When a descriptor number was
// reused across devices the most recent binding wins.
func (c *Classifier) Classify(fd int) (*Slot, bool) {
	var found *Slot
	for i := range c.slots {
		s := &c.slots[i]
		if !s.Bound() || s.Fd != fd {
			continue
		}
		if found == nil || s.seq > found.seq {
			found = s
		}
	}
	return found, found != nil
}

// Slot looks a device up by name.
func (c *Classifier) Slot(name string) (*Slot, bool) {
	for i := range c.slots {
		if c.slots[i].Name == name {
			return &c.slots[i], true
		}
	}
	return nil, false
}

// Slots returns a copy of the current bindings.
func (c *Classifier) Slots() []Slot {
	return append([]Slot(nil), c.slots...)
}
