// Package buffers tracks the GPU allocations whose contents the tracer
// wants to see again when they are submitted as command buffers.
package buffers

import (
	"go.uber.org/zap"
)

// AnyHost is the "don't care" host address: lookups fall back to the
// device address.
const AnyHost = ^uint64(0)

type TrackedBuffer struct {
	HostAddr   uint64
	DeviceAddr uint32
	HasDevice  bool
	Length     uint32
	Flags      uint32
}

// Table owns its records. It is not safe for concurrent use.
type Table struct {
	workingSize uint32
	records     []*TrackedBuffer
	logger      *zap.Logger
}

// NewTable returns a table that only tracks allocations of exactly
// workingSize bytes.
func NewTable(workingSize uint32, logger *zap.Logger) *Table {
	return &Table{
		workingSize: workingSize,
		logger:      logger,
	}
}

// Tracks reports whether an allocation of length bytes is of interest.
func (t *Table) Tracks(length uint32) bool {
	return length == t.workingSize
}

// Allocated applies the working-size policy before registering.
func (t *Table) Allocated(hostAddr uint64, flags, length uint32) (*TrackedBuffer, bool) {
	if !t.Tracks(length) {
		return nil, false
	}
	return t.Register(hostAddr, flags, length), true
}

// Register inserts a record for a fresh allocation. Callers register each
// allocation event once.
func (t *Table) Register(hostAddr uint64, flags, length uint32) *TrackedBuffer {
	buf := &TrackedBuffer{
		HostAddr: hostAddr,
		Flags:    flags,
		Length:   length,
	}
	t.records = append(t.records, buf)
	t.logger.Debug("Tracking buffer",
		zap.Uint64("hostptr", hostAddr),
		zap.Uint32("flags", flags),
		zap.Uint32("len", length))
	return buf
}

// Find matches hostAddr exactly, or deviceAddr when hostAddr is AnyHost.
// Records without a device address never match by device.
func (t *Table) Find(hostAddr uint64, deviceAddr uint32) (*TrackedBuffer, bool) {
	i := t.index(hostAddr, deviceAddr)
	if i < 0 {
		return nil, false
	}
	return t.records[i], true
}

// index scans newest first: a host range mapped again after an untraced
// release must resolve to its latest record.
func (t *Table) index(hostAddr uint64, deviceAddr uint32) int {
	for i := len(t.records) - 1; i >= 0; i-- {
		buf := t.records[i]
		if hostAddr != AnyHost {
			if buf.HostAddr == hostAddr {
				return i
			}
			continue
		}
		if buf.HasDevice && buf.DeviceAddr == deviceAddr {
			return i
		}
	}
	return -1
}

// AssignDeviceAddress fills in the device address once the driver has
// returned it.
func (t *Table) AssignDeviceAddress(hostAddr uint64, deviceAddr uint32) (*TrackedBuffer, bool) {
	buf, ok := t.Find(hostAddr, 0)
	if !ok {
		return nil, false
	}
	buf.DeviceAddr = deviceAddr
	buf.HasDevice = true
	return buf, true
}

// Unregister drops the record holding deviceAddr. A miss is logged and
// otherwise ignored.
func (t *Table) Unregister(deviceAddr uint32) (*TrackedBuffer, bool) {
	i := t.index(AnyHost, deviceAddr)
	if i < 0 {
		t.logger.Debug("Free of untracked buffer", zap.Uint32("gpuaddr", deviceAddr))
		return nil, false
	}
	buf := t.records[i]
	t.records = append(t.records[:i], t.records[i+1:]...)
	return buf, true
}

// Remove drops the record for hostAddr, used when the allocation it was
// registered for failed.
func (t *Table) Remove(hostAddr uint64) bool {
	i := t.index(hostAddr, 0)
	if i < 0 {
		return false
	}
	t.records = append(t.records[:i], t.records[i+1:]...)
	return true
}

func (t *Table) Len() int {
	return len(t.records)
}

// Buffers returns a snapshot of the live records.
func (t *Table) Buffers() []TrackedBuffer {
	out := make([]TrackedBuffer, 0, len(t.records))
	for _, buf := range t.records {
		out = append(out, *buf)
	}
	return out
}
