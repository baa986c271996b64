package tracer

import (
	"fmt"

	"github.com/ALEYI17/kgsltrace/internal/kgsl"
)

// fakeMemory is a sparse address space made of independent regions.
type fakeMemory struct {
	regions map[uint64][]byte
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{regions: make(map[uint64][]byte)}
}

func (m *fakeMemory) alloc(addr uint64, size int) []byte {
	buf := make([]byte, size)
	m.regions[addr] = buf
	return buf
}

func (m *fakeMemory) region(addr uint64, size int) ([]byte, bool) {
	for base, buf := range m.regions {
		if addr >= base && addr+uint64(size) <= base+uint64(len(buf)) {
			off := addr - base
			return buf[off : off+uint64(size)], true
		}
	}
	return nil, false
}

// put encodes v at addr, allocating a region when none covers it.
func (m *fakeMemory) put(addr uint64, v any) {
	data, err := kgsl.Marshal(v)
	if err != nil {
		panic(err)
	}
	dst, ok := m.region(addr, len(data))
	if !ok {
		dst = m.alloc(addr, len(data))
	}
	copy(dst, data)
}

func (m *fakeMemory) get(addr uint64, v any) {
	data, err := m.ReadAt(addr, len(mustMarshal(v)))
	if err != nil {
		panic(err)
	}
	if err := kgsl.Unmarshal(data, v); err != nil {
		panic(err)
	}
}

func (m *fakeMemory) ReadAt(addr uint64, size int) ([]byte, error) {
	src, ok := m.region(addr, size)
	if !ok {
		return nil, fmt.Errorf("unmapped read of %d bytes at %#x", size, addr)
	}
	out := make([]byte, size)
	copy(out, src)
	return out, nil
}

func mustMarshal(v any) []byte {
	data, err := kgsl.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

type openCall struct {
	path  string
	flags int
	mode  uint32
}

type ioctlCall struct {
	fd      int
	request uint
	arg     uintptr
}

// fakeKernel hands out descriptors from 10 upwards and lets tests play the
// driver's side of each request.
type fakeKernel struct {
	nextFd int
	opens  []openCall
	ioctls []ioctlCall
	handle func(fd int, request uint, arg uintptr) (int, error)
}

func newFakeKernel() *fakeKernel {
	return &fakeKernel{nextFd: 10}
}

func (k *fakeKernel) Open(path string, flags int, mode uint32) (int, error) {
	k.opens = append(k.opens, openCall{path: path, flags: flags, mode: mode})
	fd := k.nextFd
	k.nextFd++
	return fd, nil
}

func (k *fakeKernel) Ioctl(fd int, request uint, arg uintptr) (int, error) {
	k.ioctls = append(k.ioctls, ioctlCall{fd: fd, request: request, arg: arg})
	if k.handle == nil {
		return 0, nil
	}
	return k.handle(fd, request, arg)
}

type fakeRegions map[uint64]uint64

func (r fakeRegions) RegionLength(addr uint64) (uint64, bool, error) {
	n, ok := r[addr]
	return n, ok, nil
}

type recordingCollector struct {
	events []any
}

func (c *recordingCollector) Update(ev any) {
	c.events = append(c.events, ev)
}
