package tracer

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sys/unix"

	"github.com/ALEYI17/kgsltrace/internal/buffers"
	"github.com/ALEYI17/kgsltrace/internal/kgsl"
	"github.com/ALEYI17/kgsltrace/pkg/types"
)

const (
	paramAddr  = 0x1000
	ibDescAddr = 0x3000
	hostAddr   = 0x40000000
	gpuAddr    = 0x66136000
)

type harness struct {
	tracer *Tracer
	kernel *fakeKernel
	mem    *fakeMemory
	out    *bytes.Buffer
	logs   *observer.ObservedLogs
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	h := &harness{
		kernel: newFakeKernel(),
		mem:    newFakeMemory(),
		out:    &bytes.Buffer{},
		logs:   logs,
	}
	base := []Option{WithKernel(h.kernel), WithOutput(h.out), WithLogger(zap.New(core))}
	h.tracer = New(h.mem, append(base, opts...)...)
	return h
}

func (h *harness) open(t *testing.T, path string) int {
	t.Helper()
	fd, err := h.tracer.Open(path, unix.O_RDWR, 0)
	require.NoError(t, err)
	return fd
}

// driver answers vmalloc with gpuAddr and stamps submissions with 0x42.
func (h *harness) driver(fd int, request uint, arg uintptr) (int, error) {
	switch request {
	case kgsl.IOCTL_KGSL_SHAREDMEM_FROM_VMALLOC:
		var p kgsl.SharedmemFromVmalloc
		h.mem.get(uint64(arg), &p)
		p.GPUAddr = gpuAddr
		h.mem.put(uint64(arg), p)
	case kgsl.IOCTL_KGSL_RINGBUFFER_ISSUEIBCMDS:
		var p kgsl.RingbufferIssueIBCmds
		h.mem.get(uint64(arg), &p)
		p.Timestamp = 0x42
		h.mem.put(uint64(arg), p)
	}
	return 0, nil
}

func (h *harness) vmalloc(t *testing.T, fd int, length uint32) (int, error) {
	t.Helper()
	h.mem.put(paramAddr, kgsl.SharedmemFromVmalloc{GPUAddr: length, HostPtr: hostAddr})
	return h.tracer.Ioctl(fd, kgsl.IOCTL_KGSL_SHAREDMEM_FROM_VMALLOC, paramAddr)
}

func TestAllocationLifecycle(t *testing.T) {
	h := newHarness(t)
	h.kernel.handle = h.driver
	fd := h.open(t, "/dev/kgsl-2d0")

	ret, err := h.vmalloc(t, fd, 0x5000)
	require.NoError(t, err)
	assert.Equal(t, 0, ret)

	buf, ok := h.tracer.Buffers().Find(hostAddr, 0)
	require.True(t, ok)
	assert.Equal(t, uint32(0x5000), buf.Length)
	assert.True(t, buf.HasDevice)
	assert.Equal(t, uint32(gpuAddr), buf.DeviceAddr)

	h.mem.put(paramAddr, kgsl.SharedmemFree{GPUAddr: gpuAddr})
	_, err = h.tracer.Ioctl(fd, kgsl.IOCTL_KGSL_SHAREDMEM_FREE, paramAddr)
	require.NoError(t, err)

	_, ok = h.tracer.Buffers().Find(hostAddr, 0)
	assert.False(t, ok)
	assert.Equal(t, 0, h.tracer.Buffers().Len())

	out := h.out.String()
	assert.Contains(t, out, "found kgsl_2d0: 10\n")
	assert.Contains(t, out, "> [  10]  kgsl-2d: IOCTL_KGSL_SHAREDMEM_FROM_VMALLOC (c00c0923)\n")
	assert.Contains(t, out, "< [  10]  kgsl-2d: IOCTL_KGSL_SHAREDMEM_FROM_VMALLOC (c00c0923) => 0\n")
	assert.Contains(t, out, "\t\thostptr:\t40000000\n")
	assert.Contains(t, out, "\t\tlen:\t\t00005000\n")
	assert.Contains(t, out, "\t\tgpuaddr:\t66136000\n")
	assert.Contains(t, out, "\t\t\t00001000")
}

func TestVmallocOtherSizesNotTracked(t *testing.T) {
	h := newHarness(t)
	h.kernel.handle = h.driver
	fd := h.open(t, "/dev/kgsl-2d0")

	_, err := h.vmalloc(t, fd, 0x1000)
	require.NoError(t, err)
	assert.Equal(t, 0, h.tracer.Buffers().Len())
}

func TestVmallocLengthFromMaps(t *testing.T) {
	h := newHarness(t, WithRegions(fakeRegions{hostAddr: 0x5000}))
	h.kernel.handle = h.driver
	fd := h.open(t, "/dev/kgsl-2d1")

	_, err := h.vmalloc(t, fd, 0)
	require.NoError(t, err)

	buf, ok := h.tracer.Buffers().Find(hostAddr, 0)
	require.True(t, ok)
	assert.Equal(t, uint32(0x5000), buf.Length)
}

func TestVmallocUnknownMapping(t *testing.T) {
	h := newHarness(t, WithRegions(fakeRegions{}))
	h.kernel.handle = h.driver
	fd := h.open(t, "/dev/kgsl-2d0")

	_, err := h.vmalloc(t, fd, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, h.tracer.Buffers().Len())
	assert.Contains(t, h.out.String(), "\t\tlen:\t\tffffffff\n")
	assert.Equal(t, 1, h.logs.FilterMessage("No mapping starts at hostptr").Len())
}

func TestFailedVmallocPassesErrorThrough(t *testing.T) {
	h := newHarness(t)
	h.kernel.handle = func(int, uint, uintptr) (int, error) {
		return -1, unix.ENOMEM
	}
	fd := h.open(t, "/dev/kgsl-2d0")

	ret, err := h.vmalloc(t, fd, 0x5000)
	assert.Equal(t, -1, ret)
	assert.True(t, errors.Is(err, unix.ENOMEM))

	// The post hook still ran, and dropped the record it could not complete.
	assert.Equal(t, 0, h.tracer.Buffers().Len())
	assert.Contains(t, h.out.String(), "(c00c0923) => -1\n")
	assert.Contains(t, h.out.String(), "\t\tgpuaddr:\t00005000\n")
}

func TestFailedRemapKeepsLiveBuffer(t *testing.T) {
	h := newHarness(t)
	h.kernel.handle = h.driver
	fd := h.open(t, "/dev/kgsl-2d0")

	_, err := h.vmalloc(t, fd, 0x5000)
	require.NoError(t, err)

	h.kernel.handle = func(int, uint, uintptr) (int, error) {
		return -1, unix.EEXIST
	}
	_, err = h.vmalloc(t, fd, 0x5000)
	require.ErrorIs(t, err, unix.EEXIST)

	require.Equal(t, 1, h.tracer.Buffers().Len())
	buf, ok := h.tracer.Buffers().Find(buffers.AnyHost, gpuAddr)
	require.True(t, ok)
	assert.Equal(t, uint64(hostAddr), buf.HostAddr)

	h.kernel.handle = h.driver
	h.mem.put(paramAddr, kgsl.SharedmemFree{GPUAddr: gpuAddr})
	_, err = h.tracer.Ioctl(fd, kgsl.IOCTL_KGSL_SHAREDMEM_FREE, paramAddr)
	require.NoError(t, err)
	assert.Zero(t, h.tracer.Buffers().Len())
	assert.Zero(t, h.logs.FilterMessage("Free of untracked buffer").Len())
}

func TestUnknownDescriptorPassThrough(t *testing.T) {
	h := newHarness(t)
	h.kernel.handle = func(int, uint, uintptr) (int, error) { return 7, nil }

	ret, err := h.tracer.Ioctl(99, 0x5401, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, ret)
	assert.Equal(t,
		"> [  99]         : <unknown> (00005401)\n"+
			"< [  99]         : <unknown> (00005401) => 7\n",
		h.out.String())
	require.Len(t, h.kernel.ioctls, 1)
	assert.Equal(t, ioctlCall{fd: 99, request: 0x5401}, h.kernel.ioctls[0])
}

func TestOpenMasksModeWithoutCreate(t *testing.T) {
	h := newHarness(t)

	_, err := h.tracer.Open("/data/local/tmp/x", unix.O_RDONLY, 0o644)
	require.NoError(t, err)
	_, err = h.tracer.Open("/data/local/tmp/y", unix.O_WRONLY|unix.O_CREAT, 0o644)
	require.NoError(t, err)

	require.Len(t, h.kernel.opens, 2)
	assert.Equal(t, uint32(0), h.kernel.opens[0].mode)
	assert.Equal(t, uint32(0o644), h.kernel.opens[1].mode)
	assert.Empty(t, h.out.String())
}

func TestOpenUnknownDevice(t *testing.T) {
	h := newHarness(t)
	h.open(t, "/dev/kgsl-3d1")
	assert.Equal(t, "#### missing device, path: /dev/kgsl-3d1: 10\n", h.out.String())
}

func TestResolutionFailureIsFatal(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core, zap.WithFatalHook(zapcore.WriteThenPanic))
	tr := New(newFakeMemory(),
		WithLogger(logger),
		WithOutput(&bytes.Buffer{}),
		WithResolver(func() (types.Kernel, error) {
			return nil, errors.New("no libc")
		}))

	assert.Panics(t, func() {
		_, _ = tr.Open("/dev/kgsl-3d0", unix.O_RDWR, 0)
	})
	assert.Equal(t, 1, logs.FilterMessage("Failed to resolve open/ioctl").Len())
}

func TestResolverRunsOnce(t *testing.T) {
	k := newFakeKernel()
	calls := 0
	tr := New(newFakeMemory(),
		WithOutput(&bytes.Buffer{}),
		WithResolver(func() (types.Kernel, error) {
			calls++
			return k, nil
		}))

	_, _ = tr.Open("/dev/kgsl-3d0", unix.O_RDWR, 0)
	_, _ = tr.Ioctl(10, kgsl.IOCTL_KGSL_DRAWCTXT_DESTROY, 0)
	assert.Equal(t, 1, calls)
	assert.Len(t, k.ioctls, 1)
}

func TestGetPropertyNamesType(t *testing.T) {
	h := newHarness(t)
	h.kernel.handle = func(fd int, request uint, arg uintptr) (int, error) {
		h.mem.put(0x2000, []uint32{0x2, 0x0200})
		return 0, nil
	}
	fd := h.open(t, "/dev/kgsl-3d0")

	h.mem.alloc(0x2000, 8)
	h.mem.put(paramAddr, kgsl.DeviceGetProperty{Type: kgsl.KGSL_PROP_DEVICE_INFO, Value: 0x2000, SizeBytes: 8})
	_, err := h.tracer.Ioctl(fd, kgsl.IOCTL_KGSL_DEVICE_GETPROPERTY, paramAddr)
	require.NoError(t, err)

	out := h.out.String()
	assert.Contains(t, out, "> [  10]  kgsl-3d: IOCTL_KGSL_DEVICE_GETPROPERTY (c00c0902)\n")
	assert.Contains(t, out, "\t\ttype:\t\t00000001 (KGSL_PROP_DEVICE_INFO)\n")
	assert.Contains(t, out, "\t\t\t00002000  02 00 00 00")
}

func TestDrawctxtCreate(t *testing.T) {
	h := newHarness(t)
	h.kernel.handle = func(fd int, request uint, arg uintptr) (int, error) {
		h.mem.put(uint64(arg), kgsl.DrawctxtCreate{Flags: 0x4, DrawctxtID: 3})
		return 0, nil
	}
	fd := h.open(t, "/dev/kgsl-3d0")

	h.mem.put(paramAddr, kgsl.DrawctxtCreate{Flags: 0x4})
	_, err := h.tracer.Ioctl(fd, kgsl.IOCTL_KGSL_DRAWCTXT_CREATE, paramAddr)
	require.NoError(t, err)

	assert.Contains(t, h.out.String(), "\t\tflags:\t\t00000004\n")
	assert.Contains(t, h.out.String(), "\t\tdrawctxt_id:\t00000003\n")
}

func TestPmemRequestsTracedGenerically(t *testing.T) {
	h := newHarness(t)
	fd := h.open(t, "/dev/pmem_gpu0")

	h.mem.put(paramAddr, []uint32{0, 0x100000})
	_, err := h.tracer.Ioctl(fd, kgsl.PMEM_GET_SIZE, paramAddr)
	require.NoError(t, err)

	out := h.out.String()
	assert.Contains(t, out, "> [  10] pmem-gpu: PMEM_GET_SIZE (40047003)\n")
	assert.Contains(t, out, "< [  10] pmem-gpu: PMEM_GET_SIZE (40047003) => 0\n")
	// Write-only: one dump, before the call.
	assert.Equal(t, 1, bytes.Count(h.out.Bytes(), []byte("\t\t\t00001000")))
}

// submit registers the working buffer, fills it with a 2-D submission of
// cmdLen command words and issues it.
func submit(t *testing.T, h *harness, fd int, cmdLen uint32) {
	t.Helper()
	h.mem.alloc(hostAddr, 0x5000)
	_, err := h.vmalloc(t, fd, 0x5000)
	require.NoError(t, err)

	h.mem.put(hostAddr+0x500, []uint32{0x7c000275, 0x00000000, cmdLen})
	sizeDWords := 0x140 + cmdLen + 7
	h.mem.put(ibDescAddr, kgsl.IBDesc{GPUAddr: gpuAddr, HostPtr: hostAddr, SizeDWords: sizeDWords})
	h.mem.put(paramAddr, kgsl.RingbufferIssueIBCmds{DrawctxtID: 1, IBDescAddr: ibDescAddr, NumIBs: 1})

	_, err = h.tracer.Ioctl(fd, kgsl.IOCTL_KGSL_RINGBUFFER_ISSUEIBCMDS, paramAddr)
	require.NoError(t, err)
}

func TestIssueIBCmdsFramesAndPersists(t *testing.T) {
	dir := t.TempDir()
	collector := &recordingCollector{}
	h := newHarness(t, WithBufferDumps(dir), WithCollectors(collector))
	h.kernel.handle = h.driver
	fd := h.open(t, "/dev/kgsl-2d0")

	submit(t, h, fd, 0x1a)

	out := h.out.String()
	assert.Contains(t, out, "\t\tnumibs:\t\t00000001\n")
	assert.Contains(t, out, "\t\tibdesc[0].sizedwords:\t00000161\n")
	assert.Contains(t, out, "\t\tcontext:\n\t\t\t40000000")
	assert.Contains(t, out, "\t\tcmd:\n\t\t\t40000500")
	assert.Contains(t, out, "\t\ttimestamp:\t00000042\n")
	assert.Contains(t, out, "\t\tnext:\n\t\t\t40000584")
	assert.NotContains(t, out, "WARNING")

	path := filepath.Join(dir, "0000-66136000.dat")
	assert.Contains(t, out, "\t\tdumping: "+path+"\n")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, data, 0x5000)

	var persisted int
	for _, ev := range collector.events {
		if be, ok := ev.(types.BufferEvent); ok && be.Kind == types.BUFFER_PERSISTED {
			persisted++
			assert.Equal(t, uint32(gpuAddr), be.DeviceAddr)
		}
	}
	assert.Equal(t, 1, persisted)
}

func TestUnreadableBufferIsNotReportedAsDumped(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, WithBufferDumps(dir))
	h.kernel.handle = h.driver
	fd := h.open(t, "/dev/kgsl-2d0")

	// Only the submitted words are mapped, not the whole tracked buffer.
	h.mem.alloc(hostAddr, 0x600)
	_, err := h.vmalloc(t, fd, 0x5000)
	require.NoError(t, err)

	h.mem.put(hostAddr+0x500, []uint32{0, 0, 0x1a})
	h.mem.put(ibDescAddr, kgsl.IBDesc{GPUAddr: gpuAddr, HostPtr: hostAddr, SizeDWords: 0x161})
	h.mem.put(paramAddr, kgsl.RingbufferIssueIBCmds{IBDescAddr: ibDescAddr, NumIBs: 1})
	_, err = h.tracer.Ioctl(fd, kgsl.IOCTL_KGSL_RINGBUFFER_ISSUEIBCMDS, paramAddr)
	require.NoError(t, err)

	assert.NotContains(t, h.out.String(), "dumping:")
	assert.Equal(t, 1, h.logs.FilterMessage("Failed to persist buffer").Len())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestIssueIBCmdsOverrunIsFlagged(t *testing.T) {
	h := newHarness(t)
	h.kernel.handle = h.driver
	fd := h.open(t, "/dev/kgsl-2d0")

	h.mem.alloc(hostAddr, 0x5000)
	h.mem.put(hostAddr+0x500, []uint32{0, 0, 0x30})
	h.mem.put(ibDescAddr, kgsl.IBDesc{GPUAddr: gpuAddr, HostPtr: hostAddr, SizeDWords: 0x150})
	h.mem.put(paramAddr, kgsl.RingbufferIssueIBCmds{IBDescAddr: ibDescAddr, NumIBs: 1})

	_, err := h.tracer.Ioctl(fd, kgsl.IOCTL_KGSL_RINGBUFFER_ISSUEIBCMDS, paramAddr)
	require.NoError(t, err)
	assert.Contains(t, h.out.String(), "WARNING: cmd length 030 runs past sizedwords 00000150")
	assert.Equal(t, 1, h.logs.FilterMessage("Command length runs past the buffer").Len())
}

func TestIssueIBCmdsInvalidContext(t *testing.T) {
	h := newHarness(t)
	fd := h.open(t, "/dev/kgsl-2d0")

	h.mem.alloc(hostAddr, 0x100)
	h.mem.put(ibDescAddr, kgsl.IBDesc{HostPtr: hostAddr, SizeDWords: 0x40})
	h.mem.put(paramAddr, kgsl.RingbufferIssueIBCmds{IBDescAddr: ibDescAddr, NumIBs: 1})

	_, err := h.tracer.Ioctl(fd, kgsl.IOCTL_KGSL_RINGBUFFER_ISSUEIBCMDS, paramAddr)
	require.NoError(t, err)
	out := h.out.String()
	assert.Contains(t, out, "\t\tWARNING: INVALID CONTEXT!\n")
	assert.NotContains(t, out, "context:")
	assert.NotContains(t, out, "next:")
}

func TestIssueIBCmds3DDumpsWholeBuffer(t *testing.T) {
	h := newHarness(t)
	fd := h.open(t, "/dev/kgsl-3d0")

	h.mem.alloc(hostAddr, 0x800)
	h.mem.put(ibDescAddr, kgsl.IBDesc{HostPtr: hostAddr, SizeDWords: 0x180})
	h.mem.put(paramAddr, kgsl.RingbufferIssueIBCmds{IBDescAddr: ibDescAddr, NumIBs: 1})

	_, err := h.tracer.Ioctl(fd, kgsl.IOCTL_KGSL_RINGBUFFER_ISSUEIBCMDS, paramAddr)
	require.NoError(t, err)
	out := h.out.String()
	assert.NotContains(t, out, "WARNING")
	assert.NotContains(t, out, "context:")
	assert.Contains(t, out, "\t\t\t400005F0")
}

func TestCollectorsSeeEveryRequest(t *testing.T) {
	collector := &recordingCollector{}
	h := newHarness(t, WithCollectors(collector))
	h.kernel.handle = h.driver
	fd := h.open(t, "/dev/kgsl-2d0")

	_, err := h.vmalloc(t, fd, 0x5000)
	require.NoError(t, err)
	h.mem.put(paramAddr, kgsl.SharedmemFree{GPUAddr: gpuAddr})
	_, err = h.tracer.Ioctl(fd, kgsl.IOCTL_KGSL_SHAREDMEM_FREE, paramAddr)
	require.NoError(t, err)
	_, err = h.tracer.Ioctl(42, 0x1, 0)
	require.NoError(t, err)

	_, err = h.tracer.Open("/dev/kgsl-3d1", unix.O_RDWR, 0)
	require.NoError(t, err)

	require.Len(t, collector.events, 7)
	assert.Equal(t, types.DeviceEvent{Path: "/dev/kgsl-2d0", Fd: 10, Name: "kgsl_2d0", Bound: true}, collector.events[0])
	assert.Equal(t, types.BufferEvent{Kind: types.BUFFER_TRACKED, HostAddr: hostAddr, Length: 0x5000}, collector.events[1])
	assert.Equal(t, types.FamilyKGSL2D, collector.events[2].(types.RequestEvent).Family)
	assert.Equal(t, types.BufferEvent{Kind: types.BUFFER_RELEASED, HostAddr: hostAddr, DeviceAddr: gpuAddr}, collector.events[3])
	assert.Equal(t, "IOCTL_KGSL_SHAREDMEM_FREE", collector.events[4].(types.RequestEvent).Name)
	assert.Equal(t, "", collector.events[5].(types.RequestEvent).Family)
	assert.Equal(t, types.DeviceEvent{Path: "/dev/kgsl-3d1", Fd: 11}, collector.events[6])
}
