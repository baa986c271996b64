package tracer

import (
	"go.uber.org/zap"

	"github.com/ALEYI17/kgsltrace/internal/framer"
	"github.com/ALEYI17/kgsltrace/internal/hexdump"
	"github.com/ALEYI17/kgsltrace/internal/kgsl"
	"github.com/ALEYI17/kgsltrace/internal/registry"
	"github.com/ALEYI17/kgsltrace/pkg/types"
)

type hookFunc func(*Tracer, *call)

// Hooks are keyed by request number and only run for the kgsl families;
// pmem requests are traced generically.
var preHooks = map[uint]hookFunc{
	kgsl.NR_RINGBUFFER_ISSUEIBCMDS: (*Tracer).issueIBCmdsPre,
	kgsl.NR_DRAWCTXT_CREATE:        (*Tracer).drawctxtCreatePre,
	kgsl.NR_SHAREDMEM_FROM_VMALLOC: (*Tracer).fromVmallocPre,
	kgsl.NR_SHAREDMEM_FREE:         (*Tracer).sharedmemFreePre,
}

var postHooks = map[uint]hookFunc{
	kgsl.NR_RINGBUFFER_ISSUEIBCMDS: (*Tracer).issueIBCmdsPost,
	kgsl.NR_DRAWCTXT_CREATE:        (*Tracer).drawctxtCreatePost,
	kgsl.NR_DEVICE_GETPROPERTY:     (*Tracer).getPropertyPost,
	kgsl.NR_SHAREDMEM_FROM_VMALLOC: (*Tracer).fromVmallocPost,
}

// maxIBDescs bounds how many descriptors are read from one submission.
const maxIBDescs = 256

// noLength is printed when neither the request nor the mappings tell how
// long an allocation is.
const noLength = ^uint32(0)

func (t *Tracer) preHook(c *call) (hookFunc, bool) {
	return lookupHook(preHooks, c)
}

func (t *Tracer) postHook(c *call) (hookFunc, bool) {
	return lookupHook(postHooks, c)
}

func lookupHook(hooks map[uint]hookFunc, c *call) (hookFunc, bool) {
	if c.slot.Family == types.FamilyPMEM || kgsl.IOC_TYPE(c.request) != kgsl.KGSL_IOC_TYPE {
		return nil, false
	}
	h, ok := hooks[kgsl.IOC_NR(c.request)]
	return h, ok
}

func (t *Tracer) readIBDescs(p kgsl.RingbufferIssueIBCmds) ([]kgsl.IBDesc, bool) {
	n := p.NumIBs
	if n > maxIBDescs {
		t.logger.Warn("Clamping descriptor count", zap.Uint32("numibs", n))
		n = maxIBDescs
	}
	descs := make([]kgsl.IBDesc, n)
	if n == 0 {
		return descs, true
	}

	data, err := t.mem.ReadAt(uint64(p.IBDescAddr), int(n)*kgsl.SizeofIBDesc)
	if err == nil {
		err = kgsl.Unmarshal(data, descs)
	}
	if err != nil {
		t.logger.Warn("Failed to read descriptors",
			zap.Uint32("ibdesc_addr", p.IBDescAddr),
			zap.Error(err))
		return nil, false
	}
	return descs, true
}

func (t *Tracer) issueIBCmdsPre(c *call) {
	var p kgsl.RingbufferIssueIBCmds
	if !t.readParam(c, &p, kgsl.SizeofRingbufferIssueIBCmds) {
		return
	}

	t.printf("\t\tdrawctxt_id:\t%08x\n", p.DrawctxtID)
	t.printf("\t\tflags:\t\t%08x\n", p.Flags)
	t.printf("\t\tnumibs:\t\t%08x\n", p.NumIBs)
	t.printf("\t\tibdesc_addr:\t%08x\n", p.IBDescAddr)

	descs, ok := t.readIBDescs(p)
	if !ok {
		return
	}
	for i, ib := range descs {
		t.printf("\t\tibdesc[%d].ctrl:\t\t%08x\n", i, ib.Ctrl)
		t.printf("\t\tibdesc[%d].sizedwords:\t%08x\n", i, ib.SizeDWords)
		t.printf("\t\tibdesc[%d].gpuaddr:\t%08x\n", i, ib.GPUAddr)
		t.printf("\t\tibdesc[%d].hostptr:\t%08x\n", i, ib.HostPtr)
		t.dumpSubmission(c, ib)
	}
}

// dumpSubmission frames one indirect buffer and dumps the result; framed
// 2-D buffers are also persisted in full when they are tracked.
func (t *Tracer) dumpSubmission(c *call, ib kgsl.IBDesc) {
	base := uint64(ib.HostPtr)
	data, err := t.mem.ReadAt(base, int(ib.SizeDWords)*4)
	if err != nil {
		t.logger.Warn("Failed to read command buffer",
			zap.Uint32("gpuaddr", ib.GPUAddr),
			zap.Uint32("hostptr", ib.HostPtr),
			zap.Uint32("sizedwords", ib.SizeDWords),
			zap.Error(err))
		return
	}

	f := framer.FrameSubmission(data, c.is2D())
	if f.InvalidContext {
		t.printf("\t\tWARNING: INVALID CONTEXT!\n")
	}

	for _, r := range f.Regions {
		if r.Label != "" {
			t.printf("\t\t%s:\n", r.Label)
		}
		if r.End() <= len(data) {
			if err := hexdump.Dump(t.out, base+uint64(r.Offset), data[r.Offset:r.End()]); err != nil {
				t.logger.Warn("Failed to write dump", zap.Error(err))
			}
			continue
		}
		t.dump(base+uint64(r.Offset), r.Length)
	}

	if f.Overrun {
		t.printf("\t\tWARNING: cmd length %03x runs past sizedwords %08x\n", f.CmdDWords, ib.SizeDWords)
		t.logger.Warn("Command length runs past the buffer",
			zap.Uint32("gpuaddr", ib.GPUAddr),
			zap.Uint32("cmd_dwords", f.CmdDWords),
			zap.Uint32("sizedwords", ib.SizeDWords))
	}
	if f.Truncated {
		t.printf("\t\tWARNING: truncated cmd header\n")
	}

	if f.Framed && t.persister != nil {
		t.persistBuffer(ib.GPUAddr)
	}
}

func (t *Tracer) persistBuffer(gpuaddr uint32) {
	path, err := t.persister.Persist(gpuaddr)
	if err != nil {
		t.logger.Warn("Failed to persist buffer", zap.Uint32("gpuaddr", gpuaddr), zap.Error(err))
		return
	}
	if path == "" {
		return
	}
	t.printf("\t\tdumping: %s\n", path)
	t.emit(types.BufferEvent{Kind: types.BUFFER_PERSISTED, DeviceAddr: gpuaddr})
}

func (t *Tracer) issueIBCmdsPost(c *call) {
	var p kgsl.RingbufferIssueIBCmds
	if !t.readParam(c, &p, kgsl.SizeofRingbufferIssueIBCmds) {
		return
	}

	t.printf("\t\ttimestamp:\t%08x\n", p.Timestamp)

	descs, ok := t.readIBDescs(p)
	if !ok {
		return
	}
	for _, ib := range descs {
		r, ok := framer.Trailer(ib.SizeDWords, c.is2D())
		if !ok {
			continue
		}
		t.printf("\t\t%s:\n", r.Label)
		t.dump(uint64(ib.HostPtr)+uint64(r.Offset), r.Length)
	}
}

func (t *Tracer) drawctxtCreatePre(c *call) {
	var p kgsl.DrawctxtCreate
	if t.readParam(c, &p, kgsl.SizeofDrawctxtCreate) {
		t.printf("\t\tflags:\t\t%08x\n", p.Flags)
	}
}

func (t *Tracer) drawctxtCreatePost(c *call) {
	var p kgsl.DrawctxtCreate
	if t.readParam(c, &p, kgsl.SizeofDrawctxtCreate) {
		t.printf("\t\tdrawctxt_id:\t%08x\n", p.DrawctxtID)
	}
}

func (t *Tracer) getPropertyPost(c *call) {
	var p kgsl.DeviceGetProperty
	if !t.readParam(c, &p, kgsl.SizeofDeviceGetProperty) {
		return
	}
	t.printf("\t\ttype:\t\t%08x (%s)\n", p.Type, registry.PropertyName(p.Type))
	if p.Value != 0 && p.SizeBytes != 0 {
		t.dump(uint64(p.Value), int(p.SizeBytes))
	}
}

func (t *Tracer) fromVmallocPre(c *call) {
	var p kgsl.SharedmemFromVmalloc
	if !t.readParam(c, &p, kgsl.SizeofSharedmemFromVmalloc) {
		return
	}

	t.printf("\t\tflags:\t\t%08x\n", p.Flags)
	t.printf("\t\thostptr:\t%08x\n", p.HostPtr)

	length := p.GPUAddr
	if length == 0 {
		length = t.lengthFromMaps(uint64(p.HostPtr))
	}
	if buf, ok := t.buffers.Allocated(uint64(p.HostPtr), p.Flags, length); ok {
		t.emit(types.BufferEvent{Kind: types.BUFFER_TRACKED, HostAddr: buf.HostAddr, Length: buf.Length})
	}
	t.printf("\t\tlen:\t\t%08x\n", length)
}

// lengthFromMaps is the fallback for allocations whose length the driver
// has to work out from the vma itself.
func (t *Tracer) lengthFromMaps(hostptr uint64) uint32 {
	if t.regions == nil {
		t.logger.Warn("No region source to size allocation", zap.Uint64("hostptr", hostptr))
		return noLength
	}
	n, ok, err := t.regions.RegionLength(hostptr)
	if err != nil {
		t.logger.Warn("Failed to read mappings", zap.Uint64("hostptr", hostptr), zap.Error(err))
		return noLength
	}
	if !ok {
		t.logger.Warn("No mapping starts at hostptr", zap.Uint64("hostptr", hostptr))
		return noLength
	}
	return uint32(n)
}

func (t *Tracer) fromVmallocPost(c *call) {
	var p kgsl.SharedmemFromVmalloc
	if !t.readParam(c, &p, kgsl.SizeofSharedmemFromVmalloc) {
		return
	}

	host := uint64(p.HostPtr)
	if c.err != nil {
		// The driver did not map it; drop the record registered on the way in.
		if t.buffers.Remove(host) {
			t.emit(types.BufferEvent{Kind: types.BUFFER_RELEASED, HostAddr: host})
		}
	} else {
		t.buffers.AssignDeviceAddress(host, p.GPUAddr)
	}
	t.printf("\t\tgpuaddr:\t%08x\n", p.GPUAddr)
}

func (t *Tracer) sharedmemFreePre(c *call) {
	var p kgsl.SharedmemFree
	if !t.readParam(c, &p, kgsl.SizeofSharedmemFree) {
		return
	}

	t.printf("\t\tgpuaddr:\t%08x\n", p.GPUAddr)
	if buf, ok := t.buffers.Unregister(p.GPUAddr); ok {
		t.emit(types.BufferEvent{Kind: types.BUFFER_RELEASED, HostAddr: buf.HostAddr, DeviceAddr: p.GPUAddr})
	}
}
