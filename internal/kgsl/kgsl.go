// Package kgsl tracks the ABI of the Qualcomm KGSL and Android PMEM kernel
// drivers as seen by 32-bit ARM userspace: every pointer and size_t in a
// parameter block is four bytes wide and little-endian.
package kgsl

import (
	"bytes"
	"encoding/binary"
)

// KGSL_IOC_TYPE is the ioctl type shared by /dev/kgsl-3d0 and /dev/kgsl-2d*.
const KGSL_IOC_TYPE = 0x09

// Request numbers, from include/linux/msm_kgsl.h.
const (
	NR_DEVICE_GETPROPERTY           = 0x02
	NR_DEVICE_WAITTIMESTAMP         = 0x06
	NR_RINGBUFFER_ISSUEIBCMDS       = 0x10
	NR_CMDSTREAM_READTIMESTAMP      = 0x11
	NR_CMDSTREAM_FREEMEMONTIMESTAMP = 0x12
	NR_DRAWCTXT_CREATE              = 0x13
	NR_DRAWCTXT_DESTROY             = 0x14
	NR_MAP_USER_MEM                 = 0x15
	NR_SHAREDMEM_FROM_PMEM          = 0x20
	NR_SHAREDMEM_FREE               = 0x21
	NR_SHAREDMEM_FROM_VMALLOC       = 0x23
	NR_SHAREDMEM_FLUSH_CACHE        = 0x24
	NR_DRAWCTXT_SET_BIN_BASE_OFFSET = 0x25
	NR_GPUMEM_ALLOC                 = 0x2f
	NR_CFF_SYNCMEM                  = 0x30
	NR_CFF_USER_EVENT               = 0x31
	NR_TIMESTAMP_EVENT              = 0x33
)

// Parameter block sizes.
const (
	SizeofDeviceGetProperty        = 12
	SizeofDeviceWaitTimestamp      = 8
	SizeofRingbufferIssueIBCmds    = 20
	SizeofIBDesc                   = 16
	SizeofCmdstreamReadTimestamp   = 8
	SizeofFreememOnTimestamp       = 12
	SizeofDrawctxtCreate           = 8
	SizeofDrawctxtDestroy          = 4
	SizeofMapUserMem               = 28
	SizeofSharedmemFromPmem        = 16
	SizeofSharedmemFree            = 4
	SizeofSharedmemFromVmalloc     = 12
	SizeofDrawctxtSetBinBaseOffset = 8
	SizeofGpumemAlloc              = 12
	SizeofCffSyncmem               = 16
	SizeofCffUserEvent             = 32
	SizeofTimestampEvent           = 20
)

var (
	IOCTL_KGSL_DEVICE_GETPROPERTY           = IOWR(KGSL_IOC_TYPE, NR_DEVICE_GETPROPERTY, SizeofDeviceGetProperty)
	IOCTL_KGSL_DEVICE_WAITTIMESTAMP         = IOW(KGSL_IOC_TYPE, NR_DEVICE_WAITTIMESTAMP, SizeofDeviceWaitTimestamp)
	IOCTL_KGSL_RINGBUFFER_ISSUEIBCMDS       = IOWR(KGSL_IOC_TYPE, NR_RINGBUFFER_ISSUEIBCMDS, SizeofRingbufferIssueIBCmds)
	IOCTL_KGSL_CMDSTREAM_READTIMESTAMP      = IOWR(KGSL_IOC_TYPE, NR_CMDSTREAM_READTIMESTAMP, SizeofCmdstreamReadTimestamp)
	IOCTL_KGSL_CMDSTREAM_FREEMEMONTIMESTAMP = IOW(KGSL_IOC_TYPE, NR_CMDSTREAM_FREEMEMONTIMESTAMP, SizeofFreememOnTimestamp)
	IOCTL_KGSL_DRAWCTXT_CREATE              = IOWR(KGSL_IOC_TYPE, NR_DRAWCTXT_CREATE, SizeofDrawctxtCreate)
	IOCTL_KGSL_DRAWCTXT_DESTROY             = IOW(KGSL_IOC_TYPE, NR_DRAWCTXT_DESTROY, SizeofDrawctxtDestroy)
	IOCTL_KGSL_MAP_USER_MEM                 = IOWR(KGSL_IOC_TYPE, NR_MAP_USER_MEM, SizeofMapUserMem)
	IOCTL_KGSL_SHAREDMEM_FROM_PMEM          = IOWR(KGSL_IOC_TYPE, NR_SHAREDMEM_FROM_PMEM, SizeofSharedmemFromPmem)
	IOCTL_KGSL_SHAREDMEM_FREE               = IOW(KGSL_IOC_TYPE, NR_SHAREDMEM_FREE, SizeofSharedmemFree)
	IOCTL_KGSL_SHAREDMEM_FROM_VMALLOC       = IOWR(KGSL_IOC_TYPE, NR_SHAREDMEM_FROM_VMALLOC, SizeofSharedmemFromVmalloc)
	IOCTL_KGSL_SHAREDMEM_FLUSH_CACHE        = IOW(KGSL_IOC_TYPE, NR_SHAREDMEM_FLUSH_CACHE, SizeofSharedmemFree)
	IOCTL_KGSL_DRAWCTXT_SET_BIN_BASE_OFFSET = IOW(KGSL_IOC_TYPE, NR_DRAWCTXT_SET_BIN_BASE_OFFSET, SizeofDrawctxtSetBinBaseOffset)
	IOCTL_KGSL_GPUMEM_ALLOC                 = IOWR(KGSL_IOC_TYPE, NR_GPUMEM_ALLOC, SizeofGpumemAlloc)
	IOCTL_KGSL_CFF_SYNCMEM                  = IOW(KGSL_IOC_TYPE, NR_CFF_SYNCMEM, SizeofCffSyncmem)
	IOCTL_KGSL_CFF_USER_EVENT               = IOW(KGSL_IOC_TYPE, NR_CFF_USER_EVENT, SizeofCffUserEvent)
	IOCTL_KGSL_TIMESTAMP_EVENT              = IOWR(KGSL_IOC_TYPE, NR_TIMESTAMP_EVENT, SizeofTimestampEvent)
)

// Device properties for IOCTL_KGSL_DEVICE_GETPROPERTY.
const (
	KGSL_PROP_DEVICE_INFO     = 0x1
	KGSL_PROP_DEVICE_SHADOW   = 0x2
	KGSL_PROP_DEVICE_POWER    = 0x3
	KGSL_PROP_SHMEM           = 0x4
	KGSL_PROP_SHMEM_APERTURES = 0x5
	KGSL_PROP_MMU_ENABLE      = 0x6
	KGSL_PROP_INTERRUPT_WAITS = 0x7
	KGSL_PROP_VERSION         = 0x8
	KGSL_PROP_GPU_RESET_STAT  = 0x9
)

// DeviceGetProperty is struct kgsl_device_getproperty.
type DeviceGetProperty struct {
	Type      uint32
	Value     uint32 // void *
	SizeBytes uint32
}

// RingbufferIssueIBCmds is struct kgsl_ringbuffer_issueibcmds. Timestamp
// is filled in by the driver.
type RingbufferIssueIBCmds struct {
	DrawctxtID uint32
	IBDescAddr uint32
	NumIBs     uint32
	Timestamp  uint32
	Flags      uint32
}

// IBDesc is struct kgsl_ibdesc, one indirect command buffer.
type IBDesc struct {
	GPUAddr    uint32
	HostPtr    uint32 // void *
	SizeDWords uint32
	Ctrl       uint32
}

// DrawctxtCreate is struct kgsl_drawctxt_create.
type DrawctxtCreate struct {
	Flags      uint32
	DrawctxtID uint32
}

// SharedmemFromVmalloc is struct kgsl_sharedmem_from_vmalloc. On input
// GPUAddr may carry the mapping length; on output it holds the device
// address.
type SharedmemFromVmalloc struct {
	GPUAddr uint32
	HostPtr uint32
	Flags   uint32
}

// SharedmemFree is struct kgsl_sharedmem_free.
type SharedmemFree struct {
	GPUAddr uint32
}

// Unmarshal decodes a little-endian parameter block into v.
func Unmarshal(data []byte, v any) error {
	return binary.Read(bytes.NewReader(data), binary.LittleEndian, v)
}

// Marshal encodes v the way the driver expects to read it.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
