package registry

import (
	"errors"

	"github.com/ALEYI17/kgsltrace/internal/kgsl"
	"github.com/ALEYI17/kgsltrace/pkg/types"
)

var kgslCommon = []Entry{
	{"IOCTL_KGSL_DEVICE_GETPROPERTY", kgsl.IOCTL_KGSL_DEVICE_GETPROPERTY},
	{"IOCTL_KGSL_DEVICE_WAITTIMESTAMP", kgsl.IOCTL_KGSL_DEVICE_WAITTIMESTAMP},
	{"IOCTL_KGSL_RINGBUFFER_ISSUEIBCMDS", kgsl.IOCTL_KGSL_RINGBUFFER_ISSUEIBCMDS},
	{"IOCTL_KGSL_CMDSTREAM_READTIMESTAMP", kgsl.IOCTL_KGSL_CMDSTREAM_READTIMESTAMP},
	{"IOCTL_KGSL_CMDSTREAM_FREEMEMONTIMESTAMP", kgsl.IOCTL_KGSL_CMDSTREAM_FREEMEMONTIMESTAMP},
	{"IOCTL_KGSL_DRAWCTXT_CREATE", kgsl.IOCTL_KGSL_DRAWCTXT_CREATE},
	{"IOCTL_KGSL_DRAWCTXT_DESTROY", kgsl.IOCTL_KGSL_DRAWCTXT_DESTROY},
	{"IOCTL_KGSL_MAP_USER_MEM", kgsl.IOCTL_KGSL_MAP_USER_MEM},
	{"IOCTL_KGSL_SHAREDMEM_FROM_PMEM", kgsl.IOCTL_KGSL_SHAREDMEM_FROM_PMEM},
	{"IOCTL_KGSL_SHAREDMEM_FREE", kgsl.IOCTL_KGSL_SHAREDMEM_FREE},
	{"IOCTL_KGSL_SHAREDMEM_FROM_VMALLOC", kgsl.IOCTL_KGSL_SHAREDMEM_FROM_VMALLOC},
	{"IOCTL_KGSL_SHAREDMEM_FLUSH_CACHE", kgsl.IOCTL_KGSL_SHAREDMEM_FLUSH_CACHE},
	{"IOCTL_KGSL_GPUMEM_ALLOC", kgsl.IOCTL_KGSL_GPUMEM_ALLOC},
	{"IOCTL_KGSL_CFF_SYNCMEM", kgsl.IOCTL_KGSL_CFF_SYNCMEM},
	{"IOCTL_KGSL_CFF_USER_EVENT", kgsl.IOCTL_KGSL_CFF_USER_EVENT},
	{"IOCTL_KGSL_TIMESTAMP_EVENT", kgsl.IOCTL_KGSL_TIMESTAMP_EVENT},
}

var pmemEntries = []Entry{
	{"PMEM_GET_PHYS", kgsl.PMEM_GET_PHYS},
	{"PMEM_MAP", kgsl.PMEM_MAP},
	{"PMEM_GET_SIZE", kgsl.PMEM_GET_SIZE},
	{"PMEM_UNMAP", kgsl.PMEM_UNMAP},
	{"PMEM_ALLOCATE", kgsl.PMEM_ALLOCATE},
	{"PMEM_CONNECT", kgsl.PMEM_CONNECT},
	{"PMEM_GET_TOTAL_SIZE", kgsl.PMEM_GET_TOTAL_SIZE},
	{"HW3D_REVOKE_GPU", kgsl.HW3D_REVOKE_GPU},
	{"HW3D_GRANT_GPU", kgsl.HW3D_GRANT_GPU},
	{"HW3D_WAIT_FOR_INTERRUPT", kgsl.HW3D_WAIT_FOR_INTERRUPT},
	{"PMEM_CLEAN_INV_CACHES", kgsl.PMEM_CLEAN_INV_CACHES},
	{"PMEM_CLEAN_CACHES", kgsl.PMEM_CLEAN_CACHES},
	{"PMEM_INV_CACHES", kgsl.PMEM_INV_CACHES},
	{"PMEM_GET_FREE_SPACE", kgsl.PMEM_GET_FREE_SPACE},
	{"PMEM_ALLOCATE_ALIGNED", kgsl.PMEM_ALLOCATE_ALIGNED},
}

// ForFamily builds the decode table for one device family.
func ForFamily(family string) (*Table, error) {
	switch family {
	case types.FamilyKGSL3D:
		entries := append([]Entry{}, kgslCommon...)
		entries = append(entries, Entry{"IOCTL_KGSL_DRAWCTXT_SET_BIN_BASE_OFFSET", kgsl.IOCTL_KGSL_DRAWCTXT_SET_BIN_BASE_OFFSET})
		return newTable(family, entries...), nil
	case types.FamilyKGSL2D:
		return newTable(family, kgslCommon...), nil
	case types.FamilyPMEM:
		return newTable(family, pmemEntries...), nil
	default:
		return nil, errors.New("unsupported or unknown device family")
	}
}
