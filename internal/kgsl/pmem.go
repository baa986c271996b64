package kgsl

// PMEM_IOCTL_MAGIC is the ioctl type of /dev/pmem_gpu*, from
// include/linux/android_pmem.h.
const PMEM_IOCTL_MAGIC = 'p'

const (
	NR_PMEM_GET_PHYS           = 1
	NR_PMEM_MAP                = 2
	NR_PMEM_GET_SIZE           = 3
	NR_PMEM_UNMAP              = 4
	NR_PMEM_ALLOCATE           = 5
	NR_PMEM_CONNECT            = 6
	NR_PMEM_GET_TOTAL_SIZE     = 7
	NR_HW3D_REVOKE_GPU         = 8
	NR_HW3D_GRANT_GPU          = 9
	NR_HW3D_WAIT_FOR_INTERRUPT = 10
	NR_PMEM_CLEAN_INV_CACHES   = 11
	NR_PMEM_CLEAN_CACHES       = 12
	NR_PMEM_INV_CACHES         = 13
	NR_PMEM_GET_FREE_SPACE     = 14
	NR_PMEM_ALLOCATE_ALIGNED   = 15
)

// Every pmem request is declared with an unsigned int argument, even those
// that are handed a struct pmem_region at runtime.
const SizeofPmemUint = 4

var (
	PMEM_GET_PHYS           = IOW(PMEM_IOCTL_MAGIC, NR_PMEM_GET_PHYS, SizeofPmemUint)
	PMEM_MAP                = IOW(PMEM_IOCTL_MAGIC, NR_PMEM_MAP, SizeofPmemUint)
	PMEM_GET_SIZE           = IOW(PMEM_IOCTL_MAGIC, NR_PMEM_GET_SIZE, SizeofPmemUint)
	PMEM_UNMAP              = IOW(PMEM_IOCTL_MAGIC, NR_PMEM_UNMAP, SizeofPmemUint)
	PMEM_ALLOCATE           = IOW(PMEM_IOCTL_MAGIC, NR_PMEM_ALLOCATE, SizeofPmemUint)
	PMEM_CONNECT            = IOW(PMEM_IOCTL_MAGIC, NR_PMEM_CONNECT, SizeofPmemUint)
	PMEM_GET_TOTAL_SIZE     = IOW(PMEM_IOCTL_MAGIC, NR_PMEM_GET_TOTAL_SIZE, SizeofPmemUint)
	HW3D_REVOKE_GPU         = IOW(PMEM_IOCTL_MAGIC, NR_HW3D_REVOKE_GPU, SizeofPmemUint)
	HW3D_GRANT_GPU          = IOW(PMEM_IOCTL_MAGIC, NR_HW3D_GRANT_GPU, SizeofPmemUint)
	HW3D_WAIT_FOR_INTERRUPT = IOW(PMEM_IOCTL_MAGIC, NR_HW3D_WAIT_FOR_INTERRUPT, SizeofPmemUint)
	PMEM_CLEAN_INV_CACHES   = IOW(PMEM_IOCTL_MAGIC, NR_PMEM_CLEAN_INV_CACHES, SizeofPmemUint)
	PMEM_CLEAN_CACHES       = IOW(PMEM_IOCTL_MAGIC, NR_PMEM_CLEAN_CACHES, SizeofPmemUint)
	PMEM_INV_CACHES         = IOW(PMEM_IOCTL_MAGIC, NR_PMEM_INV_CACHES, SizeofPmemUint)
	PMEM_GET_FREE_SPACE     = IOW(PMEM_IOCTL_MAGIC, NR_PMEM_GET_FREE_SPACE, SizeofPmemUint)
	PMEM_ALLOCATE_ALIGNED   = IOW(PMEM_IOCTL_MAGIC, NR_PMEM_ALLOCATE_ALIGNED, SizeofPmemUint)
)
