package kgsl

// Generic Linux ioctl request encoding, from include/uapi/asm-generic/ioctl.h.
const (
	IOC_NRBITS   = 8
	IOC_TYPEBITS = 8
	IOC_SIZEBITS = 14
	IOC_DIRBITS  = 2

	IOC_NRSHIFT   = 0
	IOC_TYPESHIFT = IOC_NRSHIFT + IOC_NRBITS
	IOC_SIZESHIFT = IOC_TYPESHIFT + IOC_TYPEBITS
	IOC_DIRSHIFT  = IOC_SIZESHIFT + IOC_SIZEBITS

	IOC_NONE  = 0
	IOC_WRITE = 1
	IOC_READ  = 2
)

func IOC(dir, typ, nr, size uint) uint {
	return dir<<IOC_DIRSHIFT | typ<<IOC_TYPESHIFT | nr<<IOC_NRSHIFT | size<<IOC_SIZESHIFT
}

func IO(typ, nr uint) uint { return IOC(IOC_NONE, typ, nr, 0) }
func IOR(typ, nr, size uint) uint { return IOC(IOC_READ, typ, nr, size) }
func IOW(typ, nr, size uint) uint { return IOC(IOC_WRITE, typ, nr, size) }
func IOWR(typ, nr, size uint) uint { return IOC(IOC_READ|IOC_WRITE, typ, nr, size) }
func IOC_DIR(request uint) uint { return request >> IOC_DIRSHIFT & (1<<IOC_DIRBITS - 1) }
func IOC_TYPE(request uint) uint { return request >> IOC_TYPESHIFT & (1<<IOC_TYPEBITS - 1) }
func IOC_NR(request uint) uint { return request >> IOC_NRSHIFT & (1<<IOC_NRBITS - 1) }
func IOC_SIZE(request uint) uint { return request >> IOC_SIZESHIFT & (1<<IOC_SIZEBITS - 1) }
