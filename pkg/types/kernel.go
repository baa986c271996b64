package types

// Kernel is the pair of OS entry points the tracer sits in front of.
type Kernel interface {
	Open(path string, flags int, mode uint32) (int, error)
	Ioctl(fd int, request uint, arg uintptr) (int, error)
}

// Memory reads the traced process' address space.
type Memory interface {
	ReadAt(addr uint64, size int) ([]byte, error)
}

// RegionSource recovers the length of the mapping that starts at addr.
type RegionSource interface {
	RegionLength(addr uint64) (uint64, bool, error)
}
