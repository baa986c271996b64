package types

// Direction bits of an ioctl request code, as laid out by _IOC.
const (
	DIR_NONE  = 0
	DIR_WRITE = 1
	DIR_READ  = 2
)

// Device families known to the tracer.
const (
	FamilyKGSL3D = "kgsl-3d"
	FamilyKGSL2D = "kgsl-2d"
	FamilyPMEM   = "pmem-gpu"
)
