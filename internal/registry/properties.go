package registry

import "github.com/ALEYI17/kgsltrace/internal/kgsl"

var propertyNames = map[uint32]string{
	kgsl.KGSL_PROP_DEVICE_INFO:     "KGSL_PROP_DEVICE_INFO",
	kgsl.KGSL_PROP_DEVICE_SHADOW:   "KGSL_PROP_DEVICE_SHADOW",
	kgsl.KGSL_PROP_DEVICE_POWER:    "KGSL_PROP_DEVICE_POWER",
	kgsl.KGSL_PROP_SHMEM:           "KGSL_PROP_SHMEM",
	kgsl.KGSL_PROP_SHMEM_APERTURES: "KGSL_PROP_SHMEM_APERTURES",
	kgsl.KGSL_PROP_MMU_ENABLE:      "KGSL_PROP_MMU_ENABLE",
	kgsl.KGSL_PROP_INTERRUPT_WAITS: "KGSL_PROP_INTERRUPT_WAITS",
	kgsl.KGSL_PROP_VERSION:         "KGSL_PROP_VERSION",
	kgsl.KGSL_PROP_GPU_RESET_STAT:  "KGSL_PROP_GPU_RESET_STAT",
}

// PropertyName names the property requested by IOCTL_KGSL_DEVICE_GETPROPERTY.
func PropertyName(index uint32) string {
	if name, ok := propertyNames[index]; ok {
		return name
	}
	return Unknown
}
