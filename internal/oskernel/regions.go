package oskernel

import (
	"os"

	"github.com/prometheus/procfs"
)

// DefaultProcRoot is where procfs is mounted.
const DefaultProcRoot = "/proc"

// MapsRegions answers length queries from /proc/<pid>/maps.
type MapsRegions struct {
	fs  procfs.FS
	pid int
}

// NewMapsRegions reads the maps of pid; pid 0 means the calling process.
func NewMapsRegions(procRoot string, pid int) (*MapsRegions, error) {
	fs, err := procfs.NewFS(procRoot)
	if err != nil {
		return nil, err
	}
	if pid == 0 {
		pid = os.Getpid()
	}
	return &MapsRegions{fs: fs, pid: pid}, nil
}

// RegionLength scans the mappings linearly for one starting at addr. The
// maps file is re-read on every call since the traced process keeps
// mapping memory.
func (r *MapsRegions) RegionLength(addr uint64) (uint64, bool, error) {
	proc, err := r.fs.Proc(r.pid)
	if err != nil {
		return 0, false, err
	}
	maps, err := proc.ProcMaps()
	if err != nil {
		return 0, false, err
	}
	for _, m := range maps {
		if uint64(m.StartAddr) == addr {
			return uint64(m.EndAddr - m.StartAddr), true, nil
		}
	}
	return 0, false, nil
}
