package oskernel

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// ProcMemory reads a process' address space through <procRoot>/<pid>/mem.
type ProcMemory struct {
	f *os.File
}

// OpenProcMemory opens the memory of pid; pid 0 means the calling process.
func OpenProcMemory(procRoot string, pid int) (*ProcMemory, error) {
	f, err := os.Open(filepath.Join(procRoot, pidDir(pid), "mem"))
	if err != nil {
		return nil, err
	}
	return &ProcMemory{f: f}, nil
}

func (m *ProcMemory) ReadAt(addr uint64, size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("negative read size %d", size)
	}
	buf := make([]byte, size)
	n, err := m.f.ReadAt(buf, int64(addr))
	if err != nil && !(errors.Is(err, io.EOF) && n == size) {
		return buf[:n], fmt.Errorf("reading %d bytes at %#x: %w", size, addr, err)
	}
	return buf, nil
}

func (m *ProcMemory) Close() error {
	return m.f.Close()
}

func pidDir(pid int) string {
	if pid == 0 {
		return "self"
	}
	return strconv.Itoa(pid)
}
