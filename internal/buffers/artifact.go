package buffers

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ALEYI17/kgsltrace/pkg/types"
)

const artifactFormat = "%04d-%08x.dat"

// ArtifactName is the file name of the n-th persisted buffer.
func ArtifactName(n int, deviceAddr uint32) string {
	return fmt.Sprintf(artifactFormat, n, deviceAddr)
}

// ParseArtifactName recovers the sequence number and device address from
// a persisted buffer's file name.
func ParseArtifactName(path string) (int, uint32, error) {
	var (
		n    int
		addr uint32
	)
	base := filepath.Base(path)
	if _, err := fmt.Sscanf(base, artifactFormat, &n, &addr); err != nil {
		return 0, 0, fmt.Errorf("not a buffer artifact %q: %w", base, err)
	}
	return n, addr, nil
}

// Persister writes the raw contents of tracked buffers to numbered files.
type Persister struct {
	dir    string
	count  int
	table  *Table
	mem    types.Memory
	logger *zap.Logger
}

func NewPersister(dir string, table *Table, mem types.Memory, logger *zap.Logger) *Persister {
	return &Persister{
		dir:    dir,
		table:  table,
		mem:    mem,
		logger: logger,
	}
}

// Persist dumps the buffer holding deviceAddr and returns the file written.
// It returns "" without error when the address is not tracked. Sequence
// numbers are only consumed by files that were written.
func (p *Persister) Persist(deviceAddr uint32) (string, error) {
	buf, ok := p.table.Find(AnyHost, deviceAddr)
	if !ok {
		return "", nil
	}

	data, err := p.mem.ReadAt(buf.HostAddr, int(buf.Length))
	if err != nil {
		return "", fmt.Errorf("reading buffer %08x: %w", buf.DeviceAddr, err)
	}

	path := filepath.Join(p.dir, ArtifactName(p.count, buf.DeviceAddr))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	p.count++
	p.logger.Debug("Persisted buffer", zap.String("path", path), zap.Int("bytes", len(data)))
	return path, nil
}

func (p *Persister) Count() int {
	return p.count
}
