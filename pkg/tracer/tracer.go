// Package tracer sits between an application and the open/ioctl entry
// points of the KGSL and PMEM drivers. Every call is decoded to the trace
// output before and after it is forwarded; a handful of requests also
// update the table of GPU buffers whose contents get dumped on submission.
//
// A Tracer is not safe for concurrent use. The traced driver usage issues
// its calls from one thread and the tracer relies on that.
package tracer

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/ALEYI17/kgsltrace/internal/buffers"
	"github.com/ALEYI17/kgsltrace/internal/classifier"
	"github.com/ALEYI17/kgsltrace/internal/config"
	"github.com/ALEYI17/kgsltrace/internal/oskernel"
	"github.com/ALEYI17/kgsltrace/internal/registry"
	"github.com/ALEYI17/kgsltrace/pkg/types"
)

type Tracer struct {
	out    io.Writer
	logger *zap.Logger

	registry   *registry.Registry
	classifier *classifier.Classifier
	buffers    *buffers.Table
	persister  *buffers.Persister

	mem        types.Memory
	regions    types.RegionSource
	collectors []types.Collectors

	resolve    func() (types.Kernel, error)
	kernel     types.Kernel
	kernelOnce sync.Once

	workingSize uint32
	dumpDir     string
	persist     bool
}

type Option func(*Tracer)

// WithKernel bypasses lazy resolution of the real entry points.
func WithKernel(k types.Kernel) Option {
	return func(t *Tracer) { t.kernel = k }
}

// WithResolver replaces the lookup of the real entry points performed on
// first use.
func WithResolver(resolve func() (types.Kernel, error)) Option {
	return func(t *Tracer) { t.resolve = resolve }
}

func WithOutput(w io.Writer) Option {
	return func(t *Tracer) { t.out = w }
}

func WithLogger(l *zap.Logger) Option {
	return func(t *Tracer) { t.logger = l }
}

// WithRegions sets the source used to recover allocation lengths the
// driver was not told about.
func WithRegions(r types.RegionSource) Option {
	return func(t *Tracer) { t.regions = r }
}

func WithWorkingBufferSize(size uint32) Option {
	return func(t *Tracer) { t.workingSize = size }
}

// WithBufferDumps persists every framed 2-D submission into dir.
func WithBufferDumps(dir string) Option {
	return func(t *Tracer) {
		t.dumpDir = dir
		t.persist = true
	}
}

func WithCollectors(c ...types.Collectors) Option {
	return func(t *Tracer) { t.collectors = append(t.collectors, c...) }
}

// New builds a tracer reading the traced process' memory through mem.
func New(mem types.Memory, opts ...Option) *Tracer {
	t := &Tracer{
		out:         os.Stdout,
		logger:      zap.NewNop(),
		registry:    registry.New(),
		mem:         mem,
		resolve:     oskernel.Resolve,
		workingSize: config.DefaultWorkingBufferSize,
	}
	for _, opt := range opts {
		opt(t)
	}

	t.classifier = classifier.New(t.out, t.logger)
	t.buffers = buffers.NewTable(t.workingSize, t.logger)
	if t.persist {
		t.persister = buffers.NewPersister(t.dumpDir, t.buffers, t.mem, t.logger)
	}
	return t
}

// forward returns the real entry points, resolving them on first use. The
// tracer cannot do anything useful without them, so failure is fatal.
func (t *Tracer) forward() types.Kernel {
	t.kernelOnce.Do(func() {
		if t.kernel != nil {
			return
		}
		k, err := t.resolve()
		if err != nil {
			t.logger.Fatal("Failed to resolve open/ioctl", zap.Error(err))
			return
		}
		t.kernel = k
	})
	return t.kernel
}

// Open forwards to the real open, passing mode only along with O_CREAT,
// and binds the returned descriptor when path is a known device.
func (t *Tracer) Open(path string, flags int, mode uint32) (int, error) {
	if flags&unix.O_CREAT == 0 {
		mode = 0
	}
	fd, err := t.forward().Open(path, flags, mode)
	if err != nil || fd == -1 {
		return fd, err
	}

	if slot, ok := t.classifier.Opened(path, fd); ok {
		t.emit(types.DeviceEvent{Path: path, Fd: fd, Name: slot.Name, Bound: true})
	} else if strings.Contains(path, classifier.DeviceDir) {
		t.emit(types.DeviceEvent{Path: path, Fd: fd})
	}
	return fd, nil
}

// Ioctl traces and forwards one control request. The return value and
// error of the real call are handed back untouched.
func (t *Tracer) Ioctl(fd int, request uint, arg uintptr) (int, error) {
	slot, ok := t.classifier.Classify(fd)
	if !ok {
		return t.passThrough(fd, request, arg)
	}

	c := &call{
		fd:      fd,
		slot:    slot,
		request: request,
		arg:     uint64(arg),
		name:    t.registry.NameFor(slot.Family, request),
	}

	t.traceRequest(c, types.DIR_WRITE)
	if hook, ok := t.preHook(c); ok {
		hook(t, c)
	}

	c.ret, c.err = t.forward().Ioctl(fd, request, arg)

	t.traceRequest(c, types.DIR_READ)
	if hook, ok := t.postHook(c); ok {
		hook(t, c)
	}

	t.emit(types.RequestEvent{
		Fd:      fd,
		Family:  slot.Family,
		Name:    c.name,
		Request: request,
		Ret:     c.ret,
		Err:     c.err,
	})
	return c.ret, c.err
}

func (t *Tracer) passThrough(fd int, request uint, arg uintptr) (int, error) {
	t.printf("> [%4d]         : %s (%08x)\n", fd, registry.Unknown, request)
	ret, err := t.forward().Ioctl(fd, request, arg)
	t.printf("< [%4d]         : %s (%08x) => %d\n", fd, registry.Unknown, request, ret)

	t.emit(types.RequestEvent{Fd: fd, Name: registry.Unknown, Request: request, Ret: ret, Err: err})
	return ret, err
}

// Buffers exposes the buffer table.
func (t *Tracer) Buffers() *buffers.Table {
	return t.buffers
}

// Close releases the memory and region sources when they hold resources.
func (t *Tracer) Close() error {
	var err error
	if c, ok := t.mem.(io.Closer); ok {
		err = multierr.Append(err, c.Close())
	}
	if c, ok := t.regions.(io.Closer); ok {
		err = multierr.Append(err, c.Close())
	}
	return err
}

func (t *Tracer) emit(ev any) {
	for _, c := range t.collectors {
		c.Update(ev)
	}
}

func (t *Tracer) printf(format string, args ...any) {
	fmt.Fprintf(t.out, format, args...)
}
