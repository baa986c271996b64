package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/ALEYI17/kgsltrace/internal/classifier"
	"github.com/ALEYI17/kgsltrace/internal/collector/aggregator"
	"github.com/ALEYI17/kgsltrace/internal/config"
	"github.com/ALEYI17/kgsltrace/internal/oskernel"
	"github.com/ALEYI17/kgsltrace/pkg/logutil"
	"github.com/ALEYI17/kgsltrace/pkg/tracer"
)

func newProbeCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Open the known device nodes through the tracer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return probe(cmd, cfg())
		},
	}
}

func probe(cmd *cobra.Command, cfg *config.Config) error {
	logger := logutil.GetLogger()

	mem, err := oskernel.OpenProcMemory(oskernel.DefaultProcRoot, cfg.Pid)
	if err != nil {
		return err
	}
	regions, err := oskernel.NewMapsRegions(oskernel.DefaultProcRoot, cfg.Pid)
	if err != nil {
		_ = mem.Close()
		return err
	}

	agg := aggregator.NewRequestAggregator()
	opts := []tracer.Option{
		tracer.WithOutput(cmd.OutOrStdout()),
		tracer.WithLogger(logger),
		tracer.WithRegions(regions),
		tracer.WithWorkingBufferSize(cfg.WorkingBufferSize),
		tracer.WithCollectors(agg),
	}
	if cfg.PersistBuffers {
		opts = append(opts, tracer.WithBufferDumps(cfg.DumpDir))
	}
	t := tracer.New(mem, opts...)
	defer t.Close()

	var fds []int
	for _, dev := range classifier.KnownDevices() {
		if cmd.Context().Err() != nil {
			break
		}
		fd, err := t.Open(dev.Path, unix.O_RDWR, 0)
		if err != nil {
			logger.Warn("Failed to open device", zap.String("path", dev.Path), zap.Error(err))
			continue
		}
		fds = append(fds, fd)
	}
	for _, fd := range fds {
		_ = unix.Close(fd)
	}

	aggregator.LogSummary(logger, agg.Flush())
	return nil
}
