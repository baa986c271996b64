package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ALEYI17/kgsltrace/internal/config"
	"github.com/ALEYI17/kgsltrace/pkg/logutil"
)

func newRootCmd(v *viper.Viper) *cobra.Command {
	var cfg *config.Config

	root := &cobra.Command{
		Use:           "kgsltrace",
		Short:         "Trace and decode KGSL/PMEM driver requests",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.LoadConfig(v)
			if err != nil {
				return err
			}
			if err := logutil.InitLogger(c.Debug); err != nil {
				return err
			}
			cfg = c
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file")
	flags.String("dump-dir", ".", "directory for persisted buffer dumps")
	flags.Bool("persist-buffers", true, "persist framed 2-D submissions")
	flags.Uint32("working-buffer-size", config.DefaultWorkingBufferSize, "the one allocation size that is tracked")
	flags.Bool("debug", false, "development logging")
	flags.Int("pid", 0, "process whose memory is read, 0 for self")

	for key, flag := range map[string]string{
		"config":              "config",
		"dump_dir":            "dump-dir",
		"persist_buffers":     "persist-buffers",
		"working_buffer_size": "working-buffer-size",
		"debug":               "debug",
		"pid":                 "pid",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	cfgFn := func() *config.Config { return cfg }
	root.AddCommand(
		newDecodeCmd(),
		newRequestsCmd(),
		newProbeCmd(cfgFn),
	)
	return root
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigch := make(chan os.Signal, 1)
		signal.Notify(sigch, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigch
		logutil.GetLogger().Info("Received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	err := newRootCmd(config.New()).ExecuteContext(ctx)

	logger := logutil.GetLogger()
	if err != nil {
		logger.Error("Command failed", zap.Error(err))
		_ = logger.Sync()
		fmt.Fprintln(os.Stderr, "kgsltrace:", err)
		os.Exit(1)
	}
	_ = logger.Sync()
}
