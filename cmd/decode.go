package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ALEYI17/kgsltrace/internal/buffers"
	"github.com/ALEYI17/kgsltrace/internal/framer"
	"github.com/ALEYI17/kgsltrace/internal/hexdump"
	"github.com/ALEYI17/kgsltrace/pkg/logutil"
)

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode FILE...",
		Short: "Frame and dump persisted 2-D command buffers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logutil.GetLogger()
			var err error
			for _, path := range args {
				if derr := decodeArtifact(cmd.OutOrStdout(), path); derr != nil {
					logger.Warn("Failed to decode buffer", zap.String("path", path), zap.Error(derr))
					err = multierr.Append(err, derr)
				}
			}
			return err
		},
	}
}

// decodeArtifact re-runs the 2-D framing over a persisted buffer, with
// addresses shown in the device's address space.
func decodeArtifact(w io.Writer, path string) error {
	n, deviceAddr, err := buffers.ParseArtifactName(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s: buffer %d, gpuaddr %08x, %d bytes\n", filepath.Base(path), n, deviceAddr, len(data))

	f := framer.FrameSubmission(data, true)
	if f.InvalidContext {
		fmt.Fprintf(w, "\t\tWARNING: INVALID CONTEXT!\n")
	}
	for _, r := range f.Regions {
		if r.Label != "" {
			fmt.Fprintf(w, "\t\t%s:\n", r.Label)
		}
		end := min(r.End(), len(data))
		if err := hexdump.Dump(w, uint64(deviceAddr)+uint64(r.Offset), data[r.Offset:end]); err != nil {
			return err
		}
	}
	if f.Overrun {
		fmt.Fprintf(w, "\t\tWARNING: cmd length %03x runs past the end of the file\n", f.CmdDWords)
	}
	if f.Truncated {
		fmt.Fprintf(w, "\t\tWARNING: truncated cmd header\n")
	}
	return nil
}
