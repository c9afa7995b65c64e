package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/riftrace/riftrace/internal/collector"
	"github.com/riftrace/riftrace/internal/logging"
)

const defaultOffCPUDurationSeconds = 5

func newOffCPUCmd() *cobra.Command {
	var (
		pid             int
		durationSeconds int
		format          string
		output          string
		logLevel        string
	)

	cmd := &cobra.Command{
		Use:   "off-cpu",
		Short: "Sample off-CPU (blocked) stacks for a running process",
		Long: `Attach a sched_switch tracepoint sampler system-wide, record how long
the target process's threads spend blocked between switch-out and
switch-in, resolve each captured stack, and emit folded-stack or pprof
output weighted by time blocked.

Examples:
  riftrace off-cpu --pid 1234 --duration 10
  riftrace off-cpu --pid 1234 --format pprof --output blocked.pb.gz`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pid <= 0 {
				return usageError("--pid is required and must be a positive process ID")
			}
			if durationSeconds < 0 {
				return usageError("--duration must not be negative")
			}

			sink, closeSink, err := openSink(format, output, "off-cpu", "nanoseconds")
			if err != nil {
				return usageError("%v", err)
			}
			defer closeSink()

			logger := logging.New(logging.Config{Level: logLevel, Pretty: true, Output: os.Stderr})

			duration := time.Duration(durationSeconds) * time.Second
			session := collector.NewSession(pid, collector.OffCPU{}, duration, sink, logger)

			ctx, cancel := context.WithTimeout(cmd.Context(), duration+5*time.Second)
			defer cancel()

			stats, err := session.Run(ctx)
			if err != nil {
				return runtimeError(fmt.Errorf("off-cpu session failed: %w", err))
			}

			fmt.Fprintf(os.Stderr, "records read: %d, folded: %d, filtered: %d\n",
				stats.RecordsRead, stats.RecordsFolded, stats.RecordsFiltered)
			return nil
		},
	}

	cmd.Flags().IntVar(&pid, "pid", 0, "target process ID (required)")
	cmd.Flags().IntVar(&durationSeconds, "duration", defaultOffCPUDurationSeconds, "sampling duration in seconds")
	cmd.Flags().StringVar(&format, "format", formatFolded, "output format: folded, pprof")
	cmd.Flags().StringVar(&output, "output", "-", "output path, or - for stdout")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	_ = cmd.MarkFlagRequired("pid")

	return cmd
}
