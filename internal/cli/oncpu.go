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

const (
	defaultOnCPUDurationSeconds = 1
	defaultOnCPUFrequencyHz     = 99
	maxOnCPUFrequencyHz         = 1000
)

func newOnCPUCmd() *cobra.Command {
	var (
		pid             int
		durationSeconds int
		frequencyHz     int
		format          string
		output          string
		logLevel        string
	)

	cmd := &cobra.Command{
		Use:   "on-cpu",
		Short: "Sample on-CPU stacks for a running process",
		Long: `Attach a timer-driven perf_event sampler to every thread of the target
process, resolve each captured stack's kernel and user-space frames,
and emit folded-stack or pprof output.

Examples:
  riftrace on-cpu --pid 1234 --duration 10
  riftrace on-cpu --pid 1234 --frequency 49 --format pprof --output cpu.pb.gz`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pid <= 0 {
				return usageError("--pid is required and must be a positive process ID")
			}
			if durationSeconds < 0 {
				return usageError("--duration must not be negative")
			}
			if frequencyHz <= 0 || frequencyHz > maxOnCPUFrequencyHz {
				return usageError("--frequency must be between 1 and %d Hz", maxOnCPUFrequencyHz)
			}

			sink, closeSink, err := openSink(format, output, "samples", "count")
			if err != nil {
				return usageError("%v", err)
			}
			defer closeSink()

			logger := logging.New(logging.Config{Level: logLevel, Pretty: true, Output: os.Stderr})

			duration := time.Duration(durationSeconds) * time.Second
			session := collector.NewSession(pid, collector.OnCPU{FrequencyHz: frequencyHz}, duration, sink, logger)

			ctx, cancel := context.WithTimeout(cmd.Context(), duration+5*time.Second)
			defer cancel()

			stats, err := session.Run(ctx)
			if err != nil {
				return runtimeError(fmt.Errorf("on-cpu session failed: %w", err))
			}

			fmt.Fprintf(os.Stderr, "records read: %d, folded: %d, filtered: %d\n",
				stats.RecordsRead, stats.RecordsFolded, stats.RecordsFiltered)
			return nil
		},
	}

	cmd.Flags().IntVar(&pid, "pid", 0, "target process ID (required)")
	cmd.Flags().IntVar(&durationSeconds, "duration", defaultOnCPUDurationSeconds, "sampling duration in seconds")
	cmd.Flags().IntVar(&frequencyHz, "frequency", defaultOnCPUFrequencyHz, "sampling frequency in Hz")
	cmd.Flags().StringVar(&format, "format", formatFolded, "output format: folded, pprof")
	cmd.Flags().StringVar(&output, "output", "-", "output path, or - for stdout")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	_ = cmd.MarkFlagRequired("pid")

	return cmd
}
