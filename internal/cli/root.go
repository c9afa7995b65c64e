// Package cli wires riftrace's two subcommands (on-cpu, off-cpu) onto a
// cobra root command, following the teacher's cmd/<binary> -> internal/cli
// split.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "riftrace",
	Short: "Whole-system CPU profiler built on eBPF",
	Long: `riftrace samples a target process's on-CPU and off-CPU stacks using
eBPF, resolves kernel and user-space symbols, and emits folded-stack or
pprof-compatible output suitable for flame graphs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(newOnCPUCmd())
	rootCmd.AddCommand(newOffCPUCmd())
}

// Execute runs the root command and returns whatever error the selected
// subcommand produced, including *ExitError values that set a non-default
// process exit code.
func Execute() error {
	return rootCmd.Execute()
}
