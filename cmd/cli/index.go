// Package cli provides the Cobra command tree for inspecting a running
// engine instance via its HTTP admin surface, mirroring the teacher's
// RegisterRoutes aggregation pattern.
package cli

import "github.com/spf13/cobra"

// RegisterRoutes attaches every command group defined in the cli package
// to the provided root command.
func RegisterRoutes(root *cobra.Command) {
	root.AddCommand(
		PoolsCmd,
		TokensCmd,
		OracleCmd,
		WatchersCmd,
	)
}
