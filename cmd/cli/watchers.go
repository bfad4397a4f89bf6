// cmd/cli/watchers.go – Cobra CLI glue for per-chain watcher health (C5).
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchersCmd = &cobra.Command{
	Use:   "watchers",
	Short: "Show per-chain watcher connection health",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var out []map[string]interface{}
		if err := getJSON("/watchers", &out); err != nil {
			zap.L().Sugar().Errorw("list watchers failed", "err", err)
			return err
		}
		enc, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(enc))
		return nil
	},
}

// WatchersCmd is exported for RegisterRoutes.
var WatchersCmd = watchersCmd
