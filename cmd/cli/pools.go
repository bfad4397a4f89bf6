// cmd/cli/pools.go – Cobra CLI glue for the aggregator's pool index.
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var poolsCmd = &cobra.Command{
	Use:   "pools",
	Short: "Inspect pools tracked by the aggregator store",
}

var poolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active pools, optionally filtered by chain id",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		chain, _ := cmd.Flags().GetUint64("chain")
		path := "/pools"
		if chain != 0 {
			path = fmt.Sprintf("/pools?chain=%d", chain)
		}
		var out []map[string]interface{}
		if err := getJSON(path, &out); err != nil {
			zap.L().Sugar().Errorw("list pools failed", "err", err)
			return err
		}
		enc, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(enc))
		return nil
	},
}

var poolsGetCmd = &cobra.Command{
	Use:   "get <poolID>",
	Short: "Fetch a single pool by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var out map[string]interface{}
		if err := getJSON("/pools/"+args[0], &out); err != nil {
			zap.L().Sugar().Errorw("get pool failed", "pool", args[0], "err", err)
			return err
		}
		enc, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(enc))
		return nil
	},
}

func init() {
	poolsListCmd.Flags().Uint64("chain", 0, "restrict listing to this chain id")
	poolsCmd.AddCommand(poolsListCmd, poolsGetCmd)
}

// PoolsCmd is exported for RegisterRoutes.
var PoolsCmd = poolsCmd
