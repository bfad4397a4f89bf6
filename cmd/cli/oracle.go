// cmd/cli/oracle.go – Cobra CLI glue for the price oracle (C7).
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var oracleCmd = &cobra.Command{
	Use:   "oracle",
	Short: "Inspect derived USD prices",
}

var oraclePriceCmd = &cobra.Command{
	Use:   "price <chainID> <address>",
	Short: "Show the oracle's derived USD price for a token",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var out map[string]interface{}
		path := fmt.Sprintf("/tokens/%s/%s", args[0], args[1])
		if err := getJSON(path, &out); err != nil {
			zap.L().Sugar().Errorw("oracle price lookup failed", "chain", args[0], "address", args[1], "err", err)
			return err
		}
		if has, _ := out["has_usd_price"].(bool); !has {
			fmt.Println("no price derived yet for this token")
			return nil
		}
		fmt.Printf("%v USD\n", out["usd_price"])
		return nil
	},
}

var oracleStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate engine statistics, including anchor count",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var out map[string]interface{}
		if err := getJSON("/stats", &out); err != nil {
			zap.L().Sugar().Errorw("oracle stats failed", "err", err)
			return err
		}
		enc, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(enc))
		return nil
	},
}

func init() {
	oracleCmd.AddCommand(oraclePriceCmd, oracleStatsCmd)
}

// OracleCmd is exported for RegisterRoutes.
var OracleCmd = oracleCmd
