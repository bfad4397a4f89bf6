// cmd/cli/tokens.go – Cobra CLI glue for the token registry (C2).
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Inspect tokens known to the registry",
}

var tokensGetCmd = &cobra.Command{
	Use:   "get <chainID> <address>",
	Short: "Fetch token metadata and its latest USD price if known",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var out map[string]interface{}
		path := fmt.Sprintf("/tokens/%s/%s", args[0], args[1])
		if err := getJSON(path, &out); err != nil {
			zap.L().Sugar().Errorw("get token failed", "chain", args[0], "address", args[1], "err", err)
			return err
		}
		enc, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(enc))
		return nil
	},
}

func init() {
	tokensCmd.AddCommand(tokensGetCmd)
}

// TokensCmd is exported for RegisterRoutes.
var TokensCmd = tokensCmd
