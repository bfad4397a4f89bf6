// Command marketengine is the root CLI binary: a thin Cobra shell around
// cmd/cli's command tree, talking to a running aggregator's admin surface.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/synnergy-network/marketengine/cmd/cli"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	rootCmd := &cobra.Command{Use: "marketengine"}
	rootCmd.PersistentFlags().String("admin-addr", "", "aggregator admin surface base URL (env MARKETENGINE_ADMIN_ADDR)")
	_ = viper.BindPFlag("ADMIN_ADDR", rootCmd.PersistentFlags().Lookup("admin-addr"))
	cli.RegisterRoutes(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		zap.L().Sugar().Error(err)
		os.Exit(1)
	}
}
