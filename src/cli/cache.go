package cli

import (
	"github.com/spf13/cobra"

	"codeintel/src/config"
	"codeintel/src/internal/common"
)

var cacheCmd = &cobra.Command{
	Use:   CmdCache,
	Short: "Inspect the process-local dump caches",
	Long: `Report on the connection, document, and result-chunk caches a query
run would use. The caches are in-memory and scoped to one process; there is
no persistent cache to warm or corrupt across runs.`,
	RunE: func(cmd *cobra.Command, args []string) error { return cmd.Help() },
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show configured cache capacities",
	RunE:  runCacheStatsCmd,
}

var cacheClearCmd = &cobra.Command{
	Use:   CmdCacheClear,
	Short: "Clear the in-memory caches",
	Long: `Caches are process-local and already empty at the start of every
invocation; this command exists for symmetry with cache stats and reports
that there is nothing to clear.`,
	RunE: runCacheClearCmd,
}

func init() {
	cacheStatsCmd.Flags().StringVarP(&configPath, FlagConfig, "c", "", "Configuration file path (optional, defaults apply)")
	cacheClearCmd.Flags().StringVarP(&configPath, FlagConfig, "c", "", "Configuration file path (optional, defaults apply)")

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func resolveConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		return config.GetDefaultConfig(), nil
	}
	return config.LoadConfig(configPath)
}

func runCacheStatsCmd(cmd *cobra.Command, args []string) error {
	c, err := resolveConfig(configPath)
	if err != nil {
		return err
	}
	common.CLILogger.Info("connections capacity: %d", c.Caches.Connections)
	common.CLILogger.Info("documents capacity: %d", c.Caches.Documents)
	common.CLILogger.Info("result chunks capacity: %d", c.Caches.ResultChunks)
	common.CLILogger.Info("dump directory: %s", c.Storage.DumpDir)
	return nil
}

func runCacheClearCmd(cmd *cobra.Command, args []string) error {
	common.CLILogger.Info("caches are in-memory and process-local; nothing persists between runs")
	return nil
}
