package cli

import (
	"github.com/spf13/cobra"

	"codeintel/src/internal/common"
	versionpkg "codeintel/src/internal/version"
)

// CLI Constants
const (
	CmdQuery      = "query"
	CmdCache      = "cache"
	CmdCacheClear = "clear"
	CmdVersion    = "version"
	FlagConfig    = "config"
	FlagManifest  = "manifest"
	FlagCursor    = "cursor"
	FlagVerbose   = "verbose"
)

// CLI Variables
var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "codeintel",
	Short: "Code intelligence query engine over precomputed index dumps",
	Long: `codeintel answers definitions, references, and hover queries against
precomputed code-intelligence dumps (one per repository/commit/root), the
way a language server's workspace index would, but served directly from
disk instead of a running compiler frontend.

QUICK START:
  codeintel query definitions --manifest dumps.yaml --repo 1 --path a.go --line 10 --character 4
  codeintel query references  --manifest dumps.yaml --repo 1 --path a.go --line 10 --character 4
  codeintel query hover       --manifest dumps.yaml --repo 1 --path a.go --line 10 --character 4

Use 'codeintel <command> --help' for detailed command information.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   CmdVersion,
	Short: "Show version information",
	RunE:  runVersionCmd,
}

func init() {
	versionCmd.Flags().BoolVarP(&verbose, FlagVerbose, "v", false, "Show detailed build information")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)
}

func runVersionCmd(cmd *cobra.Command, args []string) error {
	if verbose {
		common.CLILogger.Info("%s", versionpkg.GetFullVersionInfo())
		return nil
	}
	common.CLILogger.Info("codeintel %s", versionpkg.GetVersion())
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
