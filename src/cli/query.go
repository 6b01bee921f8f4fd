package cli

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"codeintel/src/internal/common"
	"codeintel/src/internal/types"
	"codeintel/src/server/backend"
)

var (
	manifestPath string
	repositoryID int64
	commit       string
	queryPath    string
	dumpID       int64
	line         int32
	character    int32
	cursorToken  string
	showStats    bool
)

func coordinatesFromFlags() backend.Coordinates {
	return backend.Coordinates{
		RepositoryID: repositoryID,
		Commit:       commit,
		Path:         queryPath,
		DumpID:       dumpID,
	}
}

func positionFromFlags() types.Position {
	return types.Position{Line: line, Character: character}
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&configPath, FlagConfig, "c", "", "Configuration file path (optional, defaults apply)")
	cmd.Flags().StringVarP(&manifestPath, FlagManifest, "m", "", "Dump manifest YAML file path (required)")
	cmd.Flags().Int64Var(&repositoryID, "repo", 0, "Repository id")
	cmd.Flags().StringVar(&commit, "commit", "", "Commit hash")
	cmd.Flags().StringVar(&queryPath, "path", "", "Repo-relative file path")
	cmd.Flags().Int64Var(&dumpID, "dump-id", 0, "Dump id (bypasses closest-dump selection when non-zero)")
	cmd.Flags().Int32Var(&line, "line", 0, "Zero-based line number")
	cmd.Flags().Int32Var(&character, "character", 0, "Zero-based character offset")
	cmd.Flags().BoolVar(&showStats, "stats", false, "Print cache/fan-out statistics for this query")
	_ = cmd.MarkFlagRequired(FlagManifest)
}

var queryCmd = &cobra.Command{
	Use:   CmdQuery,
	Short: "Query a code intelligence dump",
	Long:  `Run a definitions, references, or hover query against one or more indexed dumps.`,
	RunE:  func(cmd *cobra.Command, args []string) error { return cmd.Help() },
}

var queryDefinitionsCmd = &cobra.Command{
	Use:   "definitions",
	Short: "Find the definition(s) of the symbol at a position",
	RunE:  runQueryDefinitionsCmd,
}

var queryReferencesCmd = &cobra.Command{
	Use:   "references",
	Short: "Find references to the symbol at a position",
	RunE:  runQueryReferencesCmd,
}

var queryHoverCmd = &cobra.Command{
	Use:   "hover",
	Short: "Show hover text for the symbol at a position",
	RunE:  runQueryHoverCmd,
}

func init() {
	addQueryFlags(queryDefinitionsCmd)
	addQueryFlags(queryReferencesCmd)
	queryReferencesCmd.Flags().StringVar(&cursorToken, FlagCursor, "", "Pagination cursor returned by a previous query (optional)")
	addQueryFlags(queryHoverCmd)

	queryCmd.AddCommand(queryDefinitionsCmd)
	queryCmd.AddCommand(queryReferencesCmd)
	queryCmd.AddCommand(queryHoverCmd)
}

func runQueryDefinitionsCmd(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(configPath, manifestPath)
	if err != nil {
		return err
	}

	ctx, cancel := common.CreateContextWithDefault()
	defer cancel()

	requestID := uuid.New().String()
	common.CLILogger.Debug("request %s: definitions", requestID)

	locs, stats, err := rt.backend.Definitions(ctx, coordinatesFromFlags(), positionFromFlags())
	if err != nil {
		return err
	}
	printLocations(locs)
	printQueryStats(stats)
	return nil
}

func runQueryReferencesCmd(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(configPath, manifestPath)
	if err != nil {
		return err
	}

	ctx, cancel := common.CreateContextWithDefault()
	defer cancel()

	requestID := uuid.New().String()
	common.CLILogger.Debug("request %s: references", requestID)

	page, stats, err := rt.backend.References(ctx, coordinatesFromFlags(), positionFromFlags(), cursorToken)
	if err != nil {
		return err
	}
	printLocations(page.Locations)
	if page.Cursor != "" {
		common.CLILogger.Info("next page cursor: %s", page.Cursor)
	}
	printQueryStats(stats)
	return nil
}

func runQueryHoverCmd(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(configPath, manifestPath)
	if err != nil {
		return err
	}

	ctx, cancel := common.CreateContextWithDefault()
	defer cancel()

	requestID := uuid.New().String()
	common.CLILogger.Debug("request %s: hover", requestID)

	result, stats, err := rt.backend.Hover(ctx, coordinatesFromFlags(), positionFromFlags())
	if err != nil {
		return err
	}
	if result == nil {
		common.CLILogger.Info("no hover result")
	} else {
		common.CLILogger.Info("%s", result.Text)
	}
	printQueryStats(stats)
	return nil
}

func printLocations(locs []types.InternalLocation) {
	if len(locs) == 0 {
		common.CLILogger.Info("no results")
		return
	}
	for _, l := range locs {
		common.CLILogger.Info("dump=%d %s:%d:%d-%d:%d", l.Dump.ID, l.Path,
			l.Range.Start.Line, l.Range.Start.Character, l.Range.End.Line, l.Range.End.Character)
	}
}

// printQueryStats reports cache/fan-out counters, but only when --stats was
// passed; most invocations don't want the extra noise.
func printQueryStats(stats backend.Stats) {
	_, _ = common.WithEnabledGuard(showStats, func() (struct{}, error) {
		common.CLILogger.Info("cache hits=%d misses=%d dumpsOpened=%d remoteFanOuts=%d",
			stats.CacheHits, stats.CacheMisses, stats.DumpsOpened, stats.RemoteFanOuts)
		return struct{}{}, nil
	})
}
