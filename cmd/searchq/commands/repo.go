package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/searchq/errors"
	"github.com/teranos/searchq/ingest"
	"github.com/teranos/searchq/logger"
)

// RepoCmd manages the repositories in the match index
var RepoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Manage indexed repositories",
	Long: `Manage the repositories dynamic completions are drawn from.

Indexing records the repository name (from the origin remote), every file
path at HEAD and top-level Go declarations as symbols.

Examples:
  searchq repo add .                                   # index the current repository
  searchq repo add https://github.com/sourcegraph/jsonrpc2
  searchq repo ls
  searchq repo rm github.com/sourcegraph/jsonrpc2`,
}

var repoAddCmd = &cobra.Command{
	Use:   "add <path|url>...",
	Short: "Index local repositories or clone URLs",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRepoAdd,
}

var repoLsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List indexed repositories",
	Args:    cobra.NoArgs,
	RunE:    runRepoLs,
}

var repoRmCmd = &cobra.Command{
	Use:     "rm <name>...",
	Aliases: []string{"remove"},
	Short:   "Remove repositories from the index",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runRepoRm,
}

var (
	repoName       string
	repoNoSymbols  bool
	repoListFormat string
)

func init() {
	repoAddCmd.Flags().StringVar(&repoName, "name", "", "Repository name (default: derived from the origin remote)")
	repoAddCmd.Flags().BoolVar(&repoNoSymbols, "no-symbols", false, "Skip Go symbol extraction")
	repoLsCmd.Flags().StringVarP(&repoListFormat, "format", "f", FormatText, "Output format: text, json, yaml")

	RepoCmd.AddCommand(repoAddCmd)
	RepoCmd.AddCommand(repoLsCmd)
	RepoCmd.AddCommand(repoRmCmd)
}

func runRepoAdd(cmd *cobra.Command, args []string) error {
	if repoName != "" && len(args) > 1 {
		return errors.NewInvalidRequestError("--name applies to a single repository")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, idx, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	log := logger.Named("ingest")
	processor := ingest.NewProcessor(idx, log)
	processor.Name = repoName
	processor.SkipSymbols = repoNoSymbols

	for _, input := range args {
		spinner, _ := pterm.DefaultSpinner.Start(fmt.Sprintf("Indexing %s...", input))

		src, err := ingest.ResolveRepository(cmd.Context(), input, log)
		if err != nil {
			spinner.Fail(err.Error())
			return err
		}
		result, err := processor.Ingest(cmd.Context(), src.LocalPath)
		src.Cleanup()
		if err != nil {
			spinner.Fail(err.Error())
			return err
		}

		spinner.Success(fmt.Sprintf("%s: %d files, %d symbols (%s)",
			result.Repository, result.Files, result.Symbols,
			result.EndTime.Sub(result.StartTime).Round(time.Millisecond)))
	}
	return nil
}

func runRepoLs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, idx, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	repos, err := idx.Repositories(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if repoListFormat != FormatText {
		return writeFormatted(out, repoListFormat, repos)
	}
	if len(repos) == 0 {
		fmt.Fprintln(out, "No repositories indexed. Add one with 'searchq repo add <path|url>'.")
		return nil
	}

	data := pterm.TableData{{"ID", "Name", "Branch", "Remote"}}
	for _, r := range repos {
		data = append(data, []string{strconv.FormatInt(r.ID, 10), r.Name, r.DefaultBranch, r.RemoteURL})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return errors.Wrap(err, "failed to render table")
	}
	fmt.Fprintln(out, table)
	return nil
}

func runRepoRm(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, idx, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	for _, name := range args {
		if err := idx.RemoveRepository(cmd.Context(), name); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", name)
	}
	return nil
}
