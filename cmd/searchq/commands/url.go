package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/searchq/errors"
	"github.com/teranos/searchq/logger"
	"github.com/teranos/searchq/repoinfo"
)

// URLCmd prints the Sourcegraph URL of a local file
var URLCmd = &cobra.Command{
	Use:   "url <file>",
	Short: "Print the Sourcegraph URL of a local file",
	Long: `Print a link to lines of a local file on the configured Sourcegraph
instance (sourcegraph.url), using the branch's upstream remote or the first
remote when no upstream is set.

Examples:
  searchq url server/server.go
  searchq url server/server.go --start 10 --end 20
  searchq url main.go --exec-git       # use the git binary instead of go-git`,
	Args: cobra.ExactArgs(1),
	RunE: runURL,
}

var (
	urlStart   int
	urlEnd     int
	urlExecGit bool
)

func init() {
	URLCmd.Flags().IntVar(&urlStart, "start", 1, "First line (1-based)")
	URLCmd.Flags().IntVar(&urlEnd, "end", 0, "Last line (default: start)")
	URLCmd.Flags().BoolVar(&urlExecGit, "exec-git", false, "Run the git binary instead of reading the repository directly")
}

func runURL(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if urlStart < 1 {
		return errors.NewInvalidRequestError("--start must be at least 1")
	}
	end := urlEnd
	if end == 0 {
		end = urlStart
	}
	if end < urlStart {
		return errors.NewInvalidRequestError("--end %d is before --start %d", end, urlStart)
	}

	var git repoinfo.GitHelpers = repoinfo.GoGit{}
	if urlExecGit {
		git = repoinfo.ExecGit{Logger: logger.Named("git")}
	}

	info, err := repoinfo.RepoInfo(cmd.Context(), args[0], git)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(),
		repoinfo.FileURL(cfg.Sourcegraph.URL, info.RemoteURL, info.Branch, info.FileRelative, urlStart, end))
	return nil
}
