package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/searchq/errors"
	"github.com/teranos/searchq/lsp"
)

// CheckCmd reports problems in a query without running it
var CheckCmd = &cobra.Command{
	Use:   "check <query>",
	Short: "Report problems in a search query",
	Long: `Scan a search query and report unknown filters, empty or invalid values,
and other problems an editor would underline.

Exits non-zero when any error-level problem is found.

Examples:
  searchq check 'lang:go repo:^github\.com/sourcegraph'
  searchq check 'langg:go' --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

var checkFormat string

func init() {
	CheckCmd.Flags().StringVarP(&checkFormat, "format", "f", FormatText, "Output format: text, json, yaml")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// Diagnostics never fetch, so no index is opened
	svc := newService(cfg, nil)

	resp, err := svc.Parse(cmd.Context(), args[0])
	if err != nil {
		return errors.Wrap(err, "check failed")
	}

	if checkFormat != FormatText {
		if err := writeFormatted(cmd.OutOrStdout(), checkFormat, resp.Diagnostics); err != nil {
			return err
		}
	} else {
		renderDiagnostics(cmd.OutOrStdout(), args[0], resp.Diagnostics)
	}

	for _, d := range resp.Diagnostics {
		if d.Severity == lsp.SeverityError {
			cmd.SilenceUsage = true
			return errors.New("query has problems")
		}
	}
	return nil
}

func renderDiagnostics(w io.Writer, q string, diags []lsp.Diagnostic) {
	if len(diags) == 0 {
		fmt.Fprintln(w, pterm.Success.Sprint("No problems found"))
		return
	}
	for _, d := range diags {
		var prefix string
		switch d.Severity {
		case lsp.SeverityError:
			prefix = pterm.Error.Sprint(d.Message)
		case lsp.SeverityWarning:
			prefix = pterm.Warning.Sprint(d.Message)
		default:
			prefix = pterm.Info.Sprint(d.Message)
		}
		fmt.Fprintln(w, strings.TrimRight(prefix, "\n"))
		fmt.Fprintf(w, "  %s\n  %s%s\n", q, strings.Repeat(" ", d.Range.Start), strings.Repeat("^", max(1, d.Range.Len())))
		if len(d.Suggestions) > 0 {
			fmt.Fprintf(w, "  did you mean: %s\n", strings.Join(d.Suggestions, ", "))
		}
	}
}
