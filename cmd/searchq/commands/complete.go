package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/searchq/completion"
	"github.com/teranos/searchq/errors"
	"github.com/teranos/searchq/lsp"
)

// CompleteCmd prints completions for a query, as an editor would request them
var CompleteCmd = &cobra.Command{
	Use:   "complete <query>",
	Short: "Suggest completions for a search query",
	Long: `Suggest completions for the token under the cursor of a search query.

The cursor defaults to the end of the query. Dynamic suggestions (repositories,
files, symbols) come from the local match index; see 'searchq repo add'.

Examples:
  searchq complete 'repo:json'                 # repositories matching json
  searchq complete 'lang:go f' --column 9      # cursor inside the first token
  searchq complete 'file:conn' --format json   # machine-readable output`,
	Args: cobra.ExactArgs(1),
	RunE: runComplete,
}

var (
	completeColumn int
	completeFormat string
)

func init() {
	CompleteCmd.Flags().IntVarP(&completeColumn, "column", "c", 0, "1-based cursor column (default: end of query)")
	CompleteCmd.Flags().StringVarP(&completeFormat, "format", "f", FormatText, "Output format: text, json, yaml")
}

func runComplete(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, idx, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	list, err := complete(cmd.Context(), newService(cfg, idx), args[0], completeColumn)
	if err != nil {
		return err
	}
	return renderCompletions(cmd.OutOrStdout(), completeFormat, list)
}

// complete never returns a nil list so structured output is always an object
func complete(ctx context.Context, svc *lsp.Service, q string, column int) (*completion.CompletionList, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	list, err := svc.GetCompletions(ctx, lsp.CompletionRequest{Query: q, Column: column, Trigger: "manual"})
	if err != nil {
		return nil, errors.Wrap(err, "completion failed")
	}
	if list == nil {
		list = &completion.CompletionList{Column: len(q) + 1, Items: []completion.CompletionItem{}}
	}
	return list, nil
}

func renderCompletions(w io.Writer, format string, list *completion.CompletionList) error {
	if format != FormatText {
		return writeFormatted(w, format, list)
	}
	if len(list.Items) == 0 {
		fmt.Fprintln(w, "No completions")
		return nil
	}

	data := pterm.TableData{{"#", "Label", "Insert", "Kind", "Detail"}}
	for i, item := range list.Items {
		data = append(data, []string{strconv.Itoa(i + 1), item.Label, item.InsertText, string(item.Kind), item.Detail})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return errors.Wrap(err, "failed to render table")
	}
	fmt.Fprintf(w, "Replace from column %d\n%s\n", list.Column, table)
	return nil
}
