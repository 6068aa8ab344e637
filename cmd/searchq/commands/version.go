package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/searchq/version"
)

// VersionCmd represents the version command
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show searchq version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		info := version.Get()

		if format != FormatText {
			return writeFormatted(cmd.OutOrStdout(), format, info)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, info.String())
		fmt.Fprintf(out, "Platform: %s\n", info.Platform)
		fmt.Fprintf(out, "Go: %s\n", info.GoVersion)
		return nil
	},
}

func init() {
	VersionCmd.Flags().StringP("format", "f", FormatText, "Output format: text, json, yaml")
}
