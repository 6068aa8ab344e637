package commands

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/teranos/searchq/am"
	"github.com/teranos/searchq/errors"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Manage searchq configuration",
	Long: `am — Manage searchq configuration ("I am")

Configuration sources (later overrides earlier):
1. Default values
2. System config (/etc/searchq/config.toml)
3. User config (~/.searchq/am.toml)
4. Project config (./am.toml, searched up directories)
5. Environment variables (SEARCHQ_* prefix, also read from ./.env)

Examples:
  searchq am show                          # Show current configuration
  searchq am show --format json            # Show configuration as JSON
  searchq am get completion.globbing       # Get a specific value
  searchq am set completion.globbing true  # Write a value to ~/.searchq/am.toml
  searchq am where                         # Show where each value comes from`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., database.path, completion.globbing)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user config file, or in the file given by
--file. Values are written as booleans or numbers when they parse as one.
The previous file is kept as <file>.back1 (up to three backups).`,
	Args: cobra.ExactArgs(2),
	RunE: runAmSet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	Args:  cobra.NoArgs,
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where configuration is loaded from",
	Args:  cobra.NoArgs,
	RunE:  runAmWhere,
}

var (
	configFormat string
	amSetFile    string
)

func init() {
	amShowCmd.Flags().StringVarP(&configFormat, "format", "f", FormatTOML, "Output format: toml, json, yaml")
	amSetCmd.Flags().StringVar(&amSetFile, "file", "", "Config file to edit (default: ~/.searchq/am.toml)")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amSetCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if configFormat == FormatTOML || configFormat == FormatYAML {
		fmt.Fprintln(cmd.OutOrStdout(), "# searchq configuration")
	}
	return writeFormatted(cmd.OutOrStdout(), configFormat, cfg)
}

func runAmGet(cmd *cobra.Command, args []string) error {
	value := am.Get(args[0])
	if value == nil {
		return errors.NewNotFoundError("configuration key %q not found", args[0])
	}
	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func runAmSet(cmd *cobra.Command, args []string) error {
	path := amSetFile
	if path == "" {
		path = am.UserConfigPath()
	}
	if path == "" {
		return errors.New("could not determine home directory; pass --file")
	}

	if err := am.UpdateSetting(path, args[0], parseSettingValue(args[1])); err != nil {
		return err
	}

	// Check the result still loads before reporting success
	if _, err := am.LoadFromFile(path); err != nil {
		return errors.WithHintf(err, "the previous file was saved as %s.back1", path)
	}
	am.Reset()
	fmt.Fprintf(cmd.OutOrStdout(), "%s = %s (%s)\n", args[0], args[1], path)
	return nil
}

// parseSettingValue types a command line value the way TOML would
func parseSettingValue(s string) interface{} {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration is valid")
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	intro, err := am.GetConfigIntrospection()
	if err != nil {
		return errors.Wrap(err, "failed to get config introspection")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Configuration cascade (later overrides earlier):")
	fmt.Fprintln(out, "  1. [DEFAULT]  Built-in defaults")
	fmt.Fprintf(out, "  2. [SYSTEM]   %s\n", am.SystemConfigPath)
	fmt.Fprintln(out, "  3. [USER]     ~/.searchq/am.toml")
	fmt.Fprintln(out, "  4. [PROJECT]  ./am.toml (searches up directories)")
	fmt.Fprintf(out, "  5. [ENV]      %s_* environment variables\n", am.EnvPrefix)
	fmt.Fprintln(out)
	if intro.ConfigFile != "" {
		fmt.Fprintf(out, "Active config file: %s\n\n", intro.ConfigFile)
	}

	groups := map[string][]am.SettingInfo{}
	for _, s := range intro.Settings {
		label := string(s.Source)
		if s.SourcePath != "" {
			label += " " + s.SourcePath
		}
		groups[label] = append(groups[label], s)
	}
	labels := make([]string, 0, len(groups))
	for l := range groups {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	for _, label := range labels {
		fmt.Fprintf(out, "%s: %d settings\n", label, len(groups[label]))
		for _, s := range groups[label] {
			value := fmt.Sprintf("%v", s.Value)
			if len(value) > 50 {
				value = value[:47] + "..."
			}
			fmt.Fprintf(out, "  %s = %s\n", s.Key, value)
		}
	}
	return nil
}
