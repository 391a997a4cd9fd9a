package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/go-whoop/whoop-cli/config"
	"github.com/go-whoop/whoop-cli/output"
)

// configDefaults is shown for keys that aren't set.
var configDefaults = map[string]string{
	"units":          "(default: metric)",
	"default_format": "(default: table)",
	"default_limit":  fmt.Sprintf("(default: %d)", config.DefaultLimit),
	"color":          "(default: true)",
	"client_id":      "(not set)",
	"client_secret":  "(not set)",
}

func newConfigCommand(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and change CLI settings",
	}

	cmd.AddCommand(newConfigListCommand(a))
	cmd.AddCommand(newConfigGetCommand(a))
	cmd.AddCommand(newConfigSetCommand(a))
	return cmd
}

func newConfigListCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg := a.config.Load()
			switch a.settings.Format {
			case config.FormatJSON:
				return output.WriteJSON(a.Out, cfg.Masked())
			case config.FormatYAML:
				return output.WriteYAML(a.Out, cfg.Masked())
			}

			color := a.settings.Color
			lines := make([]string, 0, len(config.Keys))
			for _, key := range config.Keys {
				value, ok, err := cfg.Get(key)
				if err != nil {
					return err
				}
				if !ok {
					value = configDefaults[key]
				}
				lines = append(lines, fmt.Sprintf("  %s %s", output.Cyan(fmt.Sprintf("%-16s", key), color), value))
			}
			return output.Lines(a.Out, color, lines...)
		},
	}
}

func newConfigGetCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a single configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			value, ok, err := a.config.Load().Get(args[0])
			if err != nil {
				return fmt.Errorf("unknown config key: %q. Valid keys: %s", args[0], strings.Join(config.Keys, ", "))
			}
			if !ok {
				value = configDefaults[args[0]]
			}
			fmt.Fprintln(a.Out, value)
			return nil
		},
	}
}

func newConfigSetCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Example: `  whoop config set units imperial
  whoop config set default_format json
  whoop config set client_id your_id_here`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if err := a.config.Set(key, value); err != nil {
				return err
			}

			display := value
			if strings.Contains(key, "secret") {
				display = config.Mask
			}
			color := a.settings.Color
			return output.Println(a.Out, color, output.Green(fmt.Sprintf("Set %s = %s", key, display), color))
		},
	}
}
