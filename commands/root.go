package commands

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/go-whoop/whoop-cli/config"
)

// NewRootCommand creates the root command for whoop.
func NewRootCommand(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoop",
		Short: "WHOOP fitness data from the command line",
		Long: `whoop reads your recovery, sleep, strain and workout data from the WHOOP
developer API. Authenticate once with "whoop auth login"; tokens are refreshed
automatically.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateGlobalFlags(a.flags); err != nil {
				return err
			}
			return a.init()
		},
	}

	// Global flags
	pf := cmd.PersistentFlags()
	pf.BoolVar(&a.flags.JSON, "json", false, "Output raw JSON")
	pf.BoolVar(&a.flags.CSV, "csv", false, "Output as CSV")
	pf.StringVar(&a.flags.Format, "format", "", "Output format ("+strings.Join(config.Formats, ", ")+")")
	pf.BoolVar(&a.flags.NoColor, "no-color", false, "Disable colored output")
	pf.BoolVarP(&a.quiet, "quiet", "q", false, "Minimal output (key value only, for scripting)")
	pf.StringVar(&a.flags.Units, "units", "", "Unit system (metric, imperial)")
	pf.BoolVar(&a.debug, "debug", false, "Log HTTP and token activity to stderr")
	cmd.MarkFlagsMutuallyExclusive("json", "csv", "format")

	// Add subcommands
	cmd.AddCommand(newAuthCommand(a))
	cmd.AddCommand(newConfigCommand(a))
	cmd.AddCommand(newRecoveryCommand(a))
	cmd.AddCommand(newSleepCommand(a))
	cmd.AddCommand(newCycleCommand(a))
	cmd.AddCommand(newWorkoutCommand(a))
	cmd.AddCommand(newProfileCommand(a))
	cmd.AddCommand(newDashboardCommand(a))

	return cmd
}

// Execute runs the command tree with args and reports any error on a.Err.
func Execute(ctx context.Context, a *App, args []string) error {
	root := NewRootCommand(a)
	root.SetArgs(args)
	root.SetOut(a.Out)
	root.SetErr(a.Err)
	root.SetIn(a.In)

	err := root.ExecuteContext(ctx)
	if err != nil {
		a.printError(err)
	}
	return err
}

func validateGlobalFlags(f config.Flags) error {
	if f.Format != "" && !slices.Contains(config.Formats, f.Format) {
		return fmt.Errorf(
			"invalid value for --format: %q. Must be one of: %s",
			f.Format, strings.Join(config.Formats, ", "),
		)
	}
	if f.Units != "" && f.Units != config.UnitsMetric && f.Units != config.UnitsImperial {
		return fmt.Errorf("invalid value for --units: %q. Must be \"metric\" or \"imperial\"", f.Units)
	}
	return nil
}
