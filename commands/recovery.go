package commands

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/go-whoop/whoop-cli/api"
	"github.com/go-whoop/whoop-cli/config"
	"github.com/go-whoop/whoop-cli/output"
)

func newRecoveryCommand(a *App) *cobra.Command {
	cmd := newRecoveryListCommand(a, "recovery")
	cmd.Short = "List recent recoveries"
	cmd.Example = `  whoop recovery
  whoop recovery --limit 20
  whoop recovery --start 7d --json
  whoop recovery --all --csv`

	cmd.AddCommand(newRecoveryListCommand(a, "list"))
	cmd.AddCommand(newRecoveryGetCommand(a))
	cmd.AddCommand(newRecoveryLatestCommand(a))
	return cmd
}

func newRecoveryListCommand(a *App, use string) *cobra.Command {
	var lf listFlags

	cmd := &cobra.Command{
		Use:   use,
		Short: "List recent recoveries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.authedAPI()
			if err != nil {
				return err
			}
			records, err := fetchList[api.Recovery](cmd.Context(), a, &lf, client.ListRecoveries)
			if err != nil {
				return err
			}
			units := a.settings.Units
			return writeList(a, records, recoveryColumns(units), "recovery", func(r api.Recovery) output.Row {
				return recoveryRow(r, units, a.settings.Color)
			})
		},
	}
	lf.register(cmd)
	return cmd
}

func newRecoveryGetCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "get <cycleId>",
		Short: "Get recovery for a specific cycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCycleID(args[0])
			if err != nil {
				return err
			}
			client, err := a.authedAPI()
			if err != nil {
				return err
			}
			rec, err := client.GetCycleRecovery(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.writeRecovery(rec)
		},
	}
}

func newRecoveryLatestCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Get your latest recovery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.authedAPI()
			if err != nil {
				return err
			}
			page, err := client.ListRecoveries(cmd.Context(), api.ListParams{Limit: 1})
			if err != nil {
				return err
			}
			if len(page.Records) == 0 {
				fmt.Fprintln(a.Out, "No recovery data found.")
				return nil
			}

			rec := page.Records[0]
			if a.quiet {
				if rec.ScoreState == api.ScoreStateScored && rec.Score != nil {
					fmt.Fprintln(a.Out, strconv.Itoa(int(math.Round(rec.Score.RecoveryScore))))
				} else {
					fmt.Fprintln(a.Out, rec.ScoreState)
				}
				return nil
			}
			return a.writeRecovery(&rec)
		},
	}
}

func (a *App) writeRecovery(rec *api.Recovery) error {
	units, color := a.settings.Units, a.settings.Color
	return writeRecord(a, rec,
		func() ([]output.Column, output.Row) {
			return recoveryColumns(units), recoveryRow(*rec, units, color)
		},
		func() []string { return recoveryDetail(rec, units, color) },
	)
}

func recoveryColumns(units string) []output.Column {
	temp := "Skin Temp (°C)"
	if units == config.UnitsImperial {
		temp = "Skin Temp (°F)"
	}
	return []output.Column{
		{Key: "date", Header: "Date"},
		{Key: "recovery", Header: "Recovery"},
		{Key: "hrv", Header: "HRV (ms)"},
		{Key: "rhr", Header: "RHR (bpm)"},
		{Key: "spo2", Header: "SpO2 (%)"},
		{Key: "skinTemp", Header: temp},
	}
}

func recoveryRow(r api.Recovery, units string, color bool) output.Row {
	row := output.Row{"date": datePart(r.CreatedAt)}
	if r.ScoreState != api.ScoreStateScored || r.Score == nil {
		row["recovery"] = "(" + stateLabel(r.ScoreState) + ")"
		return row
	}

	s := r.Score
	row["recovery"] = output.ColorRecovery(s.RecoveryScore, color)
	row["hrv"] = output.Float(&s.HRVRMSSDMilli, "")
	row["rhr"] = output.Float(&s.RestingHeartRate, "")
	row["spo2"] = output.Float(s.SpO2Percentage, "")
	if t := s.SkinTempCelsius; t != nil {
		v := *t
		if units == config.UnitsImperial {
			v = output.CelsiusToFahrenheit(v)
		}
		row["skinTemp"] = output.Float(&v, "")
	}
	return row
}

func recoveryDetail(r *api.Recovery, units string, color bool) []string {
	if r.ScoreState != api.ScoreStateScored || r.Score == nil {
		return []string{"Recovery: (" + stateLabel(r.ScoreState) + ")"}
	}

	s := r.Score
	details := []string{
		"HRV: " + output.Float(&s.HRVRMSSDMilli, "ms"),
		"RHR: " + output.Float(&s.RestingHeartRate, "bpm"),
	}
	if s.SpO2Percentage != nil {
		details = append(details, "SpO2: "+output.Float(s.SpO2Percentage, "%"))
	}
	if s.SkinTempCelsius != nil {
		details = append(details, "Skin Temp: "+output.Temperature(s.SkinTempCelsius, units))
	}

	lines := []string{
		output.RecoveryEmoji(s.RecoveryScore) + " Recovery: " + output.ColorRecovery(s.RecoveryScore, color),
		"   " + strings.Join(details, " | "),
	}
	if s.UserCalibrating {
		lines = append(lines, output.Dim("   (User is calibrating)", color))
	}
	return lines
}

// stateLabel names a non-scored state for display.
func stateLabel(s api.ScoreState) string {
	switch s {
	case api.ScoreStatePending:
		return "Pending"
	case api.ScoreStateUnscorable:
		return "Unscorable"
	default:
		return string(s)
	}
}

func parseCycleID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid cycle ID: %q. Must be a positive integer", arg)
	}
	return id, nil
}
