package commands

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/go-whoop/whoop-cli/api"
	"github.com/go-whoop/whoop-cli/config"
	"github.com/go-whoop/whoop-cli/output"
)

// dashboard is today's overview. Anything but the cycle may be missing.
type dashboard struct {
	Cycle    *api.Cycle    `json:"cycle"              yaml:"cycle"`
	Recovery *api.Recovery `json:"recovery,omitempty" yaml:"recovery,omitempty"`
	Sleep    *api.Sleep    `json:"sleep,omitempty"    yaml:"sleep,omitempty"`
	Workout  *api.Workout  `json:"workout,omitempty"  yaml:"workout,omitempty"`
}

func newDashboardCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show today's WHOOP overview (recovery, strain, sleep, workout)",
		Example: `  whoop dashboard
  whoop dashboard --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.authedAPI()
			if err != nil {
				return err
			}

			cycles, err := client.ListCycles(cmd.Context(), api.ListParams{Limit: 1})
			if err != nil {
				return err
			}
			if len(cycles.Records) == 0 {
				fmt.Fprintln(a.Out, "No cycle data found.")
				return nil
			}

			d, failed := fetchDashboard(cmd.Context(), client, &cycles.Records[0])
			if len(failed) > 0 {
				fmt.Fprintf(a.Err, "Warning: failed to fetch %s data.\n", strings.Join(failed, ", "))
			}
			return a.writeDashboard(d)
		},
	}
}

// fetchDashboard loads the recovery for cycle and the latest sleep and
// workout concurrently. A failed fetch leaves its section empty and is named
// in the returned list.
func fetchDashboard(ctx context.Context, client *api.Client, cycle *api.Cycle) (*dashboard, []string) {
	d := &dashboard{Cycle: cycle}
	var recErr, sleepErr, workoutErr error

	var g errgroup.Group
	g.Go(func() error {
		d.Recovery, recErr = client.GetCycleRecovery(ctx, cycle.ID)
		return nil
	})
	g.Go(func() error {
		page, err := client.ListSleeps(ctx, api.ListParams{Limit: 1})
		if err != nil {
			sleepErr = err
			return nil
		}
		if len(page.Records) > 0 {
			d.Sleep = &page.Records[0]
		}
		return nil
	})
	g.Go(func() error {
		page, err := client.ListWorkouts(ctx, api.ListParams{Limit: 1})
		if err != nil {
			workoutErr = err
			return nil
		}
		if len(page.Records) > 0 {
			d.Workout = &page.Records[0]
		}
		return nil
	})
	_ = g.Wait()

	var failed []string
	if recErr != nil {
		d.Recovery = nil
		failed = append(failed, "recovery")
	}
	if sleepErr != nil {
		failed = append(failed, "sleep")
	}
	if workoutErr != nil {
		failed = append(failed, "workout")
	}
	return d, failed
}

func (a *App) writeDashboard(d *dashboard) error {
	switch a.settings.Format {
	case config.FormatJSON:
		return output.WriteJSON(a.Out, d)
	case config.FormatYAML:
		return output.WriteYAML(a.Out, d)
	case config.FormatCSV:
		return output.WriteCSV(a.Out, []output.Row{dashboardRow(d)}, dashboardColumns)
	}

	color := a.settings.Color
	lines := recoverySection(d.Recovery, a.settings.Units, color)
	lines = append(lines, "")
	lines = append(lines, strainSection(d.Cycle, color)...)
	lines = append(lines, "")
	lines = append(lines, sleepSection(d.Sleep, color)...)
	lines = append(lines, "")
	lines = append(lines, workoutSection(d.Workout, color)...)
	return output.Lines(a.Out, color, lines...)
}

var dashboardColumns = []output.Column{
	{Key: "cycleId", Header: "Cycle ID"},
	{Key: "cycleState", Header: "Cycle State"},
	{Key: "strain", Header: "Strain"},
	{Key: "recovery", Header: "Recovery"},
	{Key: "recoveryState", Header: "Recovery State"},
	{Key: "sleepId", Header: "Sleep ID"},
	{Key: "sleepState", Header: "Sleep State"},
	{Key: "sleepPerformance", Header: "Sleep Performance"},
	{Key: "workoutId", Header: "Workout ID"},
	{Key: "workoutSport", Header: "Workout Sport"},
	{Key: "workoutState", Header: "Workout State"},
	{Key: "workoutStrain", Header: "Workout Strain"},
}

const noData = "NO_DATA"

func dashboardRow(d *dashboard) output.Row {
	c := d.Cycle
	row := output.Row{
		"cycleId":       fmt.Sprintf("%d", c.ID),
		"cycleState":    string(c.ScoreState),
		"recoveryState": noData,
		"sleepState":    noData,
		"workoutState":  noData,
	}
	if c.ScoreState == api.ScoreStateScored && c.Score != nil {
		row["strain"] = fmt.Sprintf("%.1f", c.Score.Strain)
	}

	if r := d.Recovery; r != nil {
		row["recoveryState"] = string(r.ScoreState)
		if r.ScoreState == api.ScoreStateScored && r.Score != nil {
			row["recovery"] = fmt.Sprintf("%d%%", int(math.Round(r.Score.RecoveryScore)))
		}
	}
	if s := d.Sleep; s != nil {
		row["sleepId"] = s.ID
		row["sleepState"] = string(s.ScoreState)
		if perf := sleepPerformance(s); perf != nil {
			row["sleepPerformance"] = output.Percent(perf)
		}
	}
	if w := d.Workout; w != nil {
		row["workoutId"] = w.ID
		row["workoutSport"] = w.SportName
		row["workoutState"] = string(w.ScoreState)
		if w.ScoreState == api.ScoreStateScored && w.Score != nil {
			row["workoutStrain"] = fmt.Sprintf("%.1f", w.Score.Strain)
		}
	}
	return row
}

func recoverySection(r *api.Recovery, units string, color bool) []string {
	switch {
	case r == nil:
		return []string{"⚪ Recovery: No data"}
	case r.ScoreState != api.ScoreStateScored || r.Score == nil:
		return []string{"⚪ Recovery: (" + stateLabel(r.ScoreState) + ")"}
	}

	lines := recoveryDetail(r, units, color)
	lines[0] += " (" + output.RecoveryZone(r.Score.RecoveryScore) + ")"
	return lines
}

func strainSection(c *api.Cycle, color bool) []string {
	if c.ScoreState != api.ScoreStateScored || c.Score == nil {
		return []string{"\U0001F4CA Today's Strain: (" + stateLabel(c.ScoreState) + ")"}
	}
	s := c.Score
	return []string{
		"\U0001F4CA Today's Strain: " + output.ColorStrain(s.Strain, color) + " / 21",
		fmt.Sprintf("   Calories: %s kcal | Avg HR: %dbpm | Max HR: %dbpm",
			output.Calories(s.Kilojoule), s.AverageHeartRate, s.MaxHeartRate),
	}
}

func sleepSection(s *api.Sleep, color bool) []string {
	switch {
	case s == nil:
		return []string{"\U0001F634 Last Sleep: No data"}
	case s.ScoreState != api.ScoreStateScored || s.Score == nil:
		return []string{"\U0001F634 Last Sleep: (" + stateLabel(s.ScoreState) + ")"}
	}

	sc := s.Score
	perf := ""
	if sc.SleepPerformancePercentage != nil {
		perf = " (Performance: " + output.ColorSleepPerformance(*sc.SleepPerformancePercentage, color) + ")"
	}
	lines := []string{
		"\U0001F634 Last Sleep: " + output.Duration(totalSleepMilli(sc.StageSummary), false) + perf,
		stagesLine(sc.StageSummary),
	}

	var details []string
	if sc.SleepEfficiencyPercentage != nil {
		details = append(details, "Efficiency: "+output.Percent(sc.SleepEfficiencyPercentage))
	}
	if sc.SleepConsistencyPercentage != nil {
		details = append(details, "Consistency: "+output.Percent(sc.SleepConsistencyPercentage))
	}
	if sc.RespiratoryRate != nil {
		details = append(details, "Resp Rate: "+output.Float(sc.RespiratoryRate, ""))
	}
	if len(details) > 0 {
		lines = append(lines, "   "+strings.Join(details, " | "))
	}
	return lines
}

func workoutSection(w *api.Workout, color bool) []string {
	switch {
	case w == nil:
		return []string{"\U0001F3CB️ Last Workout: No data"}
	case w.ScoreState != api.ScoreStateScored || w.Score == nil:
		return []string{fmt.Sprintf("\U0001F3CB️ Last Workout: %s (%s)", w.SportName, stateLabel(w.ScoreState))}
	}
	return []string{
		fmt.Sprintf("\U0001F3CB️ Last Workout: %s — Strain %s", w.SportName, output.ColorStrain(w.Score.Strain, color)),
		workoutSummary(*w),
	}
}
