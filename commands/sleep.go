package commands

import (
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/go-whoop/whoop-cli/api"
	"github.com/go-whoop/whoop-cli/output"
)

func newSleepCommand(a *App) *cobra.Command {
	cmd := newSleepListCommand(a, "sleep")
	cmd.Example = `  whoop sleep
  whoop sleep --limit 20
  whoop sleep --start 7d --json`

	cmd.AddCommand(newSleepListCommand(a, "list"))
	cmd.AddCommand(newSleepGetCommand(a))
	cmd.AddCommand(newSleepLatestCommand(a))
	return cmd
}

func newSleepListCommand(a *App, use string) *cobra.Command {
	var lf listFlags

	cmd := &cobra.Command{
		Use:   use,
		Short: "List recent sleep sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.authedAPI()
			if err != nil {
				return err
			}
			records, err := fetchList[api.Sleep](cmd.Context(), a, &lf, client.ListSleeps)
			if err != nil {
				return err
			}
			return writeList(a, records, sleepColumns, "performance", func(s api.Sleep) output.Row {
				return sleepRow(s, a.settings.Color)
			})
		},
	}
	lf.register(cmd)
	return cmd
}

func newSleepGetCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "get <sleepId>",
		Short: "Get a specific sleep session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.authedAPI()
			if err != nil {
				return err
			}
			s, err := client.GetSleep(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.writeSleep(s)
		},
	}
}

func newSleepLatestCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Get your latest sleep session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.authedAPI()
			if err != nil {
				return err
			}
			page, err := client.ListSleeps(cmd.Context(), api.ListParams{Limit: 1})
			if err != nil {
				return err
			}
			if len(page.Records) == 0 {
				fmt.Fprintln(a.Out, "No sleep data found.")
				return nil
			}

			s := page.Records[0]
			if a.quiet {
				if perf := sleepPerformance(&s); perf != nil {
					fmt.Fprintln(a.Out, strconv.Itoa(int(math.Round(*perf))))
				} else {
					fmt.Fprintln(a.Out, s.ScoreState)
				}
				return nil
			}
			return a.writeSleep(&s)
		},
	}
}

func (a *App) writeSleep(s *api.Sleep) error {
	color := a.settings.Color
	return writeRecord(a, s,
		func() ([]output.Column, output.Row) { return sleepColumns, sleepRow(*s, color) },
		func() []string { return sleepDetail(s, color) },
	)
}

var sleepColumns = []output.Column{
	{Key: "date", Header: "Date"},
	{Key: "duration", Header: "Duration"},
	{Key: "performance", Header: "Performance"},
	{Key: "efficiency", Header: "Efficiency"},
	{Key: "light", Header: "Light"},
	{Key: "sws", Header: "SWS"},
	{Key: "rem", Header: "REM"},
	{Key: "awake", Header: "Awake"},
	{Key: "disturbances", Header: "Dist."},
	{Key: "nap", Header: "Nap?"},
}

// totalSleepMilli is time asleep: light + slow wave + REM.
func totalSleepMilli(st api.SleepStageSummary) int64 {
	return st.TotalLightSleepTimeMilli + st.TotalSlowWaveSleepTimeMilli + st.TotalREMSleepTimeMilli
}

func sleepPerformance(s *api.Sleep) *float64 {
	if s.ScoreState != api.ScoreStateScored || s.Score == nil {
		return nil
	}
	return s.Score.SleepPerformancePercentage
}

func sleepRow(s api.Sleep, color bool) output.Row {
	row := output.Row{"date": datePart(s.Start), "nap": yesNo(s.Nap)}
	if s.ScoreState != api.ScoreStateScored || s.Score == nil {
		row["duration"] = "(" + stateLabel(s.ScoreState) + ")"
		return row
	}

	sc := s.Score
	st := sc.StageSummary
	row["duration"] = output.Duration(totalSleepMilli(st), false)
	if sc.SleepPerformancePercentage != nil {
		row["performance"] = output.ColorSleepPerformance(*sc.SleepPerformancePercentage, color)
	}
	row["efficiency"] = output.Percent(sc.SleepEfficiencyPercentage)
	row["light"] = output.Duration(st.TotalLightSleepTimeMilli, false)
	row["sws"] = output.Duration(st.TotalSlowWaveSleepTimeMilli, false)
	row["rem"] = output.Duration(st.TotalREMSleepTimeMilli, false)
	row["awake"] = output.Duration(st.TotalAwakeTimeMilli, false)
	row["disturbances"] = strconv.Itoa(st.DisturbanceCount)
	return row
}

func sleepDetail(s *api.Sleep, color bool) []string {
	if s.ScoreState != api.ScoreStateScored || s.Score == nil {
		return []string{"Sleep: (" + stateLabel(s.ScoreState) + ")"}
	}

	sc := s.Score
	st := sc.StageSummary
	perf := output.Missing
	if sc.SleepPerformancePercentage != nil {
		perf = output.ColorSleepPerformance(*sc.SleepPerformancePercentage, color)
	}
	nap := ""
	if s.Nap {
		nap = " | NAP"
	}

	lines := []string{
		fmt.Sprintf("\U0001F634 Sleep: %s (Performance: %s)", output.Duration(totalSleepMilli(st), false), perf),
		stagesLine(st),
		fmt.Sprintf("   Efficiency: %s | Consistency: %s | Resp Rate: %s",
			output.Percent(sc.SleepEfficiencyPercentage),
			output.Percent(sc.SleepConsistencyPercentage),
			output.Float(sc.RespiratoryRate, "")),
		fmt.Sprintf("   Disturbances: %d | Sleep Cycles: %d%s", st.DisturbanceCount, st.SleepCycleCount, nap),
	}

	need := sc.SleepNeeded
	lines = append(lines,
		"",
		"   Sleep Needed:",
		"     Baseline:          "+output.Duration(need.BaselineMilli, false),
		"     + Sleep debt:      "+output.Duration(need.NeedFromSleepDebtMilli, false),
		"     + Recent strain:   "+output.Duration(need.NeedFromRecentStrainMilli, false),
	)
	if need.NeedFromRecentNapMilli < 0 {
		lines = append(lines, "     - Nap reduction:   "+output.Duration(-need.NeedFromRecentNapMilli, false))
	}
	return lines
}

func stagesLine(st api.SleepStageSummary) string {
	return fmt.Sprintf("   Light: %s | SWS: %s | REM: %s | Awake: %s",
		output.Duration(st.TotalLightSleepTimeMilli, false),
		output.Duration(st.TotalSlowWaveSleepTimeMilli, false),
		output.Duration(st.TotalREMSleepTimeMilli, false),
		output.Duration(st.TotalAwakeTimeMilli, false))
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
