package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-whoop/whoop-cli/api"
	"github.com/go-whoop/whoop-cli/output"
)

func newWorkoutCommand(a *App) *cobra.Command {
	cmd := newWorkoutListCommand(a, "workout")
	cmd.Example = `  whoop workout
  whoop workout --sport running --start 30d
  whoop workout latest -q`

	cmd.AddCommand(newWorkoutListCommand(a, "list"))
	cmd.AddCommand(newWorkoutGetCommand(a))
	cmd.AddCommand(newWorkoutLatestCommand(a))
	return cmd
}

func newWorkoutListCommand(a *App, use string) *cobra.Command {
	var (
		lf    listFlags
		sport string
	)

	cmd := &cobra.Command{
		Use:   use,
		Short: "List recent workouts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.authedAPI()
			if err != nil {
				return err
			}
			records, err := fetchList[api.Workout](cmd.Context(), a, &lf, client.ListWorkouts)
			if err != nil {
				return err
			}
			records = filterSport(records, sport)

			units := a.settings.Units
			return writeList(a, records, workoutColumns, "strain", func(w api.Workout) output.Row {
				return workoutRow(w, units, a.settings.Color)
			})
		},
	}
	lf.register(cmd)
	cmd.Flags().StringVar(&sport, "sport", "", "Filter by sport name (client-side)")
	return cmd
}

func newWorkoutGetCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "get <workoutId>",
		Short: "Get a specific workout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.authedAPI()
			if err != nil {
				return err
			}
			w, err := client.GetWorkout(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.writeWorkout(w)
		},
	}
}

func newWorkoutLatestCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Get your latest workout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.authedAPI()
			if err != nil {
				return err
			}
			page, err := client.ListWorkouts(cmd.Context(), api.ListParams{Limit: 1})
			if err != nil {
				return err
			}
			if len(page.Records) == 0 {
				fmt.Fprintln(a.Out, "No workout data found.")
				return nil
			}

			w := page.Records[0]
			if a.quiet {
				if w.ScoreState == api.ScoreStateScored && w.Score != nil {
					fmt.Fprintf(a.Out, "%.1f\n", w.Score.Strain)
				} else {
					fmt.Fprintln(a.Out, w.ScoreState)
				}
				return nil
			}
			return a.writeWorkout(&w)
		},
	}
}

func (a *App) writeWorkout(w *api.Workout) error {
	units, color := a.settings.Units, a.settings.Color
	return writeRecord(a, w,
		func() ([]output.Column, output.Row) { return workoutDetailColumns, workoutDetailRow(*w, units) },
		func() []string { return workoutDetail(w, units, color) },
	)
}

// filterSport keeps workouts whose sport name contains sport, ignoring case.
func filterSport(records []api.Workout, sport string) []api.Workout {
	if sport == "" {
		return records
	}
	needle := strings.ToLower(sport)
	out := records[:0:0]
	for _, w := range records {
		if strings.Contains(strings.ToLower(w.SportName), needle) {
			out = append(out, w)
		}
	}
	return out
}

// workoutMilli is the wall-clock length of a workout.
func workoutMilli(w api.Workout) int64 {
	start, err1 := time.Parse(time.RFC3339Nano, w.Start)
	end, err2 := time.Parse(time.RFC3339Nano, w.End)
	if err1 != nil || err2 != nil {
		return 0
	}
	return end.Sub(start).Milliseconds()
}

func elevation(m *float64, units string, spaced bool) string {
	s := output.Elevation(m, units)
	if !spaced {
		s = strings.Replace(s, " ", "", 1)
	}
	return s
}

var workoutColumns = []output.Column{
	{Key: "date", Header: "Date"},
	{Key: "sport", Header: "Sport"},
	{Key: "strain", Header: "Strain"},
	{Key: "duration", Header: "Duration"},
	{Key: "avgHr", Header: "Avg HR"},
	{Key: "maxHr", Header: "Max HR"},
	{Key: "calories", Header: "Calories"},
	{Key: "distance", Header: "Distance"},
}

func workoutRow(w api.Workout, units string, color bool) output.Row {
	row := output.Row{"date": datePart(w.Start), "sport": w.SportName}
	if w.ScoreState != api.ScoreStateScored || w.Score == nil {
		row["strain"] = "(" + stateLabel(w.ScoreState) + ")"
		return row
	}

	s := w.Score
	row["strain"] = output.ColorStrain(s.Strain, color)
	row["duration"] = output.Duration(workoutMilli(w), false)
	row["avgHr"] = strconv.Itoa(s.AverageHeartRate)
	row["maxHr"] = strconv.Itoa(s.MaxHeartRate)
	row["calories"] = output.Calories(s.Kilojoule)
	row["distance"] = output.Distance(s.DistanceMeter, units)
	return row
}

var workoutDetailColumns = []output.Column{
	{Key: "date", Header: "Date"},
	{Key: "workoutId", Header: "Workout ID"},
	{Key: "sport", Header: "Sport"},
	{Key: "strain", Header: "Strain"},
	{Key: "duration", Header: "Duration"},
	{Key: "avgHr", Header: "Avg HR"},
	{Key: "maxHr", Header: "Max HR"},
	{Key: "calories", Header: "Calories"},
	{Key: "distance", Header: "Distance"},
	{Key: "elevationGain", Header: "Elevation Gain"},
	{Key: "state", Header: "State"},
}

func workoutDetailRow(w api.Workout, units string) output.Row {
	row := output.Row{
		"date":      datePart(w.Start),
		"workoutId": w.ID,
		"sport":     w.SportName,
		"state":     string(w.ScoreState),
	}
	if w.ScoreState != api.ScoreStateScored || w.Score == nil {
		return row
	}

	s := w.Score
	row["strain"] = fmt.Sprintf("%.1f", s.Strain)
	row["duration"] = output.Duration(workoutMilli(w), false)
	row["avgHr"] = strconv.Itoa(s.AverageHeartRate)
	row["maxHr"] = strconv.Itoa(s.MaxHeartRate)
	row["calories"] = output.Calories(s.Kilojoule)
	row["distance"] = output.Distance(s.DistanceMeter, units)
	row["elevationGain"] = elevation(s.AltitudeGainMeter, units, true)
	return row
}

var zoneNames = [6]string{
	"Zone 0 (Rest)  ",
	"Zone 1 (Light) ",
	"Zone 2 (Mod.)  ",
	"Zone 3 (Hard)  ",
	"Zone 4 (V.Hard)",
	"Zone 5 (Max)   ",
}

func workoutDetail(w *api.Workout, units string, color bool) []string {
	if w.ScoreState != api.ScoreStateScored || w.Score == nil {
		return []string{fmt.Sprintf("Workout: %s (%s)", w.SportName, stateLabel(w.ScoreState))}
	}

	s := w.Score
	distance := ""
	if s.DistanceMeter != nil {
		distance = " | " + output.Distance(s.DistanceMeter, units)
	}

	lines := []string{
		fmt.Sprintf("\U0001F3CB️ %s — Strain %s", w.SportName, output.ColorStrain(s.Strain, color)),
		workoutSummary(*w) + distance,
	}
	if s.AltitudeGainMeter != nil {
		lines = append(lines, "   Elevation gain: "+elevation(s.AltitudeGainMeter, units, false))
	}

	z := s.ZoneDurations
	zones := [6]int64{z.ZoneZeroMilli, z.ZoneOneMilli, z.ZoneTwoMilli, z.ZoneThreeMilli, z.ZoneFourMilli, z.ZoneFiveMilli}
	var total int64
	for _, ms := range zones {
		total += ms
	}
	if total > 0 {
		lines = append(lines, "", "   Heart Rate Zones:")
		for i, ms := range zones {
			fraction := float64(ms) / float64(total)
			lines = append(lines, fmt.Sprintf("   %s %10s  %s",
				zoneNames[i], output.Duration(ms, true), output.RenderBar(fraction, 20, color)))
		}
	}
	return lines
}

// workoutSummary is the duration, heart-rate and calorie line.
func workoutSummary(w api.Workout) string {
	s := w.Score
	return fmt.Sprintf("   Duration: %s | Avg HR: %dbpm | Max HR: %dbpm | %s kcal",
		output.Duration(workoutMilli(w), false), s.AverageHeartRate, s.MaxHeartRate, output.Calories(s.Kilojoule))
}

