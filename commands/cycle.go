package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/go-whoop/whoop-cli/api"
	"github.com/go-whoop/whoop-cli/output"
)

func newCycleCommand(a *App) *cobra.Command {
	cmd := newCycleListCommand(a, "cycle")
	cmd.Example = `  whoop cycle
  whoop cycle --limit 7
  whoop cycle get 93845
  whoop cycle sleep 93845`

	cmd.AddCommand(newCycleListCommand(a, "list"))
	cmd.AddCommand(newCycleGetCommand(a))
	cmd.AddCommand(newCycleSleepCommand(a))
	cmd.AddCommand(newCycleRecoveryCommand(a))
	return cmd
}

func newCycleListCommand(a *App, use string) *cobra.Command {
	var lf listFlags

	cmd := &cobra.Command{
		Use:   use,
		Short: "List physiological cycles (daily strain)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.authedAPI()
			if err != nil {
				return err
			}
			records, err := fetchList[api.Cycle](cmd.Context(), a, &lf, client.ListCycles)
			if err != nil {
				return err
			}
			return writeList(a, records, cycleColumns, "strain", func(c api.Cycle) output.Row {
				return cycleRow(c, a.settings.Color)
			})
		},
	}
	lf.register(cmd)
	return cmd
}

func newCycleGetCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "get <cycleId>",
		Short: "Get a specific cycle",
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
			c, err := client.GetCycle(cmd.Context(), id)
			if err != nil {
				return err
			}
			color := a.settings.Color
			return writeRecord(a, c,
				func() ([]output.Column, output.Row) { return cycleColumns, cycleRow(*c, color) },
				func() []string { return cycleDetail(c, color) },
			)
		},
	}
}

func newCycleSleepCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sleep <cycleId>",
		Short: "Get the sleep for a specific cycle",
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
			s, err := client.GetCycleSleep(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.writeSleep(s)
		},
	}
}

func newCycleRecoveryCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "recovery <cycleId>",
		Short: "Get the recovery for a specific cycle",
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

var cycleColumns = []output.Column{
	{Key: "id", Header: "ID"},
	{Key: "start", Header: "Start"},
	{Key: "end", Header: "End"},
	{Key: "strain", Header: "Strain"},
	{Key: "calories", Header: "Calories"},
	{Key: "avgHr", Header: "Avg HR"},
	{Key: "maxHr", Header: "Max HR"},
	{Key: "status", Header: "Status"},
}

func cycleRow(c api.Cycle, color bool) output.Row {
	end := "(active)"
	if c.End != "" {
		end = datePart(c.End)
	}
	row := output.Row{
		"id":    strconv.FormatInt(c.ID, 10),
		"start": datePart(c.Start),
		"end":   end,
	}
	if c.ScoreState != api.ScoreStateScored || c.Score == nil {
		row["strain"] = "(" + stateLabel(c.ScoreState) + ")"
		row["status"] = stateLabel(c.ScoreState)
		return row
	}

	s := c.Score
	row["strain"] = output.ColorStrain(s.Strain, color)
	row["calories"] = output.Calories(s.Kilojoule)
	row["avgHr"] = strconv.Itoa(s.AverageHeartRate)
	row["maxHr"] = strconv.Itoa(s.MaxHeartRate)
	row["status"] = "Complete"
	if c.End == "" {
		row["status"] = "Active"
	}
	return row
}

func cycleDetail(c *api.Cycle, color bool) []string {
	end := c.End
	if end == "" {
		end = "(active — current cycle)"
	}

	if c.ScoreState != api.ScoreStateScored || c.Score == nil {
		return []string{
			fmt.Sprintf("Cycle %d: (%s)", c.ID, stateLabel(c.ScoreState)),
			"  Start: " + c.Start,
			"  End:   " + end,
		}
	}

	s := c.Score
	return []string{
		fmt.Sprintf("Cycle %d", c.ID),
		"  Start:    " + c.Start,
		"  End:      " + end,
		"  Strain:   " + output.ColorStrain(s.Strain, color) + " / 21",
		"  Calories: " + output.Calories(s.Kilojoule) + " kcal",
		fmt.Sprintf("  Avg HR:   %d bpm", s.AverageHeartRate),
		fmt.Sprintf("  Max HR:   %d bpm", s.MaxHeartRate),
	}
}
