package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/go-whoop/whoop-cli/api"
	"github.com/go-whoop/whoop-cli/output"
)

func newProfileCommand(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "View your WHOOP profile",
		Example: `  whoop profile
  whoop profile --json
  whoop profile body`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.authedAPI()
			if err != nil {
				return err
			}
			p, err := client.GetProfile(cmd.Context())
			if err != nil {
				return err
			}
			return writeRecord(a, p,
				func() ([]output.Column, output.Row) { return profileColumns, profileRow(p) },
				func() []string { return profileDetail(p) },
			)
		},
	}

	cmd.AddCommand(newProfileBodyCommand(a))
	return cmd
}

func newProfileBodyCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "body",
		Short: "View your body measurements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.authedAPI()
			if err != nil {
				return err
			}
			b, err := client.GetBodyMeasurement(cmd.Context())
			if err != nil {
				return err
			}
			return writeRecord(a, b,
				func() ([]output.Column, output.Row) { return bodyColumns, bodyRow(b) },
				func() []string { return bodyDetail(b) },
			)
		},
	}
}

var profileColumns = []output.Column{
	{Key: "userId", Header: "User ID"},
	{Key: "firstName", Header: "First Name"},
	{Key: "lastName", Header: "Last Name"},
	{Key: "email", Header: "Email"},
}

func profileRow(p *api.Profile) output.Row {
	return output.Row{
		"userId":    strconv.FormatInt(p.UserID, 10),
		"firstName": p.FirstName,
		"lastName":  p.LastName,
		"email":     p.Email,
	}
}

func profileDetail(p *api.Profile) []string {
	return []string{
		fmt.Sprintf("Name:    %s %s", p.FirstName, p.LastName),
		"Email:   " + p.Email,
		fmt.Sprintf("User ID: %d", p.UserID),
	}
}

var bodyColumns = []output.Column{
	{Key: "heightMeter", Header: "Height (m)"},
	{Key: "weightKilogram", Header: "Weight (kg)"},
	{Key: "maxHeartRate", Header: "Max HR"},
}

func bodyRow(b *api.BodyMeasurement) output.Row {
	return output.Row{
		"heightMeter":    fmt.Sprintf("%.2f", b.HeightMeter),
		"weightKilogram": fmt.Sprintf("%.1f", b.WeightKilogram),
		"maxHeartRate":   strconv.Itoa(b.MaxHeartRate),
	}
}

// bodyDetail shows metric values with the imperial equivalent alongside.
func bodyDetail(b *api.BodyMeasurement) []string {
	return []string{
		fmt.Sprintf("Height:         %.2fm (%s)", b.HeightMeter, output.FeetInches(b.HeightMeter)),
		fmt.Sprintf("Weight:         %.1fkg (%glb)", b.WeightKilogram, output.KgToLbs(b.WeightKilogram)),
		fmt.Sprintf("Max Heart Rate: %d bpm", b.MaxHeartRate),
	}
}
