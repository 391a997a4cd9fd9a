package output

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/go-whoop/whoop-cli/config"
)

// Duration renders milliseconds as "7h 42m", "12m 05s" or "9s". With long
// set, hours also carry seconds.
func Duration(ms int64, long bool) string {
	if ms < 0 {
		ms = 0
	}
	total := int64(math.Round(float64(ms) / 1000))
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60

	switch {
	case h > 0 && long:
		return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
	case h > 0:
		return fmt.Sprintf("%dh %02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// KJToKcal converts kilojoules to whole kilocalories.
func KJToKcal(kj float64) int64 {
	return int64(math.Round(kj / 4.184))
}

// Calories renders kilojoules as comma-grouped kilocalories.
func Calories(kj float64) string {
	return humanize.Comma(KJToKcal(kj))
}

// FeetInches renders meters as 6'0".
func FeetInches(m float64) string {
	totalInches := m * 39.3701
	feet := int(math.Floor(totalInches / 12))
	inches := int(math.Round(math.Mod(totalInches, 12)))
	if inches == 12 {
		feet++
		inches = 0
	}
	return fmt.Sprintf("%d'%d\"", feet, inches)
}

// KgToLbs converts kilograms to pounds, one decimal.
func KgToLbs(kg float64) float64 {
	return round(kg*2.20462, 1)
}

// CelsiusToFahrenheit converts, one decimal.
func CelsiusToFahrenheit(c float64) float64 {
	return round(c*9/5+32, 1)
}

// MetersToMiles converts, two decimals.
func MetersToMiles(m float64) float64 {
	return round(m/1609.344, 2)
}

// MetersToKm converts, two decimals.
func MetersToKm(m float64) float64 {
	return round(m/1000, 2)
}

// Height renders a height in the chosen unit system.
func Height(m float64, units string) string {
	if units == config.UnitsImperial {
		return FeetInches(m)
	}
	return fmt.Sprintf("%.2f m", m)
}

// Weight renders a weight in the chosen unit system.
func Weight(kg float64, units string) string {
	if units == config.UnitsImperial {
		return fmt.Sprintf("%.1f lb", KgToLbs(kg))
	}
	return fmt.Sprintf("%.1f kg", kg)
}

// Distance renders a distance, or Missing when absent.
func Distance(m *float64, units string) string {
	if m == nil {
		return Missing
	}
	if units == config.UnitsImperial {
		return fmt.Sprintf("%g mi", MetersToMiles(*m))
	}
	return fmt.Sprintf("%g km", MetersToKm(*m))
}

// Elevation renders an altitude gain, or Missing when absent.
func Elevation(m *float64, units string) string {
	if m == nil {
		return Missing
	}
	if units == config.UnitsImperial {
		return fmt.Sprintf("%.0f ft", math.Round(*m*3.28084))
	}
	return fmt.Sprintf("%.0f m", math.Round(*m))
}

// Temperature renders a skin temperature, or Missing when absent.
func Temperature(c *float64, units string) string {
	if c == nil {
		return Missing
	}
	if units == config.UnitsImperial {
		return fmt.Sprintf("%.1f°F", CelsiusToFahrenheit(*c))
	}
	return fmt.Sprintf("%.1f°C", *c)
}

// Percent renders a percentage with one decimal, or Missing.
func Percent(v *float64) string {
	if v == nil {
		return Missing
	}
	return fmt.Sprintf("%.1f%%", *v)
}

// Float renders a value with one decimal and a suffix, or Missing.
func Float(v *float64, suffix string) string {
	if v == nil {
		return Missing
	}
	return fmt.Sprintf("%.1f%s", *v, suffix)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
