package config

import (
	"os"
	"slices"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatCSV   = "csv"
	FormatYAML  = "yaml"
)

// Formats lists the accepted output formats.
var Formats = []string{FormatTable, FormatJSON, FormatCSV, FormatYAML}

// Unit systems.
const (
	UnitsMetric   = "metric"
	UnitsImperial = "imperial"
)

// DefaultLimit is the page size used when neither flag nor config sets one.
const DefaultLimit = 10

func validFormat(v string) bool {
	return slices.Contains(Formats, v)
}

// Flags carries the per-invocation overrides parsed by the command layer.
// Zero values mean "flag not given".
type Flags struct {
	JSON    bool
	CSV     bool
	Format  string
	Units   string
	NoColor bool
	Limit   int
}

// Settings is the fully resolved view used by commands.
type Settings struct {
	Format string
	Units  string
	Color  bool
	Limit  int
}

// Resolve merges flags, environment and persisted config. Precedence per setting:
//
//	format: --json / --csv / --format > config default_format > table
//	units:  --units > config units > metric
//	color:  --no-color > NO_COLOR env > config color > enabled
//	limit:  --limit > config default_limit > 10
func Resolve(f Flags, cfg *Config) Settings {
	if cfg == nil {
		cfg = &Config{}
	}

	s := Settings{
		Format: getConfig(formatFlag(f), "", firstNonEmpty(cfg.DefaultFormat, FormatTable)),
		Units:  getConfig(f.Units, "", firstNonEmpty(cfg.Units, UnitsMetric)),
		Color:  true,
		Limit:  DefaultLimit,
	}

	switch {
	case f.NoColor:
		s.Color = false
	case os.Getenv(EnvNoColor) != "":
		s.Color = false
	case cfg.Color != nil:
		s.Color = *cfg.Color
	}

	if f.Limit > 0 {
		s.Limit = f.Limit
	} else if cfg.DefaultLimit > 0 {
		s.Limit = cfg.DefaultLimit
	}

	return s
}

func formatFlag(f Flags) string {
	switch {
	case f.JSON:
		return FormatJSON
	case f.CSV:
		return FormatCSV
	default:
		return f.Format
	}
}

// getConfig returns value with priority: flag > env > default
func getConfig(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envKey == "" {
		return defaultValue
	}
	return getEnv(envKey, defaultValue)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
