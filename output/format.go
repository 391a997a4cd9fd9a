// Package output renders command results as tables, CSV, JSON or YAML.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/charmbracelet/x/ansi"
	"gopkg.in/yaml.v3"

	"github.com/go-whoop/whoop-cli/config"
)

// Missing is shown for absent values.
const Missing = "—"

// NoData is printed for an empty table.
const NoData = "No data found."

// Column is one output column. Key indexes into a Row.
type Column struct {
	Key    string
	Header string
}

// Row maps column keys to rendered cell values.
type Row map[string]string

// Options controls how rows are written.
type Options struct {
	Format   string
	Color    bool
	Quiet    bool
	QuietKey string
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// WriteRows writes rows in the requested format. Quiet mode prints only the
// QuietKey column, one value per line.
func WriteRows(w io.Writer, rows []Row, cols []Column, opts Options) error {
	if opts.Quiet && opts.QuietKey != "" {
		for _, r := range rows {
			if _, err := fmt.Fprintln(w, ansi.Strip(r[opts.QuietKey])); err != nil {
				return err
			}
		}
		return nil
	}

	switch opts.Format {
	case config.FormatCSV:
		return WriteCSV(w, rows, cols)
	case config.FormatJSON:
		return WriteJSON(w, plainRows(rows, cols))
	case config.FormatYAML:
		return WriteYAML(w, plainRows(rows, cols))
	default:
		return WriteTable(w, rows, cols, opts.Color)
	}
}

// WriteTable draws a bordered table.
func WriteTable(w io.Writer, rows []Row, cols []Column, color bool) error {
	if len(rows) == 0 {
		return Println(w, color, Dim(NoData, color))
	}

	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.Header
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)

	for _, r := range rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = cell(r, c.Key, color)
		}
		t.Row(cells...)
	}

	if color {
		t.BorderStyle(borderStyle).StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	} else {
		t.StyleFunc(func(int, int) lipgloss.Style { return cellStyle })
	}

	return Println(w, color, t.String())
}

// WriteCSV writes a header line and one line per row. Color codes are removed.
func WriteCSV(w io.Writer, rows []Row, cols []Column) error {
	cw := csv.NewWriter(w)

	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.Header
	}
	if err := cw.Write(headers); err != nil {
		return err
	}

	for _, r := range rows {
		record := make([]string, len(cols))
		for i, c := range cols {
			record[i] = ansi.Strip(r[c.Key])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// WriteYAML writes v as YAML.
func WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// Println writes s followed by a newline. With color on, escape sequences are
// adapted to what the destination terminal supports.
func Println(w io.Writer, color bool, s string) error {
	if color {
		_, err := lipgloss.Fprintln(w, s)
		return err
	}
	_, err := fmt.Fprintln(w, ansi.Strip(s))
	return err
}

// Lines writes each line with Println.
func Lines(w io.Writer, color bool, lines ...string) error {
	return Println(w, color, strings.Join(lines, "\n"))
}

func cell(r Row, key string, color bool) string {
	v, ok := r[key]
	if !ok || v == "" {
		return Missing
	}
	if !color {
		return ansi.Strip(v)
	}
	return v
}

// plainRows converts rows into ordered maps keyed by header for structured output.
func plainRows(rows []Row, cols []Column) []map[string]string {
	out := make([]map[string]string, 0, len(rows))
	for _, r := range rows {
		m := make(map[string]string, len(cols))
		for _, c := range cols {
			m[c.Key] = ansi.Strip(r[c.Key])
		}
		out = append(out, m)
	}
	return out
}
