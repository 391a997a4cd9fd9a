package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/go-whoop/whoop-cli/api"
	"github.com/go-whoop/whoop-cli/config"
	"github.com/go-whoop/whoop-cli/output"
	"github.com/go-whoop/whoop-cli/paginate"
)

const dateFlagHelp = "(ISO 8601 or relative: 7d, 2w, 1m, today, yesterday)"

// listFlags are shared by every collection command.
type listFlags struct {
	start string
	end   string
	limit int
	all   bool
	pages int
}

func (lf *listFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&lf.start, "start", "", "Start date "+dateFlagHelp)
	cmd.Flags().StringVar(&lf.end, "end", "", "End date "+dateFlagHelp)
	cmd.Flags().IntVarP(&lf.limit, "limit", "l", 0, "Number of records to fetch")
	cmd.Flags().BoolVar(&lf.all, "all", false, "Fetch all pages")
	cmd.Flags().IntVar(&lf.pages, "pages", 0, "Number of pages to fetch")
	cmd.MarkFlagsMutuallyExclusive("all", "limit")
	cmd.MarkFlagsMutuallyExclusive("all", "pages")
}

func (lf *listFlags) validate() error {
	if lf.limit < 0 {
		return fmt.Errorf("invalid value for --limit: %d. Must be at least 1", lf.limit)
	}
	if lf.pages < 0 {
		return fmt.Errorf("invalid value for --pages: %d. Must be at least 1", lf.pages)
	}
	return nil
}

// showsProgress reports whether more than one page may be fetched.
func (lf *listFlags) showsProgress() bool {
	return lf.all || lf.pages > 1
}

// baseParams builds the date filters and, when no paging flag is set, the
// single-page size from the settings.
func (a *App) baseParams(lf *listFlags) (api.ListParams, error) {
	var p api.ListParams
	now := a.now()

	if lf.start != "" {
		s, err := paginate.ParseDate(lf.start, now)
		if err != nil {
			return p, err
		}
		p.Start = s
	}
	if lf.end != "" {
		e, err := paginate.ParseDate(lf.end, now)
		if err != nil {
			return p, err
		}
		p.End = e
	}
	if !lf.all && lf.limit == 0 && lf.pages == 0 {
		p.Limit = a.settings.Limit
	}
	return p, nil
}

// fetchList runs the pagination engine for one resource with a progress line
// on stderr while several pages are fetched.
func fetchList[T any](ctx context.Context, a *App, lf *listFlags, fetch paginate.FetchFunc[T]) ([]T, error) {
	if err := lf.validate(); err != nil {
		return nil, err
	}
	base, err := a.baseParams(lf)
	if err != nil {
		return nil, err
	}

	progress := lf.showsProgress()
	records, err := paginate.Paginate(ctx, fetch, base, paginate.Options[T]{
		Limit:          lf.limit,
		All:            lf.all,
		Pages:          lf.pages,
		InterPageDelay: a.interPageDelay,
		OnPage: func(_ []T, page int, hasMore bool) {
			if progress && hasMore {
				fmt.Fprintf(a.Err, "\rFetching page %d...", page)
			}
		},
	})
	if progress {
		fmt.Fprint(a.Err, "\r"+strings.Repeat(" ", 60)+"\r")
	}
	return records, err
}

// outputOptions returns the row-writer options for the current invocation.
func (a *App) outputOptions(quietKey string) output.Options {
	return output.Options{
		Format:   a.settings.Format,
		Color:    a.settings.Color,
		Quiet:    a.quiet,
		QuietKey: quietKey,
	}
}

// writeList prints records: raw JSON/YAML for structured formats (quiet is
// ignored there), rows otherwise.
func writeList[T any](a *App, records []T, cols []output.Column, quietKey string, toRow func(T) output.Row) error {
	switch a.settings.Format {
	case config.FormatJSON:
		return output.WriteJSON(a.Out, nonNil(records))
	case config.FormatYAML:
		return output.WriteYAML(a.Out, nonNil(records))
	}

	rows := make([]output.Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, toRow(r))
	}
	return output.WriteRows(a.Out, rows, cols, a.outputOptions(quietKey))
}

// writeRecord prints a single record: raw for structured formats, a one-row
// CSV, or the detail view.
func writeRecord(a *App, v any, csvRow func() ([]output.Column, output.Row), detail func() []string) error {
	switch a.settings.Format {
	case config.FormatJSON:
		return output.WriteJSON(a.Out, v)
	case config.FormatYAML:
		return output.WriteYAML(a.Out, v)
	case config.FormatCSV:
		if csvRow != nil {
			cols, row := csvRow()
			return output.WriteCSV(a.Out, []output.Row{row}, cols)
		}
	}
	return output.Lines(a.Out, a.settings.Color, detail()...)
}

func nonNil[T any](records []T) []T {
	if records == nil {
		return []T{}
	}
	return records
}

// datePart returns the YYYY-MM-DD prefix of an ISO timestamp.
func datePart(ts string) string {
	date, _, _ := strings.Cut(ts, "T")
	return date
}
