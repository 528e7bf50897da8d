package ingest

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/dselans/music-catalog/catalog"
	"github.com/dselans/music-catalog/util"
)

type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

type Result struct {
	Source   string
	Status   Status
	Err      error
	Dropped  int
	Stats    map[catalog.Kind]catalog.MergeStats
	Duration time.Duration
}

type Report struct {
	RunID     string
	DryRun    bool
	StartedAt time.Time
	Duration  time.Duration
	Results   []*Result
}

// Failed returns the results of connectors that were configured but failed.
func (r *Report) Failed() []*Result {
	var failed []*Result

	for _, res := range r.Results {
		if res.Status == StatusFailed {
			failed = append(failed, res)
		}
	}

	return failed
}

// Totals sums merge stats per kind across all connectors.
func (r *Report) Totals() map[catalog.Kind]catalog.MergeStats {
	totals := make(map[catalog.Kind]catalog.MergeStats, len(catalog.Kinds))

	for _, res := range r.Results {
		for kind, stats := range res.Stats {
			t := totals[kind]
			t.Add(stats)
			totals[kind] = t
		}
	}

	return totals
}

// RenderReport formats the report as a table with one row per connector.
func RenderReport(r *Report) string {
	if r == nil {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := table.Row{"Source", "Status"}
	for _, kind := range catalog.Kinds {
		header = append(header, util.CapitalizeFirstChar(string(kind)))
	}

	header = append(header, "Dropped", "Duration", "Error")
	tw.AppendHeader(header)

	for _, res := range r.Results {
		row := table.Row{res.Source, string(res.Status)}

		for _, kind := range catalog.Kinds {
			stats, ok := res.Stats[kind]
			if !ok {
				row = append(row, "-")
				continue
			}

			row = append(row, formatStats(stats))
		}

		errText := ""
		if res.Err != nil {
			errText = res.Err.Error()
		}

		row = append(row, res.Dropped, res.Duration.Round(time.Millisecond).String(), errText)
		tw.AppendRow(row)
	}

	columns := len(header)
	configs := make([]table.ColumnConfig, 0, columns)

	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i >= 2 && i < columns-1 {
			align = text.AlignRight
		}

		configs = append(configs, table.ColumnConfig{
			Number:           i + 1,
			Align:            align,
			AlignHeader:      text.AlignLeft,
			WidthMax:         60,
			WidthMaxEnforcer: text.WrapSoft,
		})
	}

	tw.SetColumnConfigs(configs)

	title := "run " + r.RunID
	if r.DryRun {
		title += " (dry run, nothing written)"
	}

	tw.SetTitle(title)

	return tw.Render()
}

func formatStats(s catalog.MergeStats) string {
	return fmt.Sprintf("+%d ~%d =%d !%d", s.Inserted, s.Updated, s.Unchanged, s.Skipped)
}
