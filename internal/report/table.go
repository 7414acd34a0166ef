package report

import (
	"context"
	"io"
	"sort"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/qepting91/threadbot/internal/domain"
)

// TableHook prints the run as a table once it finishes
type TableHook struct {
	Out io.Writer
}

func (h *TableHook) Name() string {
	return "table"
}

func (h *TableHook) AfterRun(_ context.Context, s domain.RunSummary) error {
	Render(h.Out, s)
	return nil
}

// Render writes per-target rows followed by per-status totals
func Render(w io.Writer, s domain.RunSummary) {
	rows := table.NewWriter()
	rows.SetOutputMirror(w)
	rows.SetTitle("Run " + s.RunID)
	rows.SetStyle(table.StyleLight)
	rows.AppendHeader(table.Row{"Row", "Mode", "Target", "Status", "Notes", "Result URL"})
	for _, r := range s.Results {
		rows.AppendRow(table.Row{r.Row, r.Mode, r.Target, r.Status, r.Notes, r.ResultURL})
	}
	rows.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, WidthMax: 40},
		{Number: 5, WidthMax: 40},
	})
	rows.AppendFooter(table.Row{"", "", "Total", strconv.Itoa(s.Processed())})
	rows.Render()

	counts := map[string]int{}
	for _, r := range s.Results {
		counts[r.Status]++
	}
	statuses := make([]string, 0, len(counts))
	for k := range counts {
		statuses = append(statuses, k)
	}
	sort.Strings(statuses)

	totals := table.NewWriter()
	totals.SetOutputMirror(w)
	totals.SetStyle(table.StyleLight)
	totals.AppendHeader(table.Row{"Status", "Count"})
	for _, st := range statuses {
		totals.AppendRow(table.Row{st, counts[st]})
	}
	totals.AppendSeparator()
	totals.AppendRow(table.Row{"Success", s.Success})
	totals.AppendRow(table.Row{"Failed", s.Failed})
	totals.AppendRow(table.Row{"Sheet API calls", s.APICalls})
	totals.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	totals.Render()
}
