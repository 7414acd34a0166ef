package worklist

import (
	"context"
	"fmt"
	"strconv"

	"github.com/qepting91/threadbot/internal/domain"
	"github.com/qepting91/threadbot/internal/normalize"
)

const RunHistorySheet = "Run History"

var RunHistoryHeader = []string{
	"RUN ID", "RUN TS", "MODE", "TARGET", "NAME", "STATUS", "RESULT URL",
	"MESSAGE", "PROCESSED", "SUCCESS", "FAILED", "GSHEET API CALLS",
}

const historyTime = "2006-01-02 15:04:05"

// History appends one row per processed target to the Run History sheet
type History struct {
	client *Client
}

func NewHistory(c *Client) *History {
	return &History{client: c}
}

// Record writes the run. A run with no results still gets a SUMMARY row.
func (h *History) Record(ctx context.Context, s domain.RunSummary) error {
	if err := h.client.GetOrCreateSheet(ctx, RunHistorySheet, RunHistoryHeader); err != nil {
		return fmt.Errorf("run history sheet: %w", err)
	}
	rows := HistoryRows(s)
	if err := h.client.AppendRows(ctx, RunHistorySheet, rows); err != nil {
		return fmt.Errorf("append run history: %w", err)
	}
	return nil
}

// HistoryRows renders a summary in Run History layout
func HistoryRows(s domain.RunSummary) [][]string {
	totals := []string{
		strconv.Itoa(s.Pending),
		strconv.Itoa(s.Success),
		strconv.Itoa(s.Failed),
		strconv.FormatInt(s.APICalls, 10),
	}
	if len(s.Results) == 0 {
		ts := s.FinishedAt.In(normalize.PKT).Format(historyTime)
		return [][]string{append([]string{s.RunID, ts, s.Mode, "", "", "SUMMARY", "", ""}, totals...)}
	}
	rows := make([][]string, 0, len(s.Results))
	for _, r := range s.Results {
		status := r.Status
		if r.Status != domain.RowDone && r.Notes != "" {
			status = r.Status + ": " + r.Notes
		}
		row := []string{
			s.RunID,
			r.ProcessedAt.In(normalize.PKT).Format(historyTime),
			string(r.Mode),
			r.Target,
			r.Name,
			status,
			r.ResultURL,
			r.Message,
		}
		rows = append(rows, append(row, totals...))
	}
	return rows
}
