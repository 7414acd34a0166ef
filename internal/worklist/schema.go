package worklist

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// MsgList column positions (1-based). The first ten are the v1 layout;
// v2 appends DATE TIME DONE.
const (
	ColMode = iota + 1
	ColName
	ColTarget
	ColCity
	ColPosts
	ColFollowers
	ColMessage
	ColStatus
	ColNotes
	ColResultURL
	ColDoneAt
)

var (
	MsgListHeaderV1 = []string{"MODE", "NAME", "NICK/URL", "CITY", "POSTS", "FOLLOWERS", "MESSAGE", "STATUS", "NOTES", "RESULT URL"}
	MsgListHeader   = append(append([]string{}, MsgListHeaderV1...), "DATE TIME DONE")

	msgListNames = []string{"MsgList", "MessageList"}
)

// Row is one MsgList data row, parsed once at snapshot time
type Row struct {
	Index     int
	Mode      string
	Name      string
	Target    string
	City      string
	Posts     string
	Followers string
	Message   string
	Status    string
	Notes     string
	ResultURL string
	DoneAt    string
}

// ParseRow maps cells onto the v2 layout. Short rows leave trailing fields empty.
func ParseRow(index int, cells []string) Row {
	cell := func(col int) string {
		if col-1 < len(cells) {
			return strings.TrimSpace(cells[col-1])
		}
		return ""
	}
	return Row{
		Index:     index,
		Mode:      cell(ColMode),
		Name:      cell(ColName),
		Target:    cell(ColTarget),
		City:      cell(ColCity),
		Posts:     cell(ColPosts),
		Followers: cell(ColFollowers),
		Message:   cell(ColMessage),
		Status:    cell(ColStatus),
		Notes:     cell(ColNotes),
		ResultURL: cell(ColResultURL),
		DoneAt:    cell(ColDoneAt),
	}
}

// MsgList is the primary worklist sheet
type MsgList struct {
	client *Client
	sheet  string
}

// EnsureMsgList finds the worklist sheet under either of its historical names,
// creating it with the current header when neither exists, and upgrades a v1
// header in place.
func EnsureMsgList(ctx context.Context, c *Client) (*MsgList, error) {
	for _, name := range msgListNames {
		rows, err := c.GetAllRows(ctx, name)
		if errors.Is(err, ErrSheetNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		m := &MsgList{client: c, sheet: name}
		if err := m.upgradeHeader(ctx, rows); err != nil {
			return nil, err
		}
		return m, nil
	}

	name := msgListNames[0]
	if err := c.GetOrCreateSheet(ctx, name, MsgListHeader); err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}
	return &MsgList{client: c, sheet: name}, nil
}

func (m *MsgList) upgradeHeader(ctx context.Context, rows [][]string) error {
	if len(rows) == 0 || len(strings.Join(rows[0], "")) == 0 {
		for i, h := range MsgListHeader {
			if err := m.client.UpdateCell(ctx, m.sheet, 1, i+1, h); err != nil {
				return fmt.Errorf("write header: %w", err)
			}
		}
		return nil
	}
	header := rows[0]
	if len(header) >= ColDoneAt && strings.TrimSpace(header[ColDoneAt-1]) != "" {
		return nil
	}
	return m.client.UpdateCell(ctx, m.sheet, 1, ColDoneAt, MsgListHeader[ColDoneAt-1])
}

func (m *MsgList) Name() string {
	return m.sheet
}

// Snapshot reads every data row once. Row indexes are sheet row numbers.
func (m *MsgList) Snapshot(ctx context.Context) ([]Row, error) {
	rows, err := m.client.GetAllRows(ctx, m.sheet)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", m.sheet, err)
	}
	var out []Row
	for i := 1; i < len(rows); i++ {
		out = append(out, ParseRow(i+1, rows[i]))
	}
	return out, nil
}

// SetCell writes one cell of a data row
func (m *MsgList) SetCell(ctx context.Context, row, col int, value string) error {
	return m.client.UpdateCell(ctx, m.sheet, row, col, value)
}

// WriteResult records a terminal status. Empty resultURL and doneAt leave those cells alone.
func (m *MsgList) WriteResult(ctx context.Context, row int, status, notes, resultURL, doneAt string) error {
	var errs []error
	writes := []struct {
		col   int
		value string
		skip  bool
	}{
		{ColStatus, status, false},
		{ColNotes, notes, false},
		{ColResultURL, resultURL, resultURL == ""},
		{ColDoneAt, doneAt, doneAt == ""},
	}
	for _, w := range writes {
		if w.skip {
			continue
		}
		if err := m.SetCell(ctx, row, w.col, w.value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
