package worklist

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsGrid is a Grid backed by one Google spreadsheet
type SheetsGrid struct {
	svc *sheets.Service
	id  string

	mu sync.Mutex
	// row inserted by an InsertRow whose value write failed
	blank *blankRow
}

type blankRow struct {
	sheet string
	at    int
}

type SheetsOptions struct {
	SpreadsheetID   string
	CredentialsFile string
	// Inline service account JSON; wins over CredentialsFile
	CredentialsJSON string
}

func NewSheetsGrid(ctx context.Context, opts SheetsOptions) (*SheetsGrid, error) {
	if opts.SpreadsheetID == "" {
		return nil, errors.New("spreadsheet id is required")
	}
	clientOpts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	switch {
	case opts.CredentialsJSON != "":
		clientOpts = append(clientOpts, option.WithCredentialsJSON([]byte(opts.CredentialsJSON)))
	case opts.CredentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	default:
		return nil, errors.New("no google credentials configured")
	}
	return newSheetsGrid(ctx, opts.SpreadsheetID, clientOpts...)
}

func newSheetsGrid(ctx context.Context, id string, clientOpts ...option.ClientOption) (*SheetsGrid, error) {
	svc, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &SheetsGrid{svc: svc, id: id}, nil
}

func quote(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

func cellRef(sheet string, row, col int) (string, error) {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", err
	}
	return quote(sheet) + "!" + name, nil
}

// notFound maps the API's range error for a missing tab onto ErrSheetNotFound
func notFound(err error, sheet string) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusBadRequest && strings.Contains(gerr.Message, "Unable to parse range") {
		return fmt.Errorf("%s: %w", sheet, ErrSheetNotFound)
	}
	return err
}

func toValues(row []string) []interface{} {
	out := make([]interface{}, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}

func (g *SheetsGrid) GetAllRows(ctx context.Context, sheet string) ([][]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.id, quote(sheet)).Context(ctx).Do()
	if err != nil {
		return nil, notFound(err, sheet)
	}
	rows := make([][]string, len(resp.Values))
	for i, r := range resp.Values {
		rows[i] = make([]string, len(r))
		for j, v := range r {
			rows[i][j] = fmt.Sprint(v)
		}
	}
	return rows, nil
}

func (g *SheetsGrid) UpdateCell(ctx context.Context, sheet string, row, col int, value string) error {
	ref, err := cellRef(sheet, row, col)
	if err != nil {
		return err
	}
	vr := &sheets.ValueRange{Values: [][]interface{}{{value}}}
	_, err = g.svc.Spreadsheets.Values.Update(g.id, ref, vr).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	return notFound(err, sheet)
}

func (g *SheetsGrid) sheetID(ctx context.Context, name string) (int64, bool, error) {
	meta, err := g.svc.Spreadsheets.Get(g.id).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, false, err
	}
	for _, s := range meta.Sheets {
		if s.Properties != nil && s.Properties.Title == name {
			return s.Properties.SheetId, true, nil
		}
	}
	return 0, false, nil
}

// InsertRow is two API calls. When the value write fails after the insert
// went through, the next call for the same position reuses the blank row.
func (g *SheetsGrid) InsertRow(ctx context.Context, sheet string, values []string, at int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.blank == nil || *g.blank != (blankRow{sheet, at}) {
		if err := g.insertBlank(ctx, sheet, at); err != nil {
			return err
		}
		g.blank = &blankRow{sheet, at}
	}
	ref, err := cellRef(sheet, at, 1)
	if err != nil {
		return err
	}
	vr := &sheets.ValueRange{Values: [][]interface{}{toValues(values)}}
	_, err = g.svc.Spreadsheets.Values.Update(g.id, ref, vr).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return err
	}
	g.blank = nil
	return nil
}

func (g *SheetsGrid) insertBlank(ctx context.Context, sheet string, at int) error {
	id, ok, err := g.sheetID(ctx, sheet)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", sheet, ErrSheetNotFound)
	}
	req := &sheets.BatchUpdateSpreadsheetRequest{Requests: []*sheets.Request{{
		InsertDimension: &sheets.InsertDimensionRequest{
			Range: &sheets.DimensionRange{
				SheetId:    id,
				Dimension:  "ROWS",
				StartIndex: int64(at - 1),
				EndIndex:   int64(at),
			},
			InheritFromBefore: at > 1,
		},
	}}}
	_, err = g.svc.Spreadsheets.BatchUpdate(g.id, req).Context(ctx).Do()
	return err
}

func (g *SheetsGrid) AppendRows(ctx context.Context, sheet string, rows [][]string) error {
	vr := &sheets.ValueRange{}
	for _, r := range rows {
		vr.Values = append(vr.Values, toValues(r))
	}
	_, err := g.svc.Spreadsheets.Values.Append(g.id, quote(sheet)+"!A1", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	return notFound(err, sheet)
}

func (g *SheetsGrid) GetOrCreateSheet(ctx context.Context, name string, header []string) error {
	_, ok, err := g.sheetID(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		req := &sheets.BatchUpdateSpreadsheetRequest{Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: name}},
		}}}
		if _, err := g.svc.Spreadsheets.BatchUpdate(g.id, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("add sheet %s: %w", name, err)
		}
	}
	if len(header) == 0 {
		return nil
	}
	first, err := g.svc.Spreadsheets.Values.Get(g.id, quote(name)+"!1:1").Context(ctx).Do()
	if err != nil {
		return err
	}
	if len(first.Values) > 0 && len(first.Values[0]) > 0 {
		return nil
	}
	vr := &sheets.ValueRange{Values: [][]interface{}{toValues(header)}}
	_, err = g.svc.Spreadsheets.Values.Update(g.id, quote(name)+"!A1", vr).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	return err
}
