package worklist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"
)

// XLSXGrid is a Grid backed by a local workbook. Every write is saved immediately.
type XLSXGrid struct {
	mu   sync.Mutex
	path string
	file *excelize.File
}

func NewXLSXGrid(path string) (*XLSXGrid, error) {
	f, err := excelize.OpenFile(path)
	if errors.Is(err, os.ErrNotExist) {
		f = excelize.NewFile()
		if err := f.SaveAs(path); err != nil {
			return nil, fmt.Errorf("create workbook: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return &XLSXGrid{path: path, file: f}, nil
}

func (g *XLSXGrid) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.file.Close()
}

func (g *XLSXGrid) exists(sheet string) bool {
	idx, err := g.file.GetSheetIndex(sheet)
	return err == nil && idx >= 0
}

func (g *XLSXGrid) GetAllRows(_ context.Context, sheet string) ([][]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.exists(sheet) {
		return nil, fmt.Errorf("%s: %w", sheet, ErrSheetNotFound)
	}
	return g.file.GetRows(sheet)
}

func (g *XLSXGrid) UpdateCell(_ context.Context, sheet string, row, col int, value string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.exists(sheet) {
		return fmt.Errorf("%s: %w", sheet, ErrSheetNotFound)
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := g.file.SetCellValue(sheet, cell, value); err != nil {
		return err
	}
	return g.file.Save()
}

func (g *XLSXGrid) writeRow(sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return g.file.SetSheetRow(sheet, cell, &values)
}

func (g *XLSXGrid) InsertRow(_ context.Context, sheet string, values []string, at int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.exists(sheet) {
		return fmt.Errorf("%s: %w", sheet, ErrSheetNotFound)
	}
	if err := g.file.InsertRows(sheet, at, 1); err != nil {
		return err
	}
	if err := g.writeRow(sheet, at, values); err != nil {
		return err
	}
	return g.file.Save()
}

func (g *XLSXGrid) AppendRows(_ context.Context, sheet string, rows [][]string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.exists(sheet) {
		return fmt.Errorf("%s: %w", sheet, ErrSheetNotFound)
	}
	existing, err := g.file.GetRows(sheet)
	if err != nil {
		return err
	}
	next := len(existing) + 1
	for i, r := range rows {
		if err := g.writeRow(sheet, next+i, r); err != nil {
			return err
		}
	}
	return g.file.Save()
}

func (g *XLSXGrid) GetOrCreateSheet(_ context.Context, name string, header []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.exists(name) {
		if _, err := g.file.NewSheet(name); err != nil {
			return fmt.Errorf("add sheet %s: %w", name, err)
		}
	}
	if len(header) > 0 {
		rows, err := g.file.GetRows(name)
		if err != nil {
			return err
		}
		if len(rows) == 0 || len(rows[0]) == 0 {
			if err := g.writeRow(name, 1, header); err != nil {
				return err
			}
		}
	}
	return g.file.Save()
}
