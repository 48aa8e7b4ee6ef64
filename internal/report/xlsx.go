package report

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// XLSXSink implements Sink with a local Excel workbook, one sheet per
// portfolio. The workbook is shared by the creation and snapshot workers,
// so writes are serialized.
type XLSXSink struct {
	mu   sync.Mutex
	path string
}

// NewXLSXSink creates a sink writing to the workbook at path. The file is
// created on first write.
func NewXLSXSink(path string) *XLSXSink {
	return &XLSXSink{path: path}
}

func (w *XLSXSink) UpsertPortfolioReport(ctx context.Context, portfolioID string, assets []AssetRow, indexes []IndexRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := w.open()
	if err != nil {
		return err
	}
	defer f.Close()

	name := SheetName(portfolioID)
	idx, err := f.GetSheetIndex(name)
	if err != nil {
		return fmt.Errorf("looking up sheet %s: %w", name, err)
	}

	if idx < 0 {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("creating sheet %s: %w", name, err)
		}
		if err := w.writeFullTable(f, name, assets, indexes); err != nil {
			return err
		}
	} else if err := w.appendNewMonths(f, name, assets, indexes); err != nil {
		return err
	}

	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", w.path, err)
	}
	return nil
}

func (w *XLSXSink) open() (*excelize.File, error) {
	if _, err := os.Stat(w.path); os.IsNotExist(err) {
		return excelize.NewFile(), nil
	}
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", w.path, err)
	}
	return f, nil
}

func (w *XLSXSink) writeFullTable(f *excelize.File, name string, assets []AssetRow, indexes []IndexRow) error {
	rows := [][]any{headerRow()}
	for _, row := range assets {
		rows = append(rows, assetRowValues(row))
	}
	rows = append(rows, nil) // blank separator before index block
	for _, row := range indexes {
		rows = append(rows, indexRowValues(row))
	}

	for i, row := range rows {
		if row == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("writing row %d of %s: %w", i+1, name, err)
		}
	}
	return nil
}

func (w *XLSXSink) appendNewMonths(f *excelize.File, name string, assets []AssetRow, indexes []IndexRow) error {
	if len(assets) == 0 {
		return nil
	}

	existing, err := w.existingMonthCount(f, name)
	if err != nil {
		return err
	}
	have := len(assets[0].Monthly)
	if have <= existing {
		return nil
	}

	for i, row := range assets {
		if err := w.setMonthCells(f, name, i+2, row.Monthly, existing, have); err != nil {
			return err
		}
	}
	firstIndexRow := len(assets) + 3
	for i, row := range indexes {
		if err := w.setMonthCells(f, name, firstIndexRow+i, row.Monthly, existing, have); err != nil {
			return err
		}
	}
	return nil
}

// setMonthCells writes month columns [from, to) of one row, leaving cells
// for unavailable quotes blank.
func (w *XLSXSink) setMonthCells(f *excelize.File, name string, rowNum int, monthly []*decimal.Decimal, from, to int) error {
	for m := from; m < to; m++ {
		if m >= len(monthly) || monthly[m] == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(FixedColumns+m+1, rowNum)
		if err != nil {
			return err
		}
		value, _ := monthly[m].Float64()
		if err := f.SetCellValue(name, cell, value); err != nil {
			return fmt.Errorf("writing cell %s of %s: %w", cell, name, err)
		}
	}
	return nil
}

func (w *XLSXSink) existingMonthCount(f *excelize.File, name string) (int, error) {
	rows, err := f.GetRows(name)
	if err != nil {
		return 0, fmt.Errorf("reading sheet %s: %w", name, err)
	}
	if len(rows) < 2 {
		return 0, nil
	}
	months := len(rows[1]) - FixedColumns
	if months < 0 {
		return 0, nil
	}
	return months, nil
}
