package report

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

// SheetsSink implements Sink using the Google Sheets API. Each portfolio
// occupies one sheet in a single spreadsheet.
type SheetsSink struct {
	spreadsheetID string
	svc           *sheets.Service
}

// NewSheetsSink creates a SheetsSink authenticated with a service account JSON.
func NewSheetsSink(ctx context.Context, spreadsheetID, credentialsJSON string) (*SheetsSink, error) {
	creds, err := google.CredentialsFromJSON(
		ctx,
		[]byte(credentialsJSON),
		sheets.SpreadsheetsScope,
	)
	if err != nil {
		return nil, fmt.Errorf("parsing google credentials: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	return &SheetsSink{spreadsheetID: spreadsheetID, svc: svc}, nil
}

// UpsertPortfolioReport writes the portfolio table. A new sheet gets the
// full table; an existing sheet only receives month columns it does not
// have yet, so historical columns are never rewritten.
func (w *SheetsSink) UpsertPortfolioReport(ctx context.Context, portfolioID string, assets []AssetRow, indexes []IndexRow) error {
	name := SheetName(portfolioID)

	created, err := w.ensureSheet(ctx, name)
	if err != nil {
		return err
	}

	if created {
		return w.writeFullTable(ctx, name, assets, indexes)
	}
	return w.appendNewMonths(ctx, name, assets, indexes)
}

func (w *SheetsSink) writeFullTable(ctx context.Context, name string, assets []AssetRow, indexes []IndexRow) error {
	values := [][]any{headerRow()}
	for _, row := range assets {
		values = append(values, assetRowValues(row))
	}
	values = append(values, []any{}) // blank separator before index block
	for _, row := range indexes {
		values = append(values, indexRowValues(row))
	}

	_, err := w.svc.Spreadsheets.Values.Update(
		w.spreadsheetID,
		fmt.Sprintf("%s!A1", name),
		&sheets.ValueRange{Values: values},
	).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("writing report table for %s: %w", name, err)
	}
	return nil
}

// appendNewMonths writes only the month columns beyond those already
// present in the sheet, for the asset block and the index block.
func (w *SheetsSink) appendNewMonths(ctx context.Context, name string, assets []AssetRow, indexes []IndexRow) error {
	if len(assets) == 0 {
		return nil
	}

	existing, err := w.existingMonthCount(ctx, name)
	if err != nil {
		return err
	}

	have := len(assets[0].Monthly)
	if have <= existing {
		return nil
	}

	startCol := FixedColumns + existing + 1
	endCol := FixedColumns + have
	data := []*sheets.ValueRange{
		{
			Range:  blockRange(name, startCol, endCol, 2, 1+len(assets)),
			Values: monthBlock(assetsMonthly(assets), existing, have),
		},
	}
	if len(indexes) > 0 {
		firstIndexRow := len(assets) + 3 // header + assets + blank separator
		data = append(data, &sheets.ValueRange{
			Range:  blockRange(name, startCol, endCol, firstIndexRow, firstIndexRow+len(indexes)-1),
			Values: monthBlock(indexesMonthly(indexes), existing, have),
		})
	}

	_, err = w.svc.Spreadsheets.Values.BatchUpdate(
		w.spreadsheetID,
		&sheets.BatchUpdateValuesRequest{
			ValueInputOption: "USER_ENTERED",
			Data:             data,
		},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("appending month columns for %s: %w", name, err)
	}
	return nil
}

// existingMonthCount derives how many month columns the sheet already holds
// from the first asset data row.
func (w *SheetsSink) existingMonthCount(ctx context.Context, name string) (int, error) {
	resp, err := w.svc.Spreadsheets.Values.Get(
		w.spreadsheetID, fmt.Sprintf("%s!A2:ZZ2", name),
	).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("reading report row for %s: %w", name, err)
	}
	if len(resp.Values) == 0 {
		return 0, nil
	}
	months := len(resp.Values[0]) - FixedColumns
	if months < 0 {
		return 0, nil
	}
	return months, nil
}

// ensureSheet creates the named sheet if missing and reports whether it did.
func (w *SheetsSink) ensureSheet(ctx context.Context, name string) (bool, error) {
	spreadsheet, err := w.svc.Spreadsheets.Get(w.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("getting spreadsheet metadata: %w", err)
	}

	for _, s := range spreadsheet.Sheets {
		if s.Properties.Title == name {
			return false, nil
		}
	}

	_, err = w.svc.Spreadsheets.BatchUpdate(
		w.spreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: name},
				},
			}},
		},
	).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("creating sheet %s: %w", name, err)
	}
	return true, nil
}

func blockRange(name string, startCol, endCol, startRow, endRow int) string {
	return fmt.Sprintf("%s!%s%d:%s%d", name, columnLetter(startCol), startRow, columnLetter(endCol), endRow)
}

// monthBlock builds the rectangular value block for month columns
// [from, to) across the given per-row monthly slices.
func monthBlock(monthly [][]*decimal.Decimal, from, to int) [][]any {
	block := make([][]any, len(monthly))
	for i, months := range monthly {
		row := make([]any, 0, to-from)
		for m := from; m < to; m++ {
			if m < len(months) {
				row = append(row, ptrFloat(months[m]))
			} else {
				row = append(row, nil)
			}
		}
		block[i] = row
	}
	return block
}

func assetsMonthly(assets []AssetRow) [][]*decimal.Decimal {
	out := make([][]*decimal.Decimal, len(assets))
	for i, a := range assets {
		out[i] = a.Monthly
	}
	return out
}

func indexesMonthly(indexes []IndexRow) [][]*decimal.Decimal {
	out := make([][]*decimal.Decimal, len(indexes))
	for i, ix := range indexes {
		out[i] = ix.Monthly
	}
	return out
}

func assetRowValues(row AssetRow) []any {
	values := []any{
		row.Name,
		row.Symbol,
		row.ID,
		toFloat(row.InitialPrice),
		toFloat(row.Change24h),
		toFloat(row.Change7d),
		toFloat(row.MarketCap),
	}
	for _, price := range row.Monthly {
		values = append(values, ptrFloat(price))
	}
	return values
}

// indexRowValues pads an index row so its initial price lands in the
// Initial Price column and its month prices align with the asset block.
func indexRowValues(row IndexRow) []any {
	values := []any{row.Name, "", "", ptrFloat(row.Initial), "", "", ""}
	for _, price := range row.Monthly {
		values = append(values, ptrFloat(price))
	}
	return values
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func ptrFloat(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	f, _ := d.Float64()
	return f
}
