// Package google publishes report documents to a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finboard/internal/core"
	"finboard/internal/report"
)

// pixelsPerChar converts document column widths to sheet pixels.
const pixelsPerChar = 7

type Publisher struct {
	svc           *gsheet.Service
	spreadsheetID string
}

// NewPublisher authenticates with service account credentials.
func NewPublisher(ctx context.Context, spreadsheetID string, credentialsJSON []byte) (*Publisher, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if len(credentialsJSON) == 0 {
		return nil, errors.New("missing service account credentials")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, spreadsheetID), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID string) *Publisher {
	return &Publisher{svc: svc, spreadsheetID: spreadsheetID}
}

// LoadCredentials returns inline JSON when set, else the contents of file.
func LoadCredentials(inlineJSON, file string) ([]byte, error) {
	switch {
	case strings.TrimSpace(inlineJSON) != "":
		return []byte(inlineJSON), nil
	case strings.TrimSpace(file) != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	}
	return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
}

// Publish replaces the content of one tab per document sheet, creating
// missing tabs. Other tabs are left alone.
func (p *Publisher) Publish(ctx context.Context, doc *report.Document) error {
	if p.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if doc == nil || len(doc.Sheets) == 0 {
		return &core.GenerationError{Stage: "publish", Err: errors.New("document has no sheets")}
	}

	ids, err := p.ensureTabs(ctx, doc)
	if err != nil {
		return err
	}

	ranges := make([]string, 0, len(doc.Sheets))
	data := make([]*gsheet.ValueRange, 0, len(doc.Sheets))
	for _, s := range doc.Sheets {
		ranges = append(ranges, quote(s.Name))
		data = append(data, &gsheet.ValueRange{
			Range:  quote(s.Name) + "!A1",
			Values: values(s),
		})
	}

	if _, err := p.svc.Spreadsheets.Values.BatchClear(p.spreadsheetID,
		&gsheet.BatchClearValuesRequest{Ranges: ranges}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear report tabs: %w", err)
	}

	if _, err := p.svc.Spreadsheets.Values.BatchUpdate(p.spreadsheetID, &gsheet.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             data,
	}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("write report values: %w", err)
	}

	var reqs []*gsheet.Request
	for _, s := range doc.Sheets {
		reqs = append(reqs, formatRequests(ids[s.Name], s)...)
	}
	if len(reqs) > 0 {
		if _, err := p.svc.Spreadsheets.BatchUpdate(p.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
			Requests: reqs,
		}).Context(ctx).Do(); err != nil {
			return fmt.Errorf("format report tabs: %w", err)
		}
	}

	slog.InfoContext(ctx, "Report published to Google Sheets",
		"spreadsheet_id", p.spreadsheetID,
		"sheets", len(doc.Sheets),
		"profitable", doc.Profitable)
	return nil
}

// ensureTabs returns the sheet id of every document sheet, adding missing tabs.
func (p *Publisher) ensureTabs(ctx context.Context, doc *report.Document) (map[string]int64, error) {
	ss, err := p.svc.Spreadsheets.Get(p.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet: %w", err)
	}

	ids := make(map[string]int64, len(doc.Sheets))
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			ids[s.Properties.Title] = s.Properties.SheetId
		}
	}

	var add []*gsheet.Request
	var added []string
	for _, s := range doc.Sheets {
		if _, ok := ids[s.Name]; ok {
			continue
		}
		add = append(add, &gsheet.Request{AddSheet: &gsheet.AddSheetRequest{
			Properties: &gsheet.SheetProperties{Title: s.Name},
		}})
		added = append(added, s.Name)
	}
	if len(add) == 0 {
		return ids, nil
	}

	resp, err := p.svc.Spreadsheets.BatchUpdate(p.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: add,
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("add report tabs: %w", err)
	}
	for i, r := range resp.Replies {
		if i < len(added) && r.AddSheet != nil && r.AddSheet.Properties != nil {
			ids[added[i]] = r.AddSheet.Properties.SheetId
		}
	}
	slog.InfoContext(ctx, "Created report tabs", "tabs", added)
	return ids, nil
}

func values(s report.Sheet) [][]interface{} {
	out := make([][]interface{}, len(s.Rows))
	for i, row := range s.Rows {
		vals := make([]interface{}, len(row))
		for j, c := range row {
			if v := c.Value(); v != nil {
				vals[j] = v
			} else {
				vals[j] = ""
			}
		}
		out[i] = vals
	}
	return out
}

func formatRequests(sheetID int64, s report.Sheet) []*gsheet.Request {
	var reqs []*gsheet.Request
	for i, w := range s.ColumnWidths {
		reqs = append(reqs, &gsheet.Request{UpdateDimensionProperties: &gsheet.UpdateDimensionPropertiesRequest{
			Range: &gsheet.DimensionRange{
				SheetId:    sheetID,
				Dimension:  "COLUMNS",
				StartIndex: int64(i),
				EndIndex:   int64(i + 1),
			},
			Properties: &gsheet.DimensionProperties{PixelSize: int64(w * pixelsPerChar)},
			Fields:     "pixelSize",
		}})
	}
	for r, row := range s.Rows {
		for c, cell := range row {
			format := cellFormat(cell.Style)
			if format == nil {
				continue
			}
			reqs = append(reqs, &gsheet.Request{RepeatCell: &gsheet.RepeatCellRequest{
				Range: &gsheet.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    int64(r),
					EndRowIndex:      int64(r + 1),
					StartColumnIndex: int64(c),
					EndColumnIndex:   int64(c + 1),
				},
				Cell:   &gsheet.CellData{UserEnteredFormat: format},
				Fields: "userEnteredFormat(textFormat,backgroundColor)",
			}})
		}
	}
	return reqs
}

func cellFormat(s report.Style) *gsheet.CellFormat {
	switch s {
	case report.StyleTitle:
		return &gsheet.CellFormat{
			BackgroundColor: rgb(0x1F, 0x38, 0x64),
			TextFormat:      &gsheet.TextFormat{Bold: true, ForegroundColor: rgb(0xFF, 0xFF, 0xFF)},
		}
	case report.StyleHeader:
		return &gsheet.CellFormat{
			BackgroundColor: rgb(0xC0, 0xC0, 0xC0),
			TextFormat:      &gsheet.TextFormat{Bold: true},
		}
	case report.StyleBold:
		return &gsheet.CellFormat{TextFormat: &gsheet.TextFormat{Bold: true}}
	case report.StyleProfit:
		return &gsheet.CellFormat{TextFormat: &gsheet.TextFormat{Bold: true, ForegroundColor: rgb(0x00, 0x80, 0x00)}}
	case report.StyleLoss:
		return &gsheet.CellFormat{TextFormat: &gsheet.TextFormat{Bold: true, ForegroundColor: rgb(0xFF, 0x00, 0x00)}}
	}
	return nil
}

func rgb(r, g, b int) *gsheet.Color {
	return &gsheet.Color{Red: float64(r) / 255, Green: float64(g) / 255, Blue: float64(b) / 255}
}

// quote makes a sheet name usable in A1 notation.
func quote(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
