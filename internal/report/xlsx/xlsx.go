// Package xlsx renders a report.Document as an Office Open XML workbook.
package xlsx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"finboard/internal/core"
	"finboard/internal/report"
)

// ContentType is the MIME type of the encoded workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var styleDefs = map[report.Style]*excelize.Style{
	report.StyleTitle: {
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"1F3864"}},
	},
	report.StyleHeader: {
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"C0C0C0"}},
	},
	report.StyleBold:   {Font: &excelize.Font{Bold: true}},
	report.StyleProfit: {Font: &excelize.Font{Bold: true, Color: "008000"}},
	report.StyleLoss:   {Font: &excelize.Font{Bold: true, Color: "FF0000"}},
}

// Encode writes doc to w. Nothing is written unless the whole workbook was
// built.
func Encode(doc *report.Document, w io.Writer) error {
	buf, err := render(doc)
	if err != nil {
		return err
	}
	if _, err := buf.WriteTo(w); err != nil {
		return &core.GenerationError{Stage: "write", Err: err}
	}
	return nil
}

// Bytes returns the encoded workbook.
func Bytes(doc *report.Document) ([]byte, error) {
	buf, err := render(doc)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes doc to dir under doc.Filename and returns the path. The
// workbook is written to a temporary file first, so a failed write never
// leaves a partial report at the final path.
func WriteFile(dir string, doc *report.Document) (string, error) {
	if doc == nil || doc.Filename == "" {
		return "", &core.GenerationError{Stage: "write", Err: errors.New("document has no filename")}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &core.GenerationError{Stage: "write", Err: fmt.Errorf("create report directory: %w", err)}
	}

	tmp, err := os.CreateTemp(dir, ".report-*.tmp")
	if err != nil {
		return "", &core.GenerationError{Stage: "write", Err: fmt.Errorf("create temp file: %w", err)}
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if err := Encode(doc, tmp); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", &core.GenerationError{Stage: "write", Err: fmt.Errorf("sync temp file: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		return "", &core.GenerationError{Stage: "write", Err: fmt.Errorf("close temp file: %w", err)}
	}

	path := filepath.Join(dir, doc.Filename)
	if err := os.Rename(tmpName, path); err != nil {
		return "", &core.GenerationError{Stage: "write", Err: fmt.Errorf("rename report: %w", err)}
	}
	committed = true
	return path, nil
}

func render(doc *report.Document) (*bytes.Buffer, error) {
	if doc == nil || len(doc.Sheets) == 0 {
		return nil, &core.GenerationError{Stage: "serialize", Err: errors.New("document has no sheets")}
	}

	f := excelize.NewFile()
	defer f.Close()

	b := &builder{f: f, styles: map[report.Style]int{}}
	for i, s := range doc.Sheets {
		if err := b.sheet(i, s); err != nil {
			return nil, &core.GenerationError{Stage: "serialize", Err: fmt.Errorf("sheet %q: %w", s.Name, err)}
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, &core.GenerationError{Stage: "serialize", Err: err}
	}
	return buf, nil
}

type builder struct {
	f      *excelize.File
	styles map[report.Style]int
}

func (b *builder) sheet(index int, s report.Sheet) error {
	if index == 0 {
		// A new workbook starts with one default sheet.
		if err := b.f.SetSheetName(b.f.GetSheetName(0), s.Name); err != nil {
			return err
		}
	} else if _, err := b.f.NewSheet(s.Name); err != nil {
		return err
	}

	for col, w := range s.ColumnWidths {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		if err := b.f.SetColWidth(s.Name, name, name, w); err != nil {
			return err
		}
	}

	for r, row := range s.Rows {
		for c, cell := range row {
			if cell.Kind == report.KindEmpty {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := b.f.SetCellValue(s.Name, ref, cell.Value()); err != nil {
				return err
			}
			if cell.Style == report.StyleNone {
				continue
			}
			id, err := b.style(cell.Style)
			if err != nil {
				return err
			}
			if err := b.f.SetCellStyle(s.Name, ref, ref, id); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *builder) style(s report.Style) (int, error) {
	if id, ok := b.styles[s]; ok {
		return id, nil
	}
	def, ok := styleDefs[s]
	if !ok {
		return 0, fmt.Errorf("unknown style %q", s)
	}
	id, err := b.f.NewStyle(def)
	if err != nil {
		return 0, fmt.Errorf("create style %q: %w", s, err)
	}
	b.styles[s] = id
	return id, nil
}
