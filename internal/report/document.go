// Package report builds the four-sheet business report as a declarative
// document. Serializers in subpackages turn a Document into files.
package report

// Style tags a cell for serializers. The zero value is unstyled.
type Style string

const (
	StyleNone Style = ""
	// StyleTitle marks section titles of the summary sheet.
	StyleTitle Style = "title"
	// StyleHeader marks the column header row of the transaction list.
	StyleHeader Style = "header"
	// StyleBold marks column headers of the detail sheets.
	StyleBold   Style = "bold"
	StyleProfit Style = "profit"
	StyleLoss   Style = "loss"
)

type CellKind int

const (
	KindEmpty CellKind = iota
	KindText
	KindNumber
)

// Cell is one typed spreadsheet value.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
	Style  Style
}

func TextCell(s string) Cell {
	return Cell{Kind: KindText, Text: s}
}

func NumberCell(f float64) Cell {
	return Cell{Kind: KindNumber, Number: f}
}

// WithStyle returns c tagged with s.
func (c Cell) WithStyle(s Style) Cell {
	c.Style = s
	return c
}

// Value returns the cell as a string, float64 or nil.
func (c Cell) Value() any {
	switch c.Kind {
	case KindText:
		return c.Text
	case KindNumber:
		return c.Number
	}
	return nil
}

// Row is a list of cells starting at the first column. A nil Row is blank.
type Row []Cell

type Sheet struct {
	Name string
	// ColumnWidths are in character units, first column first.
	ColumnWidths []float64
	Rows         []Row
}

type Document struct {
	Sheets []Sheet
	// Profitable is true when net profit/loss is zero or positive.
	Profitable bool
	Filename   string
}

// Sheet returns the sheet with the given name, or nil.
func (d *Document) Sheet(name string) *Sheet {
	for i := range d.Sheets {
		if d.Sheets[i].Name == name {
			return &d.Sheets[i]
		}
	}
	return nil
}
