package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"finboard/internal/core"
)

// Sheet names, in document order.
const (
	SheetSummary      = "Dashboard Summary"
	SheetTransactions = "All Transactions"
	SheetIncome       = "Income Details"
	SheetExpense      = "Expense Details"
)

const (
	TitleSummary   = "BUSINESS FINANCIAL SUMMARY"
	TitleBreakdown = "EXPENSE BREAKDOWN BY CATEGORY"

	LabelTotalIncome       = "Total Income"
	LabelTotalExpenses     = "Total Expenses"
	LabelNetProfitLoss     = "Net Profit/Loss"
	LabelProfitMargin      = "Profit Margin (%)"
	LabelTotalTransactions = "Total Transactions"
)

const (
	filenamePrefix = "BusinessReport_"
	filenameLayout = "2006-01-02_15-04"
	FileExtension  = ".xlsx"
)

var (
	summaryWidths = []float64{23, 16, 12}
	listWidth     = 16.0

	transactionColumns = []string{"Date", "Title", "Category", "Type", "Amount", "Notes"}
	detailColumns      = []string{"Date", "Title", "Category", "Amount", "Notes"}
)

// Input is a frozen copy of the data a report is built from.
type Input struct {
	Transactions []core.Transaction
	TotalIncome  core.Money
	TotalExpense core.Money
	// GeneratedAt only names the output file.
	GeneratedAt time.Time
}

type Options struct {
	// Location formats dates and the filename. UTC when nil.
	Location *time.Location
}

// Filename returns the report file name for a generation time.
func Filename(at time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return filenamePrefix + at.In(loc).Format(filenameLayout) + FileExtension
}

// Generate builds the report. The same Input always yields the same sheets.
func Generate(in Input, opts Options) (*Document, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	if in.TotalIncome.Cents < 0 || in.TotalExpense.Cents < 0 {
		return nil, &core.GenerationError{Stage: "validate", Err: fmt.Errorf("negative totals (income %s, expense %s)", in.TotalIncome, in.TotalExpense)}
	}

	txs := make([]core.Transaction, len(in.Transactions))
	copy(txs, in.Transactions)
	for _, t := range txs {
		if err := checkTransaction(t); err != nil {
			return nil, &core.GenerationError{Stage: "validate", Err: fmt.Errorf("transaction %d: %w", t.ID, err)}
		}
	}
	core.SortNewestFirst(txs)

	var income, expense []core.Transaction
	for _, t := range txs {
		if t.Type == core.Income {
			income = append(income, t)
		} else {
			expense = append(expense, t)
		}
	}

	net := in.TotalIncome.Sub(in.TotalExpense)
	doc := &Document{
		Sheets: []Sheet{
			summarySheet(in, txs, expense),
			transactionsSheet(txs, loc),
			detailSheet(SheetIncome, income, loc),
			detailSheet(SheetExpense, expense, loc),
		},
		Profitable: net.Cents >= 0,
		Filename:   Filename(in.GeneratedAt, loc),
	}
	return doc, nil
}

// checkTransaction rejects records a store should never hold. Categories
// outside the vocabulary are reported as they are.
func checkTransaction(t core.Transaction) error {
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Type.IsValid() {
		return core.ErrInvalidType
	}
	if t.Date.IsZero() {
		return core.ErrZeroDate
	}
	return nil
}

func summarySheet(in Input, txs, expense []core.Transaction) Sheet {
	net := in.TotalIncome.Sub(in.TotalExpense)
	netStyle := StyleProfit
	if net.Cents < 0 {
		netStyle = StyleLoss
	}

	rows := []Row{
		{TextCell(TitleSummary).WithStyle(StyleTitle)},
		nil,
		{TextCell(LabelTotalIncome), NumberCell(in.TotalIncome.Float())},
		{TextCell(LabelTotalExpenses), NumberCell(in.TotalExpense.Float())},
		{TextCell(LabelNetProfitLoss), NumberCell(net.Float()).WithStyle(netStyle)},
		{TextCell(LabelProfitMargin), NumberCell(ProfitMargin(in.TotalIncome, in.TotalExpense))},
		{TextCell(LabelTotalTransactions), NumberCell(float64(len(txs)))},
		nil,
		{TextCell(TitleBreakdown).WithStyle(StyleTitle)},
	}

	if in.TotalExpense.Cents > 0 {
		for _, c := range ExpenseBreakdown(expense) {
			rows = append(rows, Row{
				TextCell(c.Category),
				NumberCell(c.Total.Float()),
				TextCell(Percentage(c.Total, in.TotalExpense)),
			})
		}
	}

	return Sheet{
		Name:         SheetSummary,
		ColumnWidths: append([]float64(nil), summaryWidths...),
		Rows:         rows,
	}
}

func transactionsSheet(txs []core.Transaction, loc *time.Location) Sheet {
	rows := make([]Row, 0, len(txs)+1)
	rows = append(rows, headerRow(transactionColumns, StyleHeader))
	for _, t := range txs {
		rows = append(rows, Row{
			TextCell(t.Date.In(loc).Format(core.DateLayout)),
			TextCell(t.Title),
			TextCell(t.Category),
			TextCell(t.Type.String()),
			NumberCell(core.Money{Cents: t.Signed()}.Float()),
			TextCell(t.Notes),
		})
	}
	return Sheet{Name: SheetTransactions, ColumnWidths: widths(len(transactionColumns)), Rows: rows}
}

func detailSheet(name string, txs []core.Transaction, loc *time.Location) Sheet {
	rows := make([]Row, 0, len(txs)+1)
	rows = append(rows, headerRow(detailColumns, StyleBold))
	for _, t := range txs {
		rows = append(rows, Row{
			TextCell(t.Date.In(loc).Format(core.DateLayout)),
			TextCell(t.Title),
			TextCell(t.Category),
			NumberCell(t.Amount.Float()),
			TextCell(t.Notes),
		})
	}
	return Sheet{Name: name, ColumnWidths: widths(len(detailColumns)), Rows: rows}
}

func headerRow(cols []string, s Style) Row {
	row := make(Row, len(cols))
	for i, c := range cols {
		row[i] = TextCell(c).WithStyle(s)
	}
	return row
}

func widths(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = listWidth
	}
	return w
}

// ExpenseBreakdown sums expenses per category, largest first. Equal amounts
// are ordered by category name.
func ExpenseBreakdown(expense []core.Transaction) []core.CategoryTotal {
	sums := map[string]int64{}
	for _, t := range expense {
		sums[t.Category] += t.Amount.Cents
	}
	out := make([]core.CategoryTotal, 0, len(sums))
	for c, cents := range sums {
		out = append(out, core.CategoryTotal{Category: c, Total: core.Money{Cents: cents}})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total.Cents != out[j].Total.Cents {
			return out[i].Total.Cents > out[j].Total.Cents
		}
		return out[i].Category < out[j].Category
	})
	return out
}

var hundred = decimal.NewFromInt(100)

// ProfitMargin is (income - expense) / income * 100, rounded half to even to
// one decimal place, or 0 when there is no income.
func ProfitMargin(income, expense core.Money) float64 {
	if income.Cents <= 0 {
		return 0
	}
	net := decimal.NewFromInt(income.Cents - expense.Cents)
	m, _ := net.Mul(hundred).Div(decimal.NewFromInt(income.Cents)).RoundBank(1).Float64()
	return m
}

// Percentage formats part as a share of total with one decimal, e.g. "12.5%".
func Percentage(part, total core.Money) string {
	if total.Cents <= 0 {
		return "0.0%"
	}
	p := decimal.NewFromInt(part.Cents).Mul(hundred).Div(decimal.NewFromInt(total.Cents))
	return p.RoundBank(1).StringFixed(1) + "%"
}
