package report

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard/internal/core"
)

func day(d int) time.Time {
	return time.Date(2025, 5, d, 0, 0, 0, 0, time.UTC)
}

func tx(id int64, typ core.TransactionType, cat string, cents int64, d int) core.Transaction {
	return core.Transaction{
		ID: id, Title: cat + " item", Amount: core.Money{Cents: cents},
		Type: typ, Category: cat, Date: day(d),
	}
}

func totalsOf(txs []core.Transaction) (core.Money, core.Money) {
	var in, out core.Money
	for _, t := range txs {
		if t.Type == core.Income {
			in = in.Add(t.Amount)
		} else {
			out = out.Add(t.Amount)
		}
	}
	return in, out
}

func input(txs ...core.Transaction) Input {
	income, expense := totalsOf(txs)
	return Input{
		Transactions: txs,
		TotalIncome:  income,
		TotalExpense: expense,
		GeneratedAt:  time.Date(2025, 5, 31, 17, 45, 12, 0, time.UTC),
	}
}

func texts(r Row) []string {
	out := make([]string, len(r))
	for i, c := range r {
		out[i] = c.Text
	}
	return out
}

// breakdownRows returns the rows after the breakdown title.
func breakdownRows(t *testing.T, s *Sheet) []Row {
	t.Helper()
	for i, r := range s.Rows {
		if len(r) > 0 && r[0].Text == TitleBreakdown {
			return s.Rows[i+1:]
		}
	}
	t.Fatal("breakdown title not found")
	return nil
}

func TestGenerateScenario(t *testing.T) {
	doc, err := Generate(input(
		tx(1, core.Income, "Sales", 50000, 1),
		tx(2, core.Expense, "Rent", 20000, 2),
		tx(3, core.Expense, "Rent", 10000, 3),
	), Options{})
	require.NoError(t, err)

	require.Len(t, doc.Sheets, 4)
	assert.Equal(t, []string{SheetSummary, SheetTransactions, SheetIncome, SheetExpense},
		[]string{doc.Sheets[0].Name, doc.Sheets[1].Name, doc.Sheets[2].Name, doc.Sheets[3].Name})
	assert.True(t, doc.Profitable)
	assert.Equal(t, "BusinessReport_2025-05-31_17-45.xlsx", doc.Filename)

	summary := doc.Sheet(SheetSummary)
	require.NotNil(t, summary)
	assert.Equal(t, TitleSummary, summary.Rows[0][0].Text)
	assert.Equal(t, StyleTitle, summary.Rows[0][0].Style)
	assert.Nil(t, summary.Rows[1])

	metrics := summary.Rows[2:7]
	assert.Equal(t, LabelTotalIncome, metrics[0][0].Text)
	assert.Equal(t, 500.0, metrics[0][1].Number)
	assert.Equal(t, LabelTotalExpenses, metrics[1][0].Text)
	assert.Equal(t, 300.0, metrics[1][1].Number)
	assert.Equal(t, LabelNetProfitLoss, metrics[2][0].Text)
	assert.Equal(t, 200.0, metrics[2][1].Number)
	assert.Equal(t, StyleProfit, metrics[2][1].Style)
	assert.Equal(t, LabelProfitMargin, metrics[3][0].Text)
	assert.Equal(t, 40.0, metrics[3][1].Number)
	assert.Equal(t, LabelTotalTransactions, metrics[4][0].Text)
	assert.Equal(t, 3.0, metrics[4][1].Number)

	rows := breakdownRows(t, summary)
	require.Len(t, rows, 1)
	assert.Equal(t, "Rent", rows[0][0].Text)
	assert.Equal(t, 300.0, rows[0][1].Number)
	assert.Equal(t, "100.0%", rows[0][2].Text)
	assert.Equal(t, []float64{23, 16, 12}, summary.ColumnWidths)
}

func TestGenerateEmpty(t *testing.T) {
	doc, err := Generate(Input{}, Options{})
	require.NoError(t, err)

	summary := doc.Sheet(SheetSummary)
	assert.Empty(t, breakdownRows(t, summary))
	assert.Equal(t, 0.0, summary.Rows[5][1].Number, "profit margin")
	assert.Equal(t, 0.0, summary.Rows[6][1].Number, "transaction count")
	assert.Equal(t, StyleProfit, summary.Rows[4][1].Style)
	assert.True(t, doc.Profitable)

	for _, name := range []string{SheetTransactions, SheetIncome, SheetExpense} {
		s := doc.Sheet(name)
		require.NotNil(t, s, name)
		assert.Len(t, s.Rows, 1, "%s keeps only its header row", name)
	}
}

func TestGenerateLossAndNoIncome(t *testing.T) {
	doc, err := Generate(input(tx(1, core.Expense, "Taxes", 1234, 1)), Options{})
	require.NoError(t, err)

	summary := doc.Sheet(SheetSummary)
	assert.False(t, doc.Profitable)
	assert.Equal(t, StyleLoss, summary.Rows[4][1].Style)
	assert.Equal(t, -12.34, summary.Rows[4][1].Number)
	assert.Equal(t, 0.0, summary.Rows[5][1].Number)
}

func TestGenerateTransactionSheets(t *testing.T) {
	in := input(
		tx(1, core.Expense, "Rent", 20000, 10),
		tx(2, core.Income, "Sales", 9900, 12),
		tx(3, core.Expense, "Taxes", 500, 10),
		tx(4, core.Income, "Refunds", 100, 1),
	)
	in.Transactions[0].Notes = "May"
	doc, err := Generate(in, Options{})
	require.NoError(t, err)

	all := doc.Sheet(SheetTransactions)
	assert.Equal(t, []string{"Date", "Title", "Category", "Type", "Amount", "Notes"}, texts(all.Rows[0]))
	assert.Equal(t, StyleHeader, all.Rows[0][0].Style)
	require.Len(t, all.Rows, 5)
	assert.Equal(t, "2025-05-12", all.Rows[1][0].Text)
	assert.Equal(t, "Taxes", all.Rows[2][2].Text, "same date: higher id first")
	assert.Equal(t, "EXPENSE", all.Rows[3][3].Text)
	assert.Equal(t, -200.0, all.Rows[3][4].Number)
	assert.Equal(t, "May", all.Rows[3][5].Text)
	assert.Equal(t, 99.0, all.Rows[1][4].Number)

	income := doc.Sheet(SheetIncome)
	assert.Equal(t, []string{"Date", "Title", "Category", "Amount", "Notes"}, texts(income.Rows[0]))
	assert.Equal(t, StyleBold, income.Rows[0][0].Style)
	require.Len(t, income.Rows, 3)
	assert.Equal(t, "Sales", income.Rows[1][2].Text)
	assert.Equal(t, "Refunds", income.Rows[2][2].Text)

	expense := doc.Sheet(SheetExpense)
	require.Len(t, expense.Rows, 3)
	assert.Equal(t, 5.0, expense.Rows[1][3].Number, "expense amounts are unsigned")
	assert.Equal(t, []float64{16, 16, 16, 16, 16}, expense.ColumnWidths)
}

func TestGenerateDatesUseLocation(t *testing.T) {
	tr := tx(1, core.Income, "Sales", 100, 1)
	tr.Date = time.Date(2025, 5, 1, 23, 30, 0, 0, time.UTC)
	in := input(tr)

	loc := time.FixedZone("UTC+2", 2*60*60)
	doc, err := Generate(in, Options{Location: loc})
	require.NoError(t, err)

	assert.Equal(t, "2025-05-02", doc.Sheet(SheetTransactions).Rows[1][0].Text)
	assert.Equal(t, "BusinessReport_2025-05-31_19-45.xlsx", doc.Filename)
}

func TestGenerateBreakdownOrderAndPercentages(t *testing.T) {
	doc, err := Generate(input(
		tx(1, core.Expense, "Utilities", 100, 1),
		tx(2, core.Expense, "Rent", 100, 1),
		tx(3, core.Expense, "Salaries", 500, 1),
		tx(4, core.Expense, "Marketing", 300, 1),
		tx(5, core.Income, "Sales", 2000, 1),
	), Options{})
	require.NoError(t, err)

	rows := breakdownRows(t, doc.Sheet(SheetSummary))
	var cats, pcts []string
	for _, r := range rows {
		cats = append(cats, r[0].Text)
		pcts = append(pcts, r[2].Text)
	}
	assert.Equal(t, []string{"Salaries", "Marketing", "Rent", "Utilities"}, cats)
	assert.Equal(t, []string{"50.0%", "30.0%", "10.0%", "10.0%"}, pcts)
	for i := 1; i < len(rows); i++ {
		assert.GreaterOrEqual(t, rows[i-1][1].Number, rows[i][1].Number)
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	in := input(
		tx(1, core.Expense, "Rent", 1000, 3),
		tx(2, core.Expense, "Supplies", 333, 3),
		tx(3, core.Expense, "Transport", 333, 4),
		tx(4, core.Income, "Consulting", 5000, 2),
	)
	first, err := Generate(in, Options{})
	require.NoError(t, err)

	in.GeneratedAt = in.GeneratedAt.Add(3 * time.Hour)
	second, err := Generate(in, Options{})
	require.NoError(t, err)

	assert.Equal(t, first.Sheets, second.Sheets)
	assert.NotEqual(t, first.Filename, second.Filename)
}

func TestGenerateRejectsMalformedTransactions(t *testing.T) {
	cases := []struct {
		name string
		tx   core.Transaction
		want error
	}{
		{"zero amount", tx(1, core.Expense, "Rent", 0, 1), core.ErrInvalidAmount},
		{"bad type", tx(1, "TRANSFER", "Rent", 10, 1), core.ErrInvalidType},
		{"zero date", core.Transaction{ID: 1, Title: "x", Amount: core.Money{Cents: 1}, Type: core.Income, Category: "Sales"}, core.ErrZeroDate},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Generate(Input{Transactions: []core.Transaction{c.tx}}, Options{})
			require.Error(t, err)
			assert.True(t, core.IsGeneration(err))
			assert.True(t, errors.Is(err, c.want))
		})
	}

	_, err := Generate(Input{TotalExpense: core.Money{Cents: -1}}, Options{})
	assert.True(t, core.IsGeneration(err))
}

func TestPercentageRounding(t *testing.T) {
	cases := []struct {
		part, total int64
		want        string
	}{
		{1, 3, "33.3%"},
		{2, 3, "66.7%"},
		{1, 8, "12.5%"},   // 12.5 exact
		{1, 16, "6.2%"},   // 6.25 half to even
		{3, 16, "18.8%"},  // 18.75 half to even
		{30000, 30000, "100.0%"},
	}
	for _, c := range cases {
		got := Percentage(core.Money{Cents: c.part}, core.Money{Cents: c.total})
		assert.Equal(t, c.want, got, "%d/%d", c.part, c.total)
	}
}

func TestProfitMargin(t *testing.T) {
	assert.Equal(t, 0.0, ProfitMargin(core.Money{}, core.Money{Cents: 100}))
	assert.Equal(t, 40.0, ProfitMargin(core.Money{Cents: 50000}, core.Money{Cents: 30000}))
	assert.Equal(t, -50.0, ProfitMargin(core.Money{Cents: 200}, core.Money{Cents: 300}))
	assert.Equal(t, 33.3, ProfitMargin(core.Money{Cents: 300}, core.Money{Cents: 200}))
}
