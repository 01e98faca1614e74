package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"finboard/internal/aggregate"
	"finboard/internal/core"
	"finboard/internal/report"
)

type addCmd struct {
	Type     string `required:"" enum:"income,expense,INCOME,EXPENSE" help:"income or expense."`
	Title    string `required:"" help:"Short description."`
	Amount   string `required:"" help:"Positive amount, e.g. 12.50."`
	Category string `required:"" help:"Category from the vocabulary of the type."`
	Date     string `help:"Day as YYYY-MM-DD; today when omitted."`
	Notes    string `help:"Free-form notes."`
}

func (c *addCmd) Run(g *Globals) error {
	ctx := context.Background()
	a, err := newApp(ctx, g, appOptions{withEvents: true})
	if err != nil {
		return err
	}
	defer a.Close()
	a.warnEphemeral()

	stop, err := a.startEngine(ctx)
	if err != nil {
		return err
	}
	defer stop()

	t, err := c.transaction(a.loc)
	if err != nil {
		return err
	}
	created, err := a.ledger.Create(ctx, t)
	if err != nil {
		return err
	}
	fmt.Printf("Added transaction %d: %s %s %s (%s)\n",
		created.ID, created.Type, created.Amount, created.Title, created.Category)
	return nil
}

func (c *addCmd) transaction(loc *time.Location) (core.Transaction, error) {
	typ, err := core.ParseTransactionType(c.Type)
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseMoney(c.Amount)
	if err != nil {
		return core.Transaction{}, &core.ValidationError{Field: "amount", Err: err}
	}
	y, m, d := time.Now().In(loc).Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, loc)
	if c.Date != "" {
		if date, err = core.ParseDay(c.Date, loc); err != nil {
			return core.Transaction{}, &core.ValidationError{Field: "date", Err: err}
		}
	}
	return core.Transaction{
		Title:    c.Title,
		Amount:   amount,
		Type:     typ,
		Category: c.Category,
		Date:     date,
		Notes:    c.Notes,
	}, nil
}

type listCmd struct {
	From string `help:"First day (YYYY-MM-DD), inclusive."`
	To   string `help:"Last day (YYYY-MM-DD), inclusive."`
}

func (c *listCmd) Run(g *Globals) error {
	ctx := context.Background()
	a, err := newApp(ctx, g, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	var f aggregate.Filter
	if c.From != "" {
		if f.From, err = core.ParseDay(c.From, a.loc); err != nil {
			return fmt.Errorf("parse --from: %w", err)
		}
	}
	if c.To != "" {
		to, err := core.ParseDay(c.To, a.loc)
		if err != nil {
			return fmt.Errorf("parse --to: %w", err)
		}
		f.To = core.EndOfDay(to)
	}

	stop, err := a.startEngine(ctx)
	if err != nil {
		return err
	}
	defer stop()

	txs, err := a.engine.Transactions(f)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tTYPE\tCATEGORY\tAMOUNT\tTITLE")
	for _, t := range txs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Date.In(a.loc).Format(core.DateLayout), t.Type, t.Category, t.Amount, t.Title)
	}
	return w.Flush()
}

type deleteCmd struct {
	ID int64 `arg:"" help:"Transaction id."`
}

func (c *deleteCmd) Run(g *Globals) error {
	ctx := context.Background()
	a, err := newApp(ctx, g, appOptions{withEvents: true})
	if err != nil {
		return err
	}
	defer a.Close()
	a.warnEphemeral()

	stop, err := a.startEngine(ctx)
	if err != nil {
		return err
	}
	defer stop()

	if err := a.ledger.Delete(ctx, c.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted transaction %d\n", c.ID)
	return nil
}

type summaryCmd struct{}

func (c *summaryCmd) Run(g *Globals) error {
	ctx := context.Background()
	a, err := newApp(ctx, g, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	stop, err := a.startEngine(ctx)
	if err != nil {
		return err
	}
	defer stop()

	snap, err := a.engine.Snapshot()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Total Income\t%s\n", snap.TotalIncome)
	fmt.Fprintf(w, "Total Expenses\t%s\n", snap.TotalExpense)
	fmt.Fprintf(w, "Net Profit/Loss\t%s\n", snap.NetProfitLoss)
	fmt.Fprintf(w, "Profit Margin\t%.1f%%\n", report.ProfitMargin(snap.TotalIncome, snap.TotalExpense))
	fmt.Fprintf(w, "Transactions\t%d\n", len(snap.Transactions))
	printBreakdown(w, "Income by category", snap.IncomeByCategory, snap.TotalIncome)
	printBreakdown(w, "Expenses by category", snap.ExpenseByCategory, snap.TotalExpense)
	return w.Flush()
}

func printBreakdown(w *tabwriter.Writer, title string, rows []core.CategoryTotal, total core.Money) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\t\t\n", title)
	for _, r := range rows {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", r.Category, r.Total, report.Percentage(r.Total, total))
	}
}

type exportCmd struct {
	Dir    string `help:"Output directory; REPORT_DIR when omitted."`
	Sheets bool   `help:"Also publish the report to Google Sheets."`
}

func (c *exportCmd) Run(g *Globals) error {
	ctx := context.Background()
	a, err := newApp(ctx, g, appOptions{withSheets: c.Sheets})
	if err != nil {
		return err
	}
	defer a.Close()

	stop, err := a.startEngine(ctx)
	if err != nil {
		return err
	}
	defer stop()

	dir := c.Dir
	if dir == "" {
		dir = a.cfg.ReportDir
	}
	path, err := a.reports.Export(ctx, dir)
	if err != nil {
		return err
	}
	fmt.Printf("Report written to %s\n", path)

	if c.Sheets {
		if err := a.reports.PublishToSheets(ctx); err != nil {
			return err
		}
		fmt.Println("Report published to Google Sheets")
	}
	return nil
}
