// Package aggregate maintains the derived totals of the transaction set.
//
// Every value is a fold over the full set: Compute is pure, and the Engine
// calls it again on each store change and publishes the result as one
// immutable Snapshot. Readers never combine values from different snapshots.
package aggregate

import (
	"sort"
	"time"

	"finboard/internal/core"
)

// Snapshot is the aggregate state of one store version.
type Snapshot struct {
	// Seq is the store feed sequence the snapshot reflects.
	Seq int64

	TotalIncome       core.Money
	TotalExpense      core.Money
	NetProfitLoss     core.Money
	IncomeByCategory  []core.CategoryTotal
	ExpenseByCategory []core.CategoryTotal

	// Transactions are ordered newest first.
	Transactions []core.Transaction
	ComputedAt   time.Time
}

// Totals returns the per-type sums.
func (s Snapshot) Totals() core.Totals {
	return core.Totals{Income: s.TotalIncome, Expense: s.TotalExpense}
}

// Breakdown returns the category totals of t.
func (s Snapshot) Breakdown(t core.TransactionType) []core.CategoryTotal {
	switch t {
	case core.Income:
		return s.IncomeByCategory
	case core.Expense:
		return s.ExpenseByCategory
	}
	return nil
}

// Compute folds txs into a snapshot. txs is not modified.
func Compute(txs []core.Transaction) Snapshot {
	sorted := make([]core.Transaction, len(txs))
	copy(sorted, txs)
	core.SortNewestFirst(sorted)

	var totals core.Totals
	income := map[string]int64{}
	expense := map[string]int64{}
	for _, t := range sorted {
		switch t.Type {
		case core.Income:
			totals.Income = totals.Income.Add(t.Amount)
			income[t.Category] += t.Amount.Cents
		case core.Expense:
			totals.Expense = totals.Expense.Add(t.Amount)
			expense[t.Category] += t.Amount.Cents
		}
	}

	return Snapshot{
		TotalIncome:       totals.Income,
		TotalExpense:      totals.Expense,
		NetProfitLoss:     totals.Net(),
		IncomeByCategory:  breakdown(core.Income, income),
		ExpenseByCategory: breakdown(core.Expense, expense),
		Transactions:      sorted,
	}
}

// breakdown lists the categories in vocabulary order. Strings outside the
// vocabulary sort after it by name.
func breakdown(t core.TransactionType, sums map[string]int64) []core.CategoryTotal {
	out := make([]core.CategoryTotal, 0, len(sums))
	for c, cents := range sums {
		out = append(out, core.CategoryTotal{Category: c, Total: core.Money{Cents: cents}})
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := core.CategoryRank(t, out[i].Category), core.CategoryRank(t, out[j].Category)
		if ri != rj {
			return ri < rj
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// clone returns a copy of s whose slices are not shared.
func (s Snapshot) clone() Snapshot {
	s.IncomeByCategory = append([]core.CategoryTotal(nil), s.IncomeByCategory...)
	s.ExpenseByCategory = append([]core.CategoryTotal(nil), s.ExpenseByCategory...)
	s.Transactions = append([]core.Transaction(nil), s.Transactions...)
	return s
}
