package core

import (
	"sort"
	"time"
)

// SortNewestFirst orders txs by date descending, then by id descending so
// that among same-date transactions the most recently inserted comes first.
func SortNewestFirst(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return newer(txs[i], txs[j])
	})
}

// IsNewestFirst reports whether txs is ordered as SortNewestFirst orders it.
func IsNewestFirst(txs []Transaction) bool {
	for i := 1; i < len(txs); i++ {
		if newer(txs[i], txs[i-1]) {
			return false
		}
	}
	return true
}

func newer(a, b Transaction) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.After(b.Date)
	}
	return a.ID > b.ID
}

// InRange reports whether t falls within the inclusive range [from, to].
// A zero bound is open.
func InRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}
