package core

import "strings"

// Category is a member of one of the two fixed vocabularies. It is stored as
// a plain string.
type Category string

const (
	Sales       Category = "Sales"
	Services    Category = "Services"
	Consulting  Category = "Consulting"
	Investments Category = "Investments"
	Refunds     Category = "Refunds"
	OtherIncome Category = "Other Income"

	Inventory    Category = "Inventory"
	Salaries     Category = "Salaries"
	Rent         Category = "Rent"
	Utilities    Category = "Utilities"
	Marketing    Category = "Marketing"
	Equipment    Category = "Equipment"
	Supplies     Category = "Supplies"
	Transport    Category = "Transport"
	Insurance    Category = "Insurance"
	Taxes        Category = "Taxes"
	Maintenance  Category = "Maintenance"
	OtherExpense Category = "Other Expense"
)

var (
	incomeCategories = []Category{
		Sales, Services, Consulting, Investments, Refunds, OtherIncome,
	}
	expenseCategories = []Category{
		Inventory, Salaries, Rent, Utilities, Marketing, Equipment,
		Supplies, Transport, Insurance, Taxes, Maintenance, OtherExpense,
	}
)

// Categories returns a copy of the ordered vocabulary for t.
func Categories(t TransactionType) []Category {
	switch t {
	case Income:
		return append([]Category(nil), incomeCategories...)
	case Expense:
		return append([]Category(nil), expenseCategories...)
	}
	return nil
}

// ParseCategory resolves s against the vocabulary of t, ignoring case and
// surrounding whitespace.
func ParseCategory(t TransactionType, s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories(t) {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", &ValidationError{Field: "category", Err: ErrUnknownCategory}
}

// CategoryRank is the position of c in the vocabulary of t, or len(vocab)
// for strings outside it.
func CategoryRank(t TransactionType, c string) int {
	vocab := Categories(t)
	for i, v := range vocab {
		if string(v) == c {
			return i
		}
	}
	return len(vocab)
}
