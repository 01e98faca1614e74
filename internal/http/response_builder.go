package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"finboard/internal/aggregate"
	"finboard/internal/core"
	applog "finboard/internal/log"
	"finboard/internal/services"
)

type errorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto status codes. Internal details of
// store and generation failures are logged, not returned.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	body := errorBody{Error: code, RequestID: applog.RequestID(r.Context())}

	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		body.Field = verr.Field
		body.Message = verr.Error()
	case status == http.StatusNotFound:
		body.Message = "transaction not found"
	case status == http.StatusServiceUnavailable:
		body.Message = "transaction store unavailable"
	case status == http.StatusNotImplemented:
		body.Message = err.Error()
	default:
		body.Message = "internal error"
	}

	if status >= 500 {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldError, err, applog.FieldStatusCode, status)
	} else {
		slog.DebugContext(r.Context(), "Request rejected", applog.FieldError, err)
	}
	writeJSON(w, status, body)
}

func classify(err error) (int, string) {
	switch {
	case core.IsValidation(err):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case core.IsStore(err), errors.Is(err, aggregate.ErrNotReady):
		return http.StatusServiceUnavailable, "store_unavailable"
	case errors.Is(err, services.ErrSheetsDisabled):
		return http.StatusNotImplemented, "sheets_disabled"
	case core.IsGeneration(err):
		return http.StatusInternalServerError, "generation_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

type transactionJSON struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Date        string `json:"date"`
	Notes       string `json:"notes"`
}

func toJSON(t core.Transaction, loc *time.Location) transactionJSON {
	return transactionJSON{
		ID:          t.ID,
		Title:       t.Title,
		Amount:      t.Amount.String(),
		AmountCents: t.Amount.Cents,
		Type:        t.Type.String(),
		Category:    t.Category,
		Date:        t.Date.In(loc).Format(core.DateLayout),
		Notes:       t.Notes,
	}
}

type categoryTotalJSON struct {
	Category   string `json:"category"`
	Total      string `json:"total"`
	TotalCents int64  `json:"total_cents"`
	Percentage string `json:"percentage"`
}

type summaryJSON struct {
	Seq           int64               `json:"seq"`
	TotalIncome   string              `json:"total_income"`
	TotalExpense  string              `json:"total_expense"`
	NetProfitLoss string              `json:"net_profit_loss"`
	Profitable    bool                `json:"profitable"`
	ProfitMargin  float64             `json:"profit_margin"`
	Transactions  int                 `json:"transactions"`
	Income        []categoryTotalJSON `json:"income_by_category"`
	Expense       []categoryTotalJSON `json:"expense_by_category"`
	ComputedAt    time.Time           `json:"computed_at"`
}
