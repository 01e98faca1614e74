package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"finboard/internal/core"
	applog "finboard/internal/log"
	"finboard/internal/report"
	"finboard/internal/report/xlsx"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.Snapshot()
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, summaryJSON{
		Seq:           snap.Seq,
		TotalIncome:   snap.TotalIncome.String(),
		TotalExpense:  snap.TotalExpense.String(),
		NetProfitLoss: snap.NetProfitLoss.String(),
		Profitable:    snap.NetProfitLoss.Cents >= 0,
		ProfitMargin:  report.ProfitMargin(snap.TotalIncome, snap.TotalExpense),
		Transactions:  len(snap.Transactions),
		Income:        categoryTotals(snap.IncomeByCategory, snap.TotalIncome),
		Expense:       categoryTotals(snap.ExpenseByCategory, snap.TotalExpense),
		ComputedAt:    snap.ComputedAt,
	})
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	typ, err := core.ParseTransactionType(chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	breakdown, err := s.engine.CategoryBreakdown(typ)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var total core.Money
	for _, c := range breakdown {
		total = total.Add(c.Total)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"type":       typ.String(),
		"categories": categoryTotals(breakdown, total),
	})
}

func categoryTotals(in []core.CategoryTotal, total core.Money) []categoryTotalJSON {
	out := make([]categoryTotalJSON, 0, len(in))
	for _, c := range in {
		out = append(out, categoryTotalJSON{
			Category:   c.Category,
			Total:      c.Total.String(),
			TotalCents: c.Total.Cents,
			Percentage: report.Percentage(c.Total, total),
		})
	}
	return out
}

// handleReport streams the workbook as an attachment.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rendered, err := s.reports.Render(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	fields := applog.NewFields().
		WithReport(rendered.Filename, rendered.Seq, rendered.Profitable).
		WithOperation(applog.OpExport)
	applog.FromContext(r.Context()).WithComponent(applog.ComponentReport).
		InfoContext(r.Context(), "Report downloaded", fields.ToSlice()...)

	h := w.Header()
	h.Set("Content-Type", xlsx.ContentType)
	h.Set("Content-Disposition", `attachment; filename="`+rendered.Filename+`"`)
	h.Set("Content-Length", strconv.Itoa(len(rendered.Data)))
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rendered.Data)
}

func (s *Server) handlePublishSheets(w http.ResponseWriter, r *http.Request) {
	if err := s.reports.PublishToSheets(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"published": true})
}
