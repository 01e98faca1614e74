package http

import (
	"net/http"
	"strconv"

	"finboard/internal/core"
	applog "finboard/internal/log"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := parseRange(r.URL.Query(), s.loc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := s.engine.Transactions(f)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]transactionJSON, 0, len(txs))
	for _, t := range txs {
		out = append(out, toJSON(t, s.loc))
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.ledger.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transaction": toJSON(t, s.loc)})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := parseTransaction(r, s.loc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.ledger.Create(r.Context(), t)
	if err != nil {
		writeError(w, r, err)
		return
	}

	fields := applog.NewFields().
		WithTransaction(created.ID, created.Type.String(), created.Category, created.Amount.Cents).
		WithOperation(applog.OpCreate)
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Transaction created", fields.ToSlice()...)

	w.Header().Set("Location", "/api/transactions/"+strconv.FormatInt(created.ID, 10))
	writeJSON(w, http.StatusCreated, map[string]any{"transaction": toJSON(created, s.loc)})
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := parseTransaction(r, s.loc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t.ID = id

	updated, err := s.ledger.Update(r.Context(), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transaction": toJSON(updated, s.loc)})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Transaction deleted",
		applog.FieldTransactionID, id, applog.FieldOperation, applog.OpDelete)
	w.WriteHeader(http.StatusNoContent)
}

func handleCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"income":  core.Categories(core.Income),
		"expense": core.Categories(core.Expense),
	})
}
