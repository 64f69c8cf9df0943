package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"smartexpense/internal/core"
	"smartexpense/internal/services"
)

type statsResponse struct {
	core.FinancialStats
	SavingsRate *float64 `json:"savingsRate,omitempty"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.deps.Ledger.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	p, err := parseBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := s.deps.Ledger.AddInput(r.Context(), services.TransactionInput{
		Amount:   p.Get("amount"),
		Type:     p.Get("type"),
		Category: p.Get("category"),
		Date:     p.Get("date"),
		Note:     p.Get("note"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if err := s.deps.Ledger.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Ledger.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := statsResponse{FinancialStats: stats}
	if rate, ok := stats.SavingsRate(); ok {
		resp.SavingsRate = &rate
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Ledger.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleCategoryChart defaults to expenses, the chart the dashboard shows first.
func (s *Server) handleCategoryChart(w http.ResponseWriter, r *http.Request) {
	t := core.Expense
	if v := strings.TrimSpace(r.URL.Query().Get("type")); v != "" {
		parsed, err := core.ParseTransactionType(v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		t = parsed
	}
	data, err := s.deps.Ledger.CategoryBreakdown(r.Context(), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if data == nil {
		data = []core.CategoryAmount{}
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handlePeriodChart(w http.ResponseWriter, r *http.Request) {
	var bucket core.Bucketer
	switch v := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("bucket"))); v {
	case "", "month":
		bucket = core.MonthBucketer
	case "year-month":
		bucket = core.YearMonthBucketer
	default:
		writeError(w, r, fmt.Errorf("%w: unknown bucket %q", errBadRequest, v))
		return
	}
	data, err := s.deps.Ledger.PeriodSeries(r.Context(), bucket)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if data == nil {
		data = []core.PeriodAmount{}
	}
	writeJSON(w, http.StatusOK, data)
}

// handleTips never fails on provider trouble; the advisor substitutes a message.
func (s *Server) handleTips(w http.ResponseWriter, r *http.Request) {
	txs, err := s.deps.Ledger.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Advisor.Tips(r.Context(), txs, core.ComputeStats(txs)))
}
