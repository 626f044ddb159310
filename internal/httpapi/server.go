// Package httpapi fronts the ledger engine with a thin JSON surface. The
// engine's contract is transport-agnostic; these handlers only decode
// requests, resolve the acting participant, and map the error taxonomy to
// status codes.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/directory"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/models"
)

var (
	expensesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "splitledger_expenses_recorded_total",
		Help: "Expenses successfully recorded.",
	})
	debtTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitledger_debt_transitions_total",
		Help: "Successful debt transitions by resulting status.",
	}, []string{"to_status"})
)

// Server holds the handler dependencies.
type Server struct {
	ledger *ledger.Ledger
	dir    directory.Directory
}

// New creates the HTTP surface over the given engine and directory.
func New(l *ledger.Ledger, dir directory.Directory) *Server {
	return &Server{ledger: l, dir: dir}
}

// Register mounts all routes on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/expenses", s.recordExpense)
	mux.HandleFunc("GET /v1/expenses/{id}", s.expenseHistory)
	mux.HandleFunc("POST /v1/expenses/{id}/debts/{debtorID}/transition", s.transitionDebt)
	mux.HandleFunc("GET /v1/participants/{id}/balance", s.balance)
	mux.HandleFunc("GET /v1/participants/{id}/debts", s.pendingDebts)
	mux.HandleFunc("GET /v1/participants/{id}/confirmations", s.pendingConfirmations)
	mux.HandleFunc("GET /v1/participants/{id}/summary", s.summary)
	mux.HandleFunc("GET /v1/net", s.netBalance)
	if _, ok := s.dir.(directory.Registrar); ok {
		mux.HandleFunc("PUT /v1/participants/{id}", s.registerParticipant)
	}
}

type recordExpenseRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	DebtorIDs   []int64         `json:"debtor_ids"`
}

type recordExpenseResponse struct {
	ExpenseID int64            `json:"expense_id"`
	DebtKeys  []models.DebtKey `json:"debt_keys"`
}

func (s *Server) recordExpense(w http.ResponseWriter, r *http.Request) {
	var req recordExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.ledger.RecordExpense(r.Context(), ledger.RecordExpenseInput{
		PayerID:     middleware.GetParticipantID(r.Context()),
		Amount:      req.Amount,
		Description: req.Description,
		DebtorIDs:   req.DebtorIDs,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	expensesRecorded.Inc()
	writeJSON(w, http.StatusCreated, recordExpenseResponse{
		ExpenseID: res.ExpenseID,
		DebtKeys:  res.DebtKeys,
	})
}

type transitionRequest struct {
	Expected models.DebtStatus `json:"expected_status"`
	Next     models.DebtStatus `json:"new_status"`
}

type transitionResponse struct {
	Status models.DebtStatus `json:"status"`
}

func (s *Server) transitionDebt(w http.ResponseWriter, r *http.Request) {
	expenseID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	debtorID, ok := pathID(w, r, "debtorID")
	if !ok {
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, err := s.ledger.TransitionDebt(r.Context(), expenseID, debtorID,
		req.Expected, req.Next, middleware.GetParticipantID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	debtTransitions.WithLabelValues(string(status)).Inc()
	writeJSON(w, http.StatusOK, transitionResponse{Status: status})
}

func (s *Server) expenseHistory(w http.ResponseWriter, r *http.Request) {
	expenseID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	view, err := s.ledger.ExpenseHistory(r.Context(), expenseID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseView(view))
}

func (s *Server) balance(w http.ResponseWriter, r *http.Request) {
	participantID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	balance, err := s.ledger.Balance(r.Context(), participantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"balance": balance})
}

func (s *Server) netBalance(w http.ResponseWriter, r *http.Request) {
	debtorID, err := strconv.ParseInt(r.URL.Query().Get("debtor"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid debtor id")
		return
	}
	creditorID, err := strconv.ParseInt(r.URL.Query().Get("creditor"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid creditor id")
		return
	}

	net, err := s.ledger.NetBalance(r.Context(), debtorID, creditorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"net": net})
}

func (s *Server) pendingDebts(w http.ResponseWriter, r *http.Request) {
	participantID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	debts, err := s.ledger.PendingDebts(r.Context(), participantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDebtViews(debts))
}

func (s *Server) pendingConfirmations(w http.ResponseWriter, r *http.Request) {
	participantID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	debts, err := s.ledger.PendingConfirmations(r.Context(), participantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDebtViews(debts))
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	participantID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	summary, err := s.ledger.Summary(r.Context(), participantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"owed_to_me": toDebtViews(summary.OwedToMe),
		"i_owe":      toDebtViews(summary.IOwe),
	})
}

type registerParticipantRequest struct {
	DisplayName string `json:"display_name"`
}

func (s *Server) registerParticipant(w http.ResponseWriter, r *http.Request) {
	participantID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req registerParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DisplayName == "" {
		writeJSONError(w, http.StatusBadRequest, "display_name required")
		return
	}

	registrar := s.dir.(directory.Registrar)
	if err := registrar.Upsert(r.Context(), participantID, req.DisplayName); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps the engine's error taxonomy to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	var (
		validation   *ledger.ValidationError
		notFound     *ledger.NotFoundError
		conflict     *ledger.ConflictError
		unauthorized *ledger.UnauthorizedError
		consistency  *ledger.ConsistencyError
	)
	switch {
	case errors.As(err, &validation):
		writeJSONError(w, http.StatusBadRequest, validation.Error())
	case errors.As(err, &notFound):
		writeJSONError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":          conflict.Error(),
			"current_status": conflict.Current,
		})
	case errors.As(err, &unauthorized):
		writeJSONError(w, http.StatusForbidden, unauthorized.Error())
	case errors.As(err, &consistency):
		writeJSONError(w, http.StatusInternalServerError, "ledger write failed, safe to retry")
	default:
		slog.Error("unhandled error", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}
