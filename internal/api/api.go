// Package api exposes the services as a thin JSON-over-HTTP surface.
package api

import (
	"net/http"
	"strconv"

	"github.com/splitsettle/splitsettle/internal/service"
)

// Handler bundles the application services behind an http.Handler.
type Handler struct {
	groups      *service.GroupService
	expenses    *service.ExpenseService
	settlements *service.SettlementService
	credit      *service.CreditService
	reconcile   *service.ReconciliationService
}

// New creates the API handler.
func New(
	groups *service.GroupService,
	expenses *service.ExpenseService,
	settlements *service.SettlementService,
	credit *service.CreditService,
	reconcile *service.ReconciliationService,
) *Handler {
	return &Handler{
		groups:      groups,
		expenses:    expenses,
		settlements: settlements,
		credit:      credit,
		reconcile:   reconcile,
	}
}

// Routes registers all API routes on the given mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/users", h.register)
	mux.HandleFunc("GET /api/pending-preview", h.pendingPreview)

	mux.HandleFunc("POST /api/groups", h.createGroup)
	mux.HandleFunc("GET /api/groups/{groupID}", h.getGroup)
	mux.HandleFunc("GET /api/groups/{groupID}/members", h.listMembers)
	mux.HandleFunc("POST /api/groups/{groupID}/members", h.addMember)
	mux.HandleFunc("POST /api/groups/{groupID}/invites", h.invitePendingMember)

	mux.HandleFunc("POST /api/expenses", h.addExpense)
	mux.HandleFunc("DELETE /api/expenses/{expenseID}", h.deleteExpense)
	mux.HandleFunc("GET /api/groups/{groupID}/balances", h.groupBalances)
	mux.HandleFunc("GET /api/groups/{groupID}/settlements/suggested", h.suggestedSettlements)
	mux.HandleFunc("GET /api/groups/{groupID}/settlements", h.settlementHistory)

	mux.HandleFunc("POST /api/settlements", h.recordSettlement)
	mux.HandleFunc("POST /api/settlements/request", h.requestSettlement)
	mux.HandleFunc("POST /api/settlements/{settlementID}/complete", h.completeSettlement)
	mux.HandleFunc("POST /api/settlements/{settlementID}/reminder-ignored", h.reminderIgnored)

	mux.HandleFunc("GET /api/credit/score", h.creditScore)
	mux.HandleFunc("GET /api/credit/history", h.creditHistory)
	mux.HandleFunc("POST /api/credit/check-delays", h.checkDelays)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := h.reconcile.Register(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) pendingPreview(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phoneNumber")
	preview, err := h.reconcile.Preview(r.Context(), phone)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (h *Handler) createGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req service.CreateGroupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.CreatedBy = userID
	group, err := h.groups.CreateGroup(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

func (h *Handler) getGroup(w http.ResponseWriter, r *http.Request) {
	group, err := h.groups.GetGroup(r.Context(), r.PathValue("groupID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.groups.ListMembers(r.Context(), r.PathValue("groupID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *Handler) addMember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.groups.AddMember(r.Context(), r.PathValue("groupID"), req.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) invitePendingMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req service.InviteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.AddedBy = userID
	pm, err := h.groups.InvitePendingMember(r.Context(), r.PathValue("groupID"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pm)
}

func (h *Handler) addExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req service.AddExpenseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.CreatedBy = userID
	expense, err := h.expenses.AddExpense(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, expense)
}

func (h *Handler) deleteExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.expenses.DeleteExpense(r.Context(), r.PathValue("expenseID"), userID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) groupBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.expenses.GroupBalances(r.Context(), r.PathValue("groupID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balances)
}

func (h *Handler) suggestedSettlements(w http.ResponseWriter, r *http.Request) {
	plan, err := h.expenses.SuggestedSettlements(r.Context(), r.PathValue("groupID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (h *Handler) settlementHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.settlements.GroupHistory(r.Context(), r.PathValue("groupID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *Handler) recordSettlement(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req service.RecordSettlementRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.FromUserID = userID
	outcome, err := h.settlements.RecordSettlement(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, outcome)
}

func (h *Handler) requestSettlement(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req service.RecordSettlementRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.FromUserID = userID
	settlement, err := h.settlements.RequestSettlement(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, settlement)
}

func (h *Handler) completeSettlement(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	outcome, err := h.settlements.CompleteSettlement(r.Context(), r.PathValue("settlementID"), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *Handler) reminderIgnored(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	result, err := h.credit.ReminderIgnored(r.Context(), userID, r.PathValue("settlementID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) creditScore(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	score, err := h.credit.Score(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

func (h *Handler) creditHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)
	history, err := h.credit.History(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *Handler) checkDelays(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	penalties, err := h.credit.ScanPendingDelays(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"penalties": penalties})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
