package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// GetBalanceHandler handles GET /accounts/{accountId}/balance
func (h *HandlerProvider) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.authorizeAccount(w, r)
	if !ok {
		return
	}

	bal, err := h.engine.Balance(r.Context(), accountID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, balanceResponse{
		AccountID: accountID,
		Balance:   formatMinor(bal),
	})
}

// ListDepositsHandler handles GET /accounts/{accountId}/deposits
func (h *HandlerProvider) ListDepositsHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.authorizeAccount(w, r)
	if !ok {
		return
	}

	limit, offset, err := parsePaging(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	list, err := h.engine.History(r.Context(), accountID, limit, offset)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := depositListResponse{
		Deposits: make([]depositResponse, 0, len(list)),
		Limit:    limit,
		Offset:   offset,
	}
	for _, d := range list {
		resp.Deposits = append(resp.Deposits, toDepositResponse(d))
	}

	writeJSON(w, r, http.StatusOK, resp)
}

func (h *HandlerProvider) authorizeAccount(w http.ResponseWriter, r *http.Request) (string, bool) {
	accountID := chi.URLParam(r, "accountId")

	p, _ := principalFrom(r.Context())
	if !p.CanAccess(accountID) {
		writeError(w, r, http.StatusForbidden, "forbidden")
		return "", false
	}

	return accountID, true
}
