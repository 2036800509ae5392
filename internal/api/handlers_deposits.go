package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fastprodman/topup/internal/apperrors"
	"github.com/fastprodman/topup/internal/infra/logging"
	"github.com/fastprodman/topup/internal/queue"
	"github.com/fastprodman/topup/internal/services/lifecycle"
	"github.com/go-chi/chi/v5"
)

// SubmitDepositHandler handles POST /deposits
func (h *HandlerProvider) SubmitDepositHandler(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	var req submitDepositRequest

	err := decodeAndValidate(w, r, &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if !p.CanAccess(req.Account) {
		writeError(w, r, http.StatusForbidden, "cannot deposit to another account")
		return
	}

	amountMinor, err := toMinor(*req.Amount)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	d, err := h.engine.Submit(r.Context(), req.Account, amountMinor, req.ContactRef)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, toDepositResponse(d))
}

// PollStatusHandler handles GET /deposits/{depositId}/status
func (h *HandlerProvider) PollStatusHandler(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	depositID := chi.URLParam(r, "depositId")

	snap, err := h.status.PollStatus(r.Context(), depositID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	// non-owners get 404 so deposit ids cannot be enumerated
	if !p.CanAccess(snap.AccountID) {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}

	writeJSON(w, r, http.StatusOK, toStatusResponse(snap))
}

// SettleHandler handles POST /deposits/{depositId}/settle
func (h *HandlerProvider) SettleHandler(w http.ResponseWriter, r *http.Request) {
	depositID := chi.URLParam(r, "depositId")

	var req settleRequest

	err := decodeAndValidate(w, r, &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	decision, err := lifecycle.ParseDecision(req.Decision)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	async, _ := strconv.ParseBool(r.URL.Query().Get("async"))
	if async {
		h.enqueueSettlement(w, r, depositID, decision)
		return
	}

	d, err := h.engine.Settle(r.Context(), depositID, decision)
	if err != nil {
		if errors.Is(err, apperrors.ErrAlreadySettled) {
			writeJSON(w, r, http.StatusConflict, map[string]string{
				"error":  "already settled",
				"status": string(d.Status),
			})
			return
		}

		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, statusResponse{
		DepositID: d.ID,
		Status:    string(d.Status),
		SettledAt: d.SettledAt,
	})
}

func (h *HandlerProvider) enqueueSettlement(w http.ResponseWriter, r *http.Request, depositID string, decision lifecycle.Decision) {
	if h.publisher == nil {
		writeError(w, r, http.StatusServiceUnavailable, "async settlement unavailable")
		return
	}

	snap, err := h.status.PollStatus(r.Context(), depositID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if snap.Status.Terminal() {
		writeJSON(w, r, http.StatusConflict, map[string]string{
			"error":  "already settled",
			"status": string(snap.Status),
		})
		return
	}

	err = h.publisher.PublishSettlement(r.Context(), queue.SettlementMessage{
		DepositID: depositID,
		Decision:  string(decision),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("settlement queued",
		slog.String("deposit_id", depositID),
		slog.String("decision", string(decision)),
	)

	writeJSON(w, r, http.StatusAccepted, statusResponse{
		DepositID: depositID,
		Status:    string(snap.Status),
	})
}
