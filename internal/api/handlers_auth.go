package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/fastprodman/topup/internal/apperrors"
	"github.com/fastprodman/topup/internal/infra/logging"
	"github.com/fastprodman/topup/internal/repos/accounts"
)

// RegisterHandler handles POST /register
func (h *HandlerProvider) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest

	err := decodeAndValidate(w, r, &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	acc, err := h.auth.Register(r.Context(), req.Username, req.Password, accounts.RoleUser)
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			writeError(w, r, http.StatusConflict, "username already taken")
			return
		}

		writeDomainError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("account registered", slog.String("account_id", acc.ID))

	writeJSON(w, r, http.StatusCreated, registerResponse{Success: true, Message: "account created"})
}

// LoginHandler handles POST /login
func (h *HandlerProvider) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest

	err := decodeAndValidate(w, r, &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	p, err := h.auth.VerifyCredentials(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			writeError(w, r, http.StatusUnauthorized, "invalid username or password")
			return
		}

		writeDomainError(w, r, err)
		return
	}

	token, err := h.auth.IssueToken(p)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, tokenResponse{Token: token})
}
