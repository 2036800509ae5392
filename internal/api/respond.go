package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/fastprodman/topup/internal/apperrors"
	"github.com/fastprodman/topup/internal/infra/logging"
	"github.com/go-playground/validator/v10"
)

const (
	maxBodyBytes = 1 << 20
	defaultLimit = 20
	maxLimit     = 100
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to encode JSON response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// writeDomainError maps the error taxonomy onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		writeError(w, r, http.StatusBadRequest, validationMessage(err))
	case errors.Is(err, apperrors.ErrUnauthorized):
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, apperrors.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, apperrors.ErrDuplicate):
		writeError(w, r, http.StatusConflict, "already exists")
	case errors.Is(err, apperrors.ErrAlreadySettled):
		writeError(w, r, http.StatusConflict, "already settled")
	case errors.Is(err, apperrors.ErrConflict):
		writeError(w, r, http.StatusConflict, "conflict")
	case errors.Is(err, apperrors.ErrPartialFailure):
		writeError(w, r, http.StatusInternalServerError, "reconciliation required")
	default:
		logging.FromContext(r.Context()).Error("request failed", slog.Any("error", err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// validationMessage strips wrapping prefixes and keeps the field message.
func validationMessage(err error) string {
	msg := err.Error()

	idx := strings.Index(msg, apperrors.ErrValidation.Error())
	if idx < 0 {
		return msg
	}

	rest := strings.TrimPrefix(msg[idx+len(apperrors.ErrValidation.Error()):], ":")
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return apperrors.ErrValidation.Error()
	}

	return rest
}

// decodeAndValidate reads a size-capped JSON body with unknown fields disallowed,
// then runs struct validation. Failures are ErrValidation.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", apperrors.ErrValidation)
		}
		return fmt.Errorf("%w: invalid JSON", apperrors.ErrValidation)
	}

	err = validate.Struct(dst)
	if err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: field %s failed %q", apperrors.ErrValidation, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %w", apperrors.ErrValidation, err)
	}

	return nil
}

func parsePaging(r *http.Request) (int, int, error) {
	limit, err := queryInt(r, "limit", defaultLimit)
	if err != nil {
		return 0, 0, err
	}
	if limit <= 0 || limit > maxLimit {
		return 0, 0, fmt.Errorf("%w: limit must be between 1 and %d", apperrors.ErrValidation, maxLimit)
	}

	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		return 0, 0, err
	}
	if offset < 0 {
		return 0, 0, fmt.Errorf("%w: offset must be >= 0", apperrors.ErrValidation)
	}

	return limit, offset, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s", apperrors.ErrValidation, key)
	}

	return v, nil
}
