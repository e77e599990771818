package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/RamanVasko/freshkeep/internal/errs"
)

// detailBody is the error envelope; clients surface the detail string as-is.
type detailBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, detailBody{Detail: detail})
}

// writeError maps a service error to an HTTP status and detail envelope.
// fallback is used when the error carries no display-ready message.
func writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, errs.ErrRateLimited):
		writeDetail(w, http.StatusTooManyRequests, "Too many login attempts, try again later")
	case errors.Is(err, errs.ErrUnauthorized):
		writeDetail(w, http.StatusUnauthorized, errs.Message(err, "Not authenticated"))
	case errors.Is(err, errs.ErrAlreadyExists):
		writeDetail(w, http.StatusConflict, "Username or email already registered")
	case errors.Is(err, errs.ErrNotFound):
		writeDetail(w, http.StatusNotFound, errs.Message(err, "Not found"))
	case errs.KindOf(err) == errs.KindValidation:
		writeDetail(w, http.StatusUnprocessableEntity, errs.Message(err, "Invalid request"))
	default:
		writeDetail(w, http.StatusInternalServerError, fallback)
	}
}
