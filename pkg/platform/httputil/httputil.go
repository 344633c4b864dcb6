package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	pkgerrors "attesto/pkg/domain-errors"
)

type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteJSON writes v as the JSON response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to its HTTP status and writes a JSON error body.
// Internal errors omit the description so store and ledger details never
// leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	code := pkgerrors.CodeOf(err)
	resp := errorResponse{Error: string(code)}
	var derr *pkgerrors.DomainError
	if code != pkgerrors.CodeInternal && errors.As(err, &derr) {
		resp.Description = derr.Message
	}
	WriteJSON(w, pkgerrors.ToHTTPStatus(err), resp)
}

// DecodeAndPrepare decodes the JSON body into T, writing a bad request
// response and logging on failure. The second return is false when the
// caller should stop.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, pkgerrors.New(pkgerrors.CodeBadRequest, "invalid request body"))
		return req, false
	}
	return req, true
}
