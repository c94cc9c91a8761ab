package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"pickup-request-service/internal/api/dto"
	"pickup-request-service/internal/domain"
	"pickup-request-service/internal/platform/obs"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type callerKey struct{}

// WithCaller attaches the identity resolved from the session to ctx.
func WithCaller(ctx context.Context, c domain.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom returns the identity attached by WithCaller.
func CallerFrom(ctx context.Context) (domain.Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(domain.Caller)
	return c, ok
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode failed",
			zap.String("req_id", obs.RequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, dto.ErrorResponse{Error: msg})
}

func forbidden(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusForbidden, "forbidden")
}

// WriteServiceError maps a domain error to its HTTP status. Anything
// unclassified is logged and reported as a generic 500.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *domain.ValidationError
		cerr *domain.ConflictError
	)

	switch {
	case errors.As(err, &verr):
		writeJSON(w, r, http.StatusBadRequest, dto.ErrorResponse{Error: verr.Error(), Field: verr.Field})
	case errors.Is(err, domain.ErrValidation):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		if _, ok := CallerFrom(r.Context()); ok {
			forbidden(w, r)
			return
		}
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	case errors.As(err, &cerr):
		writeJSON(w, r, http.StatusConflict, dto.ErrorResponse{Error: cerr.Error(), CurrentStatus: string(cerr.Current)})
	case errors.Is(err, domain.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrDuplicateEmail):
		writeError(w, r, http.StatusConflict, domain.ErrDuplicateEmail.Error())
	case errors.Is(err, domain.ErrCodeMismatch):
		writeError(w, r, http.StatusUnprocessableEntity, domain.ErrCodeMismatch.Error())
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, r, http.StatusTooManyRequests, domain.ErrRateLimited.Error())
	default:
		zap.L().Error("request failed",
			zap.String("req_id", obs.RequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON reads a single JSON object into v. Malformed bodies are
// validation errors.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.Invalid("body", fmt.Sprintf("malformed JSON: %v", err))
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid(name, fmt.Sprintf("must be a positive integer, got %q", raw))
	}
	return id, nil
}
