package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hostwatch/hostwatch/internal/docker"
	"github.com/hostwatch/hostwatch/internal/model"
	"github.com/hostwatch/hostwatch/internal/service"
)

// maxBodySize caps JSON request bodies. Every payload here is a handful of
// short strings.
const maxBodySize = 64 << 10

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a structured error response using the standard error
// envelope. The optional ctx map provides additional context fields.
func writeError(w http.ResponseWriter, code int, message string, ctx ...map[string]interface{}) {
	var ctxMap map[string]interface{}
	if len(ctx) > 0 {
		ctxMap = ctx[0]
	}
	writeJSON(w, code, model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:    code,
			Message: message,
			Context: ctxMap,
		},
	})
}

// readJSON decodes a single JSON object from the request body into v.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	return nil
}

// writeServiceError translates credential and guard errors into HTTP
// responses. Anything unrecognised is logged and reported as a 500 without
// internal detail.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error, action string) {
	var fe *service.FieldError
	switch {
	case errors.As(err, &fe):
		writeError(w, http.StatusBadRequest, fe.Error(), map[string]interface{}{"field": fe.Field})
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrAuth):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, service.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "Admin access required")
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, service.ErrUserExists):
		writeError(w, http.StatusConflict, "User already exists")
	default:
		logger.Error(action+" failed", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to %s", action))
	}
}

// writeCollectorError reports a failed read from the Docker engine or the
// host. The engine being unreachable is a 503; an engine error is a 502.
func writeCollectorError(w http.ResponseWriter, logger *slog.Logger, err error, message string) {
	var se *docker.StatusError
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, docker.ErrSocketNotFound):
		status = http.StatusServiceUnavailable
	case errors.As(err, &se):
		status = http.StatusBadGateway
	}
	logger.Warn(message, "error", err, "status", status)
	writeError(w, status, message, map[string]interface{}{"detail": err.Error()})
}
