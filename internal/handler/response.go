package handler

// RESPONSE HELPERS:
// Every handler ends the same way: set the JSON content type, write a
// status, encode a body. writeJSON and writeError do that in one call so
// the handlers stay focused on parsing and calling the service.
//
// ONE ERROR SHAPE:
// Every error the API returns looks like this:
//
//	{"error": "not_found", "message": "prompt not found with id 42"}
//
// "error" is a stable machine-readable kind the web client can switch on;
// "message" is for humans and may change wording freely.
//
// ERROR KIND → STATUS:
//
//	validation_error   400   (apperror.ErrValidation)
//	invalid_json       400   body is not valid JSON
//	not_found          404   (apperror.ErrNotFound, unknown /api route)
//	method_not_allowed 405
//	payload_too_large  413   body over the 1 MB cap
//	rate_limited       429   (written by middleware.RateLimit)
//	internal_error     500   everything else, details only in the logs

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/prompt-vault/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers are flushed by WriteHeader. Content-Type has to be set first,
// because anything added to w.Header() afterwards is silently dropped.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// Storage failures and unknown errors become a generic 500: the raw message
// may carry SQL or file paths and never reaches the client.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		switch {
		case errors.Is(err, apperror.ErrValidation):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "validation_error",
				Message: appErr.Message,
			})
			return
		case errors.Is(err, apperror.ErrNotFound):
			writeJSON(w, http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: appErr.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// writeDecodeError reports a request body that could not be decoded.
//
// chi's RequestSize middleware wraps the body in http.MaxBytesReader. Once
// the cap is hit, the decoder fails with *http.MaxBytesError, which is the
// only way to tell "too big" apart from "not JSON".
func writeDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:   "payload_too_large",
			Message: "Request body is too large",
		})
		return
	}

	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   "invalid_json",
		Message: "Request body must be valid JSON: " + err.Error(),
	})
}

// HandleNotFound answers unknown API routes.
func HandleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{
		Error:   "not_found",
		Message: "No route for " + r.Method + " " + r.URL.Path,
	})
}

// HandleMethodNotAllowed answers known API routes called with the wrong method.
func HandleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
		Error:   "method_not_allowed",
		Message: r.Method + " is not allowed on " + r.URL.Path,
	})
}
