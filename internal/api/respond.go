package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/carepath/internal/intake"
	"github.com/linnemanlabs/carepath/internal/validate"
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a single JSON value from the request body into dst. Unknown
// fields and trailing data are rejected.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return validate.Errorf("", "invalid payload")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return validate.Errorf("", "invalid payload: trailing data")
	}
	return nil
}

// fail maps err to a status code and writes the error body. Validation
// errors go back verbatim; anything else is logged and summarized.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	body := errorBody{Error: "internal error"}

	if ve, ok := validate.As(err); ok {
		status = http.StatusBadRequest
		body = errorBody{Error: ve.Error(), Field: ve.Field}
	} else if errors.Is(err, intake.ErrStoreUnavailable) {
		status = http.StatusServiceUnavailable
		body = errorBody{Error: "session store unavailable"}
	}

	if status >= http.StatusInternalServerError {
		a.logger.Error(r.Context(), err, "request failed", "status", status)
	}
	if a.hooks.OnError != nil {
		a.hooks.OnError(routePattern(r), status)
	}
	writeJSON(w, status, body)
}

func (a *API) onAuthReject(_ *http.Request, reason string) {
	if a.hooks.OnAuthFail != nil {
		a.hooks.OnAuthFail(reason)
	}
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unknown"
}
