package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/starford/raido/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error      string `json:"error" validate:"required"`
	Kind       string `json:"kind,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps an engine error to an HTTP status and serializes its
// kind and remediation suggestion alongside the message.
func writeError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case apperr.InvalidPath, apperr.WrongTargetKind:
		status = http.StatusBadRequest
	case apperr.SourceNotFound:
		status = http.StatusNotFound
	case apperr.DestinationExists, apperr.CircularDestination:
		status = http.StatusConflict
	}

	writeJSON(w, status, errResponse{
		Error:      err.Error(),
		Kind:       string(kind),
		Suggestion: apperr.SuggestionOf(err),
	})
}
