package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "veridesk/pkg/domain-errors"
	"veridesk/pkg/httputil"
)

type filtersRequest struct {
	Search string `json:"search"`
	Filter string `json:"filter"`
}

type stageCodeRequest struct {
	Code string `json:"code"`
}

type dispositionRequest struct {
	Disposition string `json:"disposition"`
}

// decode parses the JSON request body into dst. It writes the error response
// itself and reports whether the handler should continue.
func decode(w http.ResponseWriter, r *http.Request, logger *slog.Logger, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.WarnContext(r.Context(), "failed to decode request body",
			append(requestLogFields(r), "error", err)...,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid JSON in request body"))
		return false
	}
	return true
}
