package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/wolfman30/clinic-scheduler/internal/failure"
	"github.com/wolfman30/clinic-scheduler/internal/session"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// writeFailure renders err as {"error": kind, "message": category}. Client
// errors also carry their detail; server errors only reach the log.
func writeFailure(w http.ResponseWriter, logger *logging.Logger, err error) {
	kind := failure.KindOf(err)
	status := kind.HTTPStatus()
	resp := errorResponse{Error: string(kind), Message: kind.Category()}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "kind", kind, "error", err)
	} else {
		resp.Detail = failure.Detail(err)
	}
	writeJSON(w, status, resp)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return failure.New(failure.KindInvalidInput, "request body is required")
		}
		return failure.New(failure.KindInvalidInput, "invalid request body: %v", err)
	}
	return nil
}

func patientFromRequest(r *http.Request) (string, error) {
	if patientID, ok := session.PatientIDFromContext(r.Context()); ok {
		return patientID, nil
	}
	if patientID := strings.TrimSpace(r.Header.Get("X-Patient-ID")); patientID != "" {
		return patientID, nil
	}
	return "", failure.New(failure.KindInvalidInput, "missing X-Patient-ID header")
}
