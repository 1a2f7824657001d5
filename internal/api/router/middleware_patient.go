package router

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/wolfman30/clinic-scheduler/internal/failure"
	"github.com/wolfman30/clinic-scheduler/internal/session"
)

const patientHeader = "X-Patient-ID"

// requirePatientID rejects patient-facing requests that do not say which
// patient is calling.
func requirePatientID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		patientID := strings.TrimSpace(r.Header.Get(patientHeader))
		if patientID == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":   string(failure.KindInvalidInput),
				"message": failure.KindInvalidInput.Category(),
				"detail":  "missing " + patientHeader,
			})
			return
		}
		ctx := session.WithPatientID(r.Context(), patientID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// patientIDFromRequest exposes the patient id for local handlers.
func patientIDFromRequest(r *http.Request) (string, bool) {
	return session.PatientIDFromContext(r.Context())
}
