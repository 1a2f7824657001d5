package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-scheduler/internal/clinic"
	"github.com/wolfman30/clinic-scheduler/internal/failure"
	"github.com/wolfman30/clinic-scheduler/internal/ids"
	"github.com/wolfman30/clinic-scheduler/internal/store"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

func newTestServer(t *testing.T) (*clinic.Core, http.Handler) {
	t.Helper()
	logger := logging.NewWithWriter("error", io.Discard)
	core := clinic.NewCore(context.Background(), clinic.Options{
		Backend: store.NewMemoryBackend(),
		Logger:  logger,
		IDs:     ids.Sequence(),
	})
	catalog := NewCatalogHandler(core, logger)
	cons := NewConsultationsHandler(core, logger)
	pays := NewPaymentsHandler(core, logger)
	rx := NewPrescriptionsHandler(core, logger)

	r := chi.NewRouter()
	r.Get("/catalog/specialties", catalog.ListSpecialties)
	r.Get("/catalog/practitioners", catalog.ListPractitioners)
	r.Get("/catalog/practitioners/{practitionerID}/slots", catalog.ListPractitionerSlots)
	r.Get("/catalog/practitioners/{practitionerID}/templates", catalog.ListPractitionerTemplates)
	r.Get("/catalog/slots", catalog.ListSlotsByDate)
	r.Get("/catalog/slots/{slotID}", catalog.GetSlot)
	r.Post("/admin/templates", catalog.CreateTemplate)
	r.Put("/admin/templates/{templateID}", catalog.UpdateTemplate)
	r.Delete("/admin/templates/{templateID}", catalog.DeleteTemplate)
	r.Post("/admin/consultations/{consultationID}/complete", cons.Complete)
	r.Post("/consultations", cons.Create)
	r.Get("/consultations/{consultationID}", cons.Get)
	r.Post("/consultations/{consultationID}/confirm", cons.Confirm)
	r.Post("/consultations/{consultationID}/cancel", cons.Cancel)
	r.Post("/consultations/{consultationID}/rating", cons.Rate)
	r.Get("/patients/{patientID}/consultations", cons.ListForPatient)
	r.Get("/patients/{patientID}/rateable", cons.ListRateable)
	r.Post("/payments/{paymentID}/confirm", pays.Confirm)
	r.Post("/admin/consultations/{consultationID}/prescription", rx.Issue)
	r.Get("/admin/consultations/{consultationID}/prescription", rx.GetByConsultation)
	r.Get("/admin/prescriptions/{prescriptionID}", rx.Get)
	r.Get("/consultations/{consultationID}/prescription", rx.GetOwn)
	r.Get("/patients/{patientID}/prescriptions", rx.ListForPatient)
	return core, r
}

func do(t *testing.T, h http.Handler, method, path, patientID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if patientID != "" {
		req.Header.Set("X-Patient-ID", patientID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type bookingResponse struct {
	Consultation struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"consultation"`
	Payment struct {
		ID          string `json:"id"`
		Status      string `json:"status"`
		AmountCents int64  `json:"amount_cents"`
	} `json:"payment"`
}

func TestBookingFlow(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/consultations", "PAC1", map[string]any{"slot_id": "D001", "method": "pix"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	booking := decode[bookingResponse](t, rec)
	assert.Equal(t, "CON-1", booking.Consultation.ID)
	assert.Equal(t, "scheduled", booking.Consultation.Status)
	assert.Equal(t, "pending", booking.Payment.Status)
	assert.Equal(t, int64(25000), booking.Payment.AmountCents)

	rec = do(t, h, http.MethodGet, "/catalog/slots/D001", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["reserved"])

	rec = do(t, h, http.MethodPost, "/consultations", "PAC1", map[string]any{"slot_id": "D001", "method": "pix"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, string(failure.KindSlotUnavailable), body["error"])
	assert.Equal(t, failure.KindSlotUnavailable.Category(), body["message"])

	rec = do(t, h, http.MethodPost, "/payments/"+booking.Payment.ID+"/confirm", "PAC1", map[string]string{"method": "credit"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "paid", decode[map[string]any](t, rec)["status"])

	rec = do(t, h, http.MethodGet, "/patients/PAC1/consultations", "PAC1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Consultations []map[string]any `json:"consultations"`
	}](t, rec)
	require.Len(t, list.Consultations, 1)
	assert.Equal(t, "confirmed", list.Consultations[0]["status"])
	assert.Equal(t, "credit", list.Consultations[0]["payment_method"])
	assert.Equal(t, "Dr. João Silva", list.Consultations[0]["practitioner_name"])

	rec = do(t, h, http.MethodPost, "/admin/consultations/CON-1/complete", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/patients/PAC1/rateable", "PAC1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "CON-1")

	rec = do(t, h, http.MethodPost, "/consultations/CON-1/rating", "PAC1", map[string]any{"score": 5, "comment": "ótimo"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/consultations/CON-1/rating", "PAC1", map[string]any{"score": 5})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCancelReleasesSlot(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(t, h, http.MethodPost, "/consultations", "PAC1", map[string]any{"slot_id": "D001", "method": "pix"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodPost, "/consultations/CON-1/cancel", "PAC1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "cancelled", decode[map[string]any](t, rec)["status"])

	rec = do(t, h, http.MethodGet, "/catalog/slots/D001", "", nil)
	assert.Equal(t, false, decode[map[string]any](t, rec)["reserved"])

	rec = do(t, h, http.MethodPost, "/consultations/CON-1/cancel", "PAC1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodGet, "/patients/PAC1/consultations?view=history", "PAC1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "CON-1")

	rec = do(t, h, http.MethodGet, "/patients/PAC1/consultations?status=cancelada", "PAC1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "CON-1")

	rec = do(t, h, http.MethodGet, "/patients/PAC1/consultations?view=upcoming", "PAC1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"consultations":[]}`, rec.Body.String())
}

func TestOtherPatientsRecordsAreHidden(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(t, h, http.MethodPost, "/consultations", "PAC1", map[string]any{"slot_id": "D001", "method": "pix"})
	require.Equal(t, http.StatusCreated, rec.Code)
	booking := decode[bookingResponse](t, rec)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/consultations/CON-1", "PAC2", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/consultations/CON-1/cancel", "PAC2", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/patients/PAC1/consultations", "PAC2", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/payments/"+booking.Payment.ID+"/confirm", "PAC2", map[string]string{"method": "pix"}).Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/consultations/CON-1", "PAC1", nil).Code)
}

func TestCreateConsultationValidation(t *testing.T) {
	_, h := newTestServer(t)

	tests := []struct {
		name      string
		patientID string
		body      any
		want      int
	}{
		{"missing patient", "", map[string]any{"slot_id": "D001", "method": "pix"}, http.StatusBadRequest},
		{"missing body", "PAC1", nil, http.StatusBadRequest},
		{"unknown field", "PAC1", map[string]any{"slot_id": "D001", "method": "pix", "valor": 10}, http.StatusBadRequest},
		{"bad method", "PAC1", map[string]any{"slot_id": "D001", "method": "bitcoin"}, http.StatusBadRequest},
		{"unknown slot", "PAC1", map[string]any{"slot_id": "D999", "method": "pix"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/consultations", tt.patientID, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestCreateConsultationAmountField(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/consultations", "PAC1", map[string]any{"slot_id": "D001", "amount": 25000, "method": "pix"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[map[string]any](t, rec)["detail"], `unknown field "amount"`)

	rec = do(t, h, http.MethodPost, "/consultations", "PAC1", map[string]any{"slot_id": "D001", "amount_cents": 18000, "method": "pix"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, int64(18000), decode[bookingResponse](t, rec).Payment.AmountCents)
}

func TestPrescriptionFlow(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(t, h, http.MethodPost, "/consultations", "PAC1", map[string]any{"slot_id": "D001", "method": "pix"})
	require.Equal(t, http.StatusCreated, rec.Code)

	body := map[string]any{
		"medications": []map[string]string{{"name": "Dipirona 500mg", "dosage": "1 comprimido", "frequency": "3x ao dia", "duration": "7 dias"}},
		"notes":       "Tomar após as refeições em caso de dor",
	}
	rec = do(t, h, http.MethodPost, "/admin/consultations/CON-1/prescription", "", body)
	assert.Equal(t, http.StatusConflict, rec.Code, "scheduled consultations cannot be prescribed")

	rec = do(t, h, http.MethodPost, "/consultations/CON-1/confirm", "PAC1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/admin/consultations/CON-1/prescription", "", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	issued := decode[map[string]any](t, rec)
	assert.Equal(t, "PRE-1", issued["id"])
	assert.Equal(t, "MD001", issued["practitioner_id"])

	rec = do(t, h, http.MethodPost, "/admin/consultations/CON-1/prescription", "", body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodGet, "/admin/prescriptions/PRE-1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodGet, "/admin/consultations/CON-1/prescription", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "PRE-1", decode[map[string]any](t, rec)["id"])

	rec = do(t, h, http.MethodGet, "/consultations/CON-1/prescription", "PAC1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/consultations/CON-1/prescription", "PAC2", nil).Code)

	rec = do(t, h, http.MethodGet, "/patients/PAC1/prescriptions", "PAC1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "PRE-1")
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/patients/PAC1/prescriptions", "PAC2", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/admin/prescriptions/PRE-404", "", nil).Code)
}

func TestCatalogEndpoints(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/catalog/specialties", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Cardiologia")

	rec = do(t, h, http.MethodGet, "/catalog/practitioners", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "MD003")

	rec = do(t, h, http.MethodGet, "/catalog/practitioners/MD001/slots", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "D018")

	rec = do(t, h, http.MethodGet, "/catalog/practitioners/MD404/slots", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/catalog/practitioners/MD002/templates", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "H003")

	rec = do(t, h, http.MethodGet, "/catalog/slots?date=2025-11-27", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	slots := decode[struct {
		Slots []map[string]any `json:"slots"`
	}](t, rec)
	assert.Len(t, slots.Slots, 2)

	rec = do(t, h, http.MethodGet, "/catalog/slots?date=27/11/2025", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/catalog/slots/D999", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(failure.KindSlotNotFound), decode[map[string]string](t, rec)["error"])
}

func TestTemplateAdministration(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/admin/templates", "", map[string]string{
		"weekday": "terça", "start": "14:00", "end": "18:00", "practitioner_id": "MD002",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	assert.Equal(t, "H015", created["id"])
	assert.Equal(t, "Tuesday", created["weekday"])

	rec = do(t, h, http.MethodPost, "/admin/templates", "", map[string]string{
		"weekday": "Tuesday", "start": "09:00", "end": "10:00", "practitioner_id": "MD002",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/admin/templates", "", map[string]string{
		"weekday": "Tuesday", "start": "18:00", "end": "14:00", "practitioner_id": "MD002",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "start must be before end", decode[map[string]string](t, rec)["detail"])

	rec = do(t, h, http.MethodPut, "/admin/templates/H015", "", map[string]string{
		"weekday": "Tuesday", "start": "13:00", "end": "17:00",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "13:00", decode[map[string]any](t, rec)["start"])

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/admin/templates/H015", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/admin/templates/H015", "", nil).Code)
	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodDelete, "/admin/templates/H001", "", nil).Code)
}

func TestWriteFailureHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeFailure(rec, logging.NewWithWriter("error", io.Discard), failure.Wrap(failure.KindPersistence, errors.New("dial tcp 10.0.0.5:6379"), "persist state"))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
	body := decode[map[string]string](t, rec)
	assert.Equal(t, string(failure.KindPersistence), body["error"])
	assert.Empty(t, body["detail"])
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(nil).Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	NewHealthHandler(map[string]HealthCheck{
		"store": func(context.Context) error { return errors.New("connection refused") },
	}).Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}
