package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-scheduler/internal/clinic"
	"github.com/wolfman30/clinic-scheduler/internal/failure"
	"github.com/wolfman30/clinic-scheduler/internal/prescriptions"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// PrescriptionsHandler lets practitioners issue prescriptions and patients
// read their own.
type PrescriptionsHandler struct {
	core   *clinic.Core
	logger *logging.Logger
}

func NewPrescriptionsHandler(core *clinic.Core, logger *logging.Logger) *PrescriptionsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &PrescriptionsHandler{core: core, logger: logger}
}

type issuePrescriptionRequest struct {
	Medications []prescriptions.Medication `json:"medications"`
	Notes       string                     `json:"notes,omitempty"`
}

// POST /admin/consultations/{consultationID}/prescription
func (h *PrescriptionsHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req issuePrescriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	p, err := h.core.Prescribing.Issue(r.Context(), prescriptions.IssueRequest{
		ConsultationID: chi.URLParam(r, "consultationID"),
		Medications:    req.Medications,
		Notes:          req.Notes,
	})
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// GET /admin/prescriptions/{prescriptionID}
func (h *PrescriptionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.core.Prescribing.Get(r.Context(), chi.URLParam(r, "prescriptionID"))
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GET /admin/consultations/{consultationID}/prescription
func (h *PrescriptionsHandler) GetByConsultation(w http.ResponseWriter, r *http.Request) {
	p, err := h.core.Prescribing.GetByConsultation(r.Context(), chi.URLParam(r, "consultationID"))
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GET /consultations/{consultationID}/prescription
func (h *PrescriptionsHandler) GetOwn(w http.ResponseWriter, r *http.Request) {
	caller, err := patientFromRequest(r)
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	consultationID := chi.URLParam(r, "consultationID")
	p, err := h.core.Prescribing.GetByConsultation(r.Context(), consultationID)
	if err == nil && p.PatientID != caller {
		err = failure.New(failure.KindNotFound, "no prescription for consultation %s", consultationID)
	}
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GET /patients/{patientID}/prescriptions
func (h *PrescriptionsHandler) ListForPatient(w http.ResponseWriter, r *http.Request) {
	caller, err := patientFromRequest(r)
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	if patientID := chi.URLParam(r, "patientID"); patientID != caller {
		writeFailure(w, h.logger, failure.New(failure.KindNotFound, "patient %s not found", patientID))
		return
	}
	list, err := h.core.Prescribing.ListForPatient(r.Context(), caller)
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prescriptions": list})
}
