package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-scheduler/internal/bookings"
	"github.com/wolfman30/clinic-scheduler/internal/clinic"
	"github.com/wolfman30/clinic-scheduler/internal/consultations"
	"github.com/wolfman30/clinic-scheduler/internal/failure"
	"github.com/wolfman30/clinic-scheduler/internal/reconciliation"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// ConsultationsHandler exposes booking, listing and the consultation lifecycle.
type ConsultationsHandler struct {
	core   *clinic.Core
	logger *logging.Logger
}

func NewConsultationsHandler(core *clinic.Core, logger *logging.Logger) *ConsultationsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ConsultationsHandler{core: core, logger: logger}
}

// CreateConsultationRequest is the booking payload. The patient comes from the
// X-Patient-ID header. A missing amount charges the practitioner's price.
type CreateConsultationRequest struct {
	SlotID      string `json:"slot_id"`
	AmountCents *int64 `json:"amount_cents,omitempty"`
	PaymentDate string `json:"payment_date,omitempty"`
	PaymentTime string `json:"payment_time,omitempty"`
	Method      string `json:"method"`
}

// POST /consultations
func (h *ConsultationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	patientID, err := patientFromRequest(r)
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	var req CreateConsultationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	booking, err := h.core.Bookings.CreateConsultation(r.Context(), bookings.Request{
		PatientID:   patientID,
		SlotID:      req.SlotID,
		AmountCents: req.AmountCents,
		PaymentDate: req.PaymentDate,
		PaymentTime: req.PaymentTime,
		Method:      req.Method,
	})
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

// GET /patients/{patientID}/consultations?view=upcoming|history&status=...
func (h *ConsultationsHandler) ListForPatient(w http.ResponseWriter, r *http.Request) {
	patientID, err := h.ownPatientID(r)
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}

	q := r.URL.Query()
	var list []reconciliation.EnrichedConsultation
	switch view := strings.ToLower(strings.TrimSpace(q.Get("view"))); {
	case q.Get("status") != "":
		status, ok := consultations.ParseStatus(q.Get("status"))
		if !ok {
			writeFailure(w, h.logger, failure.New(failure.KindInvalidInput, "unknown status %q", q.Get("status")))
			return
		}
		list, err = h.core.Reconciliation.ListByStatus(r.Context(), patientID, status)
	case view == "upcoming":
		list, err = h.core.Reconciliation.ListUpcoming(r.Context(), patientID)
	case view == "history":
		list, err = h.core.Reconciliation.ListHistory(r.Context(), patientID)
	case view == "" || view == "all":
		list, err = h.core.Reconciliation.ListForPatient(r.Context(), patientID)
	default:
		err = failure.New(failure.KindInvalidInput, "unknown view %q", view)
	}
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"consultations": nonNil(list)})
}

// GET /patients/{patientID}/rateable
func (h *ConsultationsHandler) ListRateable(w http.ResponseWriter, r *http.Request) {
	patientID, err := h.ownPatientID(r)
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"consultations": h.core.Feedback.ListRateable(r.Context(), patientID),
	})
}

// GET /consultations/{consultationID}
func (h *ConsultationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.ownConsultation(r)
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// POST /consultations/{consultationID}/confirm
func (h *ConsultationsHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.core.Reconciliation.ConfirmConsultation)
}

// POST /consultations/{consultationID}/cancel
func (h *ConsultationsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.core.Reconciliation.CancelConsultation)
}

// POST /admin/consultations/{consultationID}/complete
func (h *ConsultationsHandler) Complete(w http.ResponseWriter, r *http.Request) {
	c, err := h.core.Reconciliation.CompleteConsultation(r.Context(), chi.URLParam(r, "consultationID"))
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type rateRequest struct {
	Score   int    `json:"score"`
	Comment string `json:"comment,omitempty"`
}

// POST /consultations/{consultationID}/rating
func (h *ConsultationsHandler) Rate(w http.ResponseWriter, r *http.Request) {
	patientID, err := patientFromRequest(r)
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	var req rateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	rating, err := h.core.Feedback.Rate(r.Context(), chi.URLParam(r, "consultationID"), patientID, req.Score, req.Comment)
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, rating)
}

func (h *ConsultationsHandler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) (consultations.Consultation, error)) {
	view, err := h.ownConsultation(r)
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	c, err := fn(r.Context(), view.ID)
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// ownPatientID returns the path patient, which must be the caller.
func (h *ConsultationsHandler) ownPatientID(r *http.Request) (string, error) {
	caller, err := patientFromRequest(r)
	if err != nil {
		return "", err
	}
	if patientID := chi.URLParam(r, "patientID"); patientID != caller {
		return "", failure.New(failure.KindNotFound, "patient %s not found", patientID)
	}
	return caller, nil
}

// ownConsultation loads the path consultation, hiding other patients' records.
func (h *ConsultationsHandler) ownConsultation(r *http.Request) (reconciliation.EnrichedConsultation, error) {
	caller, err := patientFromRequest(r)
	if err != nil {
		return reconciliation.EnrichedConsultation{}, err
	}
	consultationID := chi.URLParam(r, "consultationID")
	view, err := h.core.Reconciliation.Get(r.Context(), consultationID)
	if err != nil {
		return reconciliation.EnrichedConsultation{}, err
	}
	if view.PatientID != caller {
		return reconciliation.EnrichedConsultation{}, failure.New(failure.KindNotFound, "consultation %s not found", consultationID)
	}
	return view, nil
}
