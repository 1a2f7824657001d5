package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-scheduler/internal/clinic"
	"github.com/wolfman30/clinic-scheduler/internal/failure"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// PaymentsHandler settles consultation payments.
type PaymentsHandler struct {
	core   *clinic.Core
	logger *logging.Logger
}

func NewPaymentsHandler(core *clinic.Core, logger *logging.Logger) *PaymentsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &PaymentsHandler{core: core, logger: logger}
}

type confirmPaymentRequest struct {
	Method string `json:"method"`
}

// POST /payments/{paymentID}/confirm
func (h *PaymentsHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	caller, err := patientFromRequest(r)
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	var req confirmPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, h.logger, err)
		return
	}

	paymentID := chi.URLParam(r, "paymentID")
	owner := ""
	h.core.Adapter.View(r.Context(), func() {
		if p, ok := h.core.Ledger.Get(paymentID); ok {
			if c, ok := h.core.Consultations.Get(p.ConsultationID); ok {
				owner = c.PatientID
			}
		}
	})
	if owner != caller {
		writeFailure(w, h.logger, failure.New(failure.KindNotFound, "payment %s not found", paymentID))
		return
	}

	paid, err := h.core.Reconciliation.ConfirmPayment(r.Context(), paymentID, req.Method)
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, paid)
}
