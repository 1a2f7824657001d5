package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-scheduler/internal/clinic"
	"github.com/wolfman30/clinic-scheduler/internal/failure"
	"github.com/wolfman30/clinic-scheduler/internal/scheduling"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// CatalogHandler serves the availability catalog and its administration.
type CatalogHandler struct {
	core   *clinic.Core
	logger *logging.Logger
}

func NewCatalogHandler(core *clinic.Core, logger *logging.Logger) *CatalogHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &CatalogHandler{core: core, logger: logger}
}

// refresh reloads persisted state so reservations made by other processes are visible.
func (h *CatalogHandler) refresh(r *http.Request, fn func()) {
	h.core.Adapter.View(r.Context(), fn)
}

// GET /catalog/specialties
func (h *CatalogHandler) ListSpecialties(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"specialties": h.core.Catalog.ListSpecialties()})
}

// GET /catalog/practitioners
func (h *CatalogHandler) ListPractitioners(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"practitioners": h.core.Catalog.ListPractitioners()})
}

// GET /catalog/practitioners/{practitionerID}/slots
func (h *CatalogHandler) ListPractitionerSlots(w http.ResponseWriter, r *http.Request) {
	practitionerID := chi.URLParam(r, "practitionerID")
	if _, ok := h.core.Catalog.Practitioner(practitionerID); !ok {
		writeFailure(w, h.logger, scheduling.ErrUnknownPractitioner)
		return
	}
	var slots []scheduling.AvailableSlot
	h.refresh(r, func() {
		slots = h.core.Catalog.ListFreeSlotsByPractitioner(practitionerID)
	})
	writeJSON(w, http.StatusOK, map[string]any{"slots": nonNil(slots)})
}

// GET /catalog/practitioners/{practitionerID}/templates
func (h *CatalogHandler) ListPractitionerTemplates(w http.ResponseWriter, r *http.Request) {
	practitionerID := chi.URLParam(r, "practitionerID")
	if _, ok := h.core.Catalog.Practitioner(practitionerID); !ok {
		writeFailure(w, h.logger, scheduling.ErrUnknownPractitioner)
		return
	}
	templates := h.core.Catalog.ListTemplatesByPractitioner(practitionerID)
	writeJSON(w, http.StatusOK, map[string]any{"templates": nonNil(templates)})
}

// GET /catalog/slots?date=YYYY-MM-DD
func (h *CatalogHandler) ListSlotsByDate(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if _, err := time.Parse("2006-01-02", date); err != nil {
		writeFailure(w, h.logger, failure.New(failure.KindInvalidInput, "date must be YYYY-MM-DD"))
		return
	}
	var slots []scheduling.AvailableSlot
	h.refresh(r, func() {
		slots = h.core.Catalog.ListFreeSlotsByDate(date)
	})
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "slots": nonNil(slots)})
}

// GET /catalog/slots/{slotID}
func (h *CatalogHandler) GetSlot(w http.ResponseWriter, r *http.Request) {
	slotID := chi.URLParam(r, "slotID")
	var (
		slot scheduling.AvailableSlot
		ok   bool
	)
	h.refresh(r, func() {
		slot, ok = h.core.Catalog.FindSlot(slotID)
	})
	if !ok {
		writeFailure(w, h.logger, failure.New(failure.KindSlotNotFound, "slot %s not found", slotID))
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

type templateRequest struct {
	Weekday        string `json:"weekday"`
	Start          string `json:"start"`
	End            string `json:"end"`
	PractitionerID string `json:"practitioner_id,omitempty"`
}

// POST /admin/templates
func (h *CatalogHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	tmpl, err := h.core.Catalog.RegisterTemplate(req.Weekday, req.Start, req.End, req.PractitionerID)
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	h.logger.Info("schedule template registered", "template_id", tmpl.ID, "practitioner_id", tmpl.PractitionerID)
	writeJSON(w, http.StatusCreated, tmpl)
}

// PUT /admin/templates/{templateID}
func (h *CatalogHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	tmpl, err := h.core.Catalog.UpdateTemplate(chi.URLParam(r, "templateID"), req.Weekday, req.Start, req.End)
	if err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

// DELETE /admin/templates/{templateID}
func (h *CatalogHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	templateID := chi.URLParam(r, "templateID")
	if err := h.core.Catalog.RemoveTemplate(templateID); err != nil {
		writeFailure(w, h.logger, err)
		return
	}
	h.logger.Info("schedule template removed", "template_id", templateID)
	w.WriteHeader(http.StatusNoContent)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
