package clinic

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/wolfman30/clinic-scheduler/internal/consultations"
	"github.com/wolfman30/clinic-scheduler/internal/failure"
	"github.com/wolfman30/clinic-scheduler/internal/payments"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

const dateLayout = "2006-01-02"

// Stats summarizes consultations, revenue and ratings, optionally limited to
// consultations whose slot date falls in [PeriodStart, PeriodEnd].
type Stats struct {
	PeriodStart           string                       `json:"period_start"`
	PeriodEnd             string                       `json:"period_end"`
	TotalConsultations    int                          `json:"total_consultations"`
	ConsultationsByStatus map[consultations.Status]int `json:"consultations_by_status"`
	PaymentsByStatus      map[payments.Status]int      `json:"payments_by_status"`
	PaidRevenueCents      int64                        `json:"paid_revenue_cents"`
	PendingRevenueCents   int64                        `json:"pending_revenue_cents"`
	RevenueByMethod       map[payments.Method]int64    `json:"revenue_by_method_cents"`
	RatingCount           int                          `json:"rating_count"`
	RatingAverage         float64                      `json:"rating_average"`
}

// Stats computes the report. from and to are optional YYYY-MM-DD bounds and
// must be given together.
func (c *Core) Stats(ctx context.Context, from, to string) (*Stats, error) {
	if (from == "") != (to == "") {
		return nil, failure.New(failure.KindInvalidInput, "both from and to must be provided, or neither")
	}
	stats := &Stats{
		PeriodStart:           "all-time",
		PeriodEnd:             "now",
		ConsultationsByStatus: map[consultations.Status]int{},
		PaymentsByStatus:      map[payments.Status]int{},
		RevenueByMethod:       map[payments.Method]int64{},
	}
	if from != "" {
		start, err := time.Parse(dateLayout, from)
		if err != nil {
			return nil, failure.New(failure.KindInvalidInput, "invalid from date %q, use YYYY-MM-DD", from)
		}
		end, err := time.Parse(dateLayout, to)
		if err != nil {
			return nil, failure.New(failure.KindInvalidInput, "invalid to date %q, use YYYY-MM-DD", to)
		}
		if end.Before(start) {
			return nil, failure.New(failure.KindInvalidInput, "to must not be before from")
		}
		stats.PeriodStart, stats.PeriodEnd = from, to
	}

	c.Adapter.View(ctx, func() {
		included := map[string]bool{}
		for _, con := range c.Consultations.List() {
			if from != "" {
				slot, ok := c.Catalog.FindSlot(con.SlotID)
				// fixed-width dates compare lexicographically
				if !ok || slot.Date < from || slot.Date > to {
					continue
				}
			}
			included[con.ID] = true
			stats.TotalConsultations++
			stats.ConsultationsByStatus[con.Status]++
		}

		for _, p := range c.Ledger.List() {
			if !included[p.ConsultationID] {
				continue
			}
			stats.PaymentsByStatus[p.Status]++
			switch p.Status {
			case payments.StatusPaid:
				stats.PaidRevenueCents += p.AmountCents
				stats.RevenueByMethod[p.Method] += p.AmountCents
			case payments.StatusPending:
				stats.PendingRevenueCents += p.AmountCents
			}
		}

		total := 0
		for _, r := range c.Ratings.List() {
			if !included[r.ConsultationID] {
				continue
			}
			stats.RatingCount++
			total += r.Score
		}
		if stats.RatingCount > 0 {
			stats.RatingAverage = float64(total) / float64(stats.RatingCount)
		}
	})
	return stats, nil
}

// StatsHandler provides the HTTP endpoint for clinic statistics.
type StatsHandler struct {
	core   *Core
	logger *logging.Logger
}

// NewStatsHandler creates a new stats HTTP handler.
func NewStatsHandler(core *Core, logger *logging.Logger) *StatsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &StatsHandler{
		core:   core,
		logger: logger,
	}
}

// GetStats returns the clinic report.
// GET /admin/stats
// Query params:
//   - from: YYYY-MM-DD slot date lower bound (optional)
//   - to: YYYY-MM-DD slot date upper bound (optional)
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	stats, err := h.core.Stats(r.Context(), q.Get("from"), q.Get("to"))
	if err != nil {
		kind := failure.KindOf(err)
		if kind != failure.KindInvalidInput {
			h.logger.Error("failed to get clinic stats", "error", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(kind.HTTPStatus())
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":   string(kind),
			"message": kind.Category(),
			"detail":  failure.Detail(err),
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		h.logger.Error("failed to encode clinic stats", "error", err)
	}
}
