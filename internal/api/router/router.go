package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/clinic-scheduler/internal/clinic"
	"github.com/wolfman30/clinic-scheduler/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinic-scheduler/internal/http/middleware"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger               *logging.Logger
	CatalogHandler       *handlers.CatalogHandler
	ConsultationsHandler *handlers.ConsultationsHandler
	PaymentsHandler      *handlers.PaymentsHandler
	PrescriptionsHandler *handlers.PrescriptionsHandler
	HealthHandler        *handlers.HealthHandler
	StatsHandler         *clinic.StatsHandler
	AdminAuthSecret      string
	MetricsHandler       http.Handler
	CORSAllowedOrigins   []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (health checks, metrics, reference data)
	r.Group(func(public chi.Router) {
		if cfg.HealthHandler != nil {
			public.Get("/health", cfg.HealthHandler.Health)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.CatalogHandler != nil {
			public.Route("/catalog", func(r chi.Router) {
				r.Get("/specialties", cfg.CatalogHandler.ListSpecialties)
				r.Get("/practitioners", cfg.CatalogHandler.ListPractitioners)
				r.Get("/practitioners/{practitionerID}/slots", cfg.CatalogHandler.ListPractitionerSlots)
				r.Get("/practitioners/{practitionerID}/templates", cfg.CatalogHandler.ListPractitionerTemplates)
				r.Get("/slots", cfg.CatalogHandler.ListSlotsByDate)
				r.Get("/slots/{slotID}", cfg.CatalogHandler.GetSlot)
			})
		}
	})

	// Admin routes (protected by HS256 JWT)
	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			if cfg.CatalogHandler != nil {
				admin.Post("/templates", cfg.CatalogHandler.CreateTemplate)
				admin.Put("/templates/{templateID}", cfg.CatalogHandler.UpdateTemplate)
				admin.Delete("/templates/{templateID}", cfg.CatalogHandler.DeleteTemplate)
			}
			if cfg.ConsultationsHandler != nil {
				admin.Post("/consultations/{consultationID}/complete", cfg.ConsultationsHandler.Complete)
			}
			if cfg.PrescriptionsHandler != nil {
				admin.Post("/consultations/{consultationID}/prescription", cfg.PrescriptionsHandler.Issue)
				admin.Get("/consultations/{consultationID}/prescription", cfg.PrescriptionsHandler.GetByConsultation)
				admin.Get("/prescriptions/{prescriptionID}", cfg.PrescriptionsHandler.Get)
			}
			if cfg.StatsHandler != nil {
				admin.Get("/stats", cfg.StatsHandler.GetStats)
			}
		})
	}

	// Patient-scoped API routes
	r.Group(func(patient chi.Router) {
		patient.Use(requirePatientID)

		if cfg.ConsultationsHandler != nil {
			patient.Route("/consultations", func(r chi.Router) {
				r.Post("/", cfg.ConsultationsHandler.Create)
				r.Route("/{consultationID}", func(r chi.Router) {
					r.Get("/", cfg.ConsultationsHandler.Get)
					r.Post("/confirm", cfg.ConsultationsHandler.Confirm)
					r.Post("/cancel", cfg.ConsultationsHandler.Cancel)
					r.Post("/rating", cfg.ConsultationsHandler.Rate)
					if cfg.PrescriptionsHandler != nil {
						r.Get("/prescription", cfg.PrescriptionsHandler.GetOwn)
					}
				})
			})
			patient.Route("/patients/{patientID}", func(r chi.Router) {
				r.Get("/consultations", cfg.ConsultationsHandler.ListForPatient)
				r.Get("/rateable", cfg.ConsultationsHandler.ListRateable)
				if cfg.PrescriptionsHandler != nil {
					r.Get("/prescriptions", cfg.PrescriptionsHandler.ListForPatient)
				}
			})
		}

		if cfg.PaymentsHandler != nil {
			patient.Post("/payments/{paymentID}/confirm", cfg.PaymentsHandler.Confirm)
		}
	})

	return r
}
