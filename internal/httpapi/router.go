package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hotelsync/internal/api"
	"hotelsync/internal/statussync"
	"hotelsync/pkg/config"
)

type Dependencies struct {
	Cfg    config.Config
	Engine *statussync.Engine
	Log    *slog.Logger
	// Now overrides the clock used for token verification.
	Now func() time.Time
}

func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	h := statussync.NewHandlers(deps.Engine, deps.Log)

	r.Route("/v1", func(r chi.Router) {
		r.Use(api.CORSMiddleware(api.CORSOptions{
			AllowedOrigins: deps.Cfg.Admin.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
			MaxAgeSeconds:  600,
		}))

		// Both admin screens. Every route needs an operator identity.
		r.Group(func(r chi.Router) {
			r.Use(api.AdminAuth(deps.Cfg, deps.Now))

			r.Post("/bookings", h.CreateBooking)
			r.Get("/bookings/{id}", h.GetBooking)
			r.Patch("/bookings/{id}/status", h.PatchBookingStatus)
			r.Get("/bookings/{id}/events", h.Events)
			r.Post("/bookings/{id}/payment", h.OpenPayment)
			r.Patch("/bookings/{id}/payment-status", h.PatchBookingPaymentStatus)

			r.Get("/payments/{id}", h.GetPayment)
			r.Patch("/payments/{id}/status", h.PatchPaymentStatus)
		})
	})

	return r
}
