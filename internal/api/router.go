package api

import (
	"net/http"

	"pickup-request-service/internal/api/handlers"
	"pickup-request-service/internal/platform/obs"
	"pickup-request-service/internal/ports"
	"pickup-request-service/internal/services"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Deps are the collaborators the HTTP layer needs. Logger and Metrics may
// be nil; RPS <= 0 disables rate limiting.
type Deps struct {
	DB        handlers.Pinger
	Engine    *services.Engine
	Queries   *services.Queries
	Directory *services.Directory
	Sessions  ports.SessionCodec
	Metrics   *obs.Metrics
	Logger    *zap.Logger
	RPS       float64
	Burst     int
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}

	auth := &handlers.AuthHandler{Directory: d.Directory, Sessions: d.Sessions}
	reqs := &handlers.RequestHandler{Engine: d.Engine, Queries: d.Queries}
	views := &handlers.ViewHandler{Queries: d.Queries, Directory: d.Directory}
	users := &handlers.UserHandler{Directory: d.Directory}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(accessLog(log, d.Metrics))
	if d.RPS > 0 {
		r.Use(newIPLimiter(d.RPS, d.Burst).Handler)
	}

	r.Get("/health", handlers.Health(d.DB))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(authenticate(d.Sessions))

		r.Post("/auth/register", auth.Register)
		r.Post("/auth/login", auth.Login)
		r.Get("/track/{code}", views.Track)

		r.Group(func(r chi.Router) {
			r.Use(requireCaller)

			r.Route("/requests", func(r chi.Router) {
				r.Post("/", reqs.Create)
				r.Get("/mine", reqs.Mine)
				r.Get("/{id}", reqs.Get)
				r.Post("/{id}/cancel", reqs.Cancel)
				r.Post("/{id}/assign", reqs.Assign)
				r.Post("/{id}/claim", reqs.Claim)
				r.Post("/{id}/transit", reqs.Transit)
				r.Post("/{id}/deliver", reqs.Deliver)
				r.Post("/{id}/confirm", reqs.Confirm)
				r.Post("/{id}/waybill", reqs.AttachWaybill)
			})

			r.Get("/zones/{zone}/requests", views.ZoneRequests)
			r.Get("/zones/{zone}/summary", views.ZoneSummary)
			r.Get("/collectors", views.Collectors)
			r.Get("/collectors/me/requests", views.CollectorRequests)
			r.Get("/branches/{id}/requests", views.BranchRequests)
			r.Patch("/users/{id}/active", users.SetActive)
		})
	})

	return r
}
