package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/erazemk/izposoja/internal/metrics"
)

// Options configures the API router.
type Options struct {
	DB             *sql.DB
	JWTSecret      string
	TokenTTL       time.Duration
	MaxUploadBytes int64
	Metrics        *metrics.Metrics

	// Now overrides the clock used for the dashboard. Defaults to time.Now.
	Now func() time.Time
}

// NewRouter creates the HTTP handler with all endpoints registered.
func NewRouter(opts Options) http.Handler {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	authHandler := &AuthHandler{DB: opts.DB, JWTSecret: opts.JWTSecret, TokenTTL: opts.TokenTTL}
	usersHandler := &UsersHandler{DB: opts.DB}
	itemsHandler := &ItemsHandler{DB: opts.DB}
	ordersHandler := &OrdersHandler{DB: opts.DB, Metrics: opts.Metrics}
	dashboardHandler := &DashboardHandler{DB: opts.DB, Now: now}
	imagesHandler := &ImagesHandler{DB: opts.DB, MaxBytes: opts.MaxUploadBytes}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(opts.Metrics.Middleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := opts.DB.PingContext(r.Context()); err != nil {
			jsonError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		// Public: login, and images so they can be used in <img> tags.
		r.Post("/auth/login", authHandler.Login)
		r.Get("/images/*", imagesHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(opts.JWTSecret, opts.DB))

			r.Get("/auth/me", authHandler.Me)
			r.Put("/auth/password", authHandler.ChangePassword)
			r.Post("/auth/logout", authHandler.Logout)

			r.Get("/users", usersHandler.List)
			r.Post("/users", usersHandler.Create)
			r.Get("/users/{id}", usersHandler.Get)
			r.Put("/users/{id}", usersHandler.Update)
			r.Delete("/users/{id}", usersHandler.Delete)
			r.Put("/users/{id}/password", usersHandler.ChangePassword)

			r.Get("/items", itemsHandler.List)
			r.Post("/items", itemsHandler.Create)
			r.Get("/items/{id}", itemsHandler.Get)
			r.Put("/items/{id}", itemsHandler.Update)
			r.Delete("/items/{id}", itemsHandler.Delete)
			r.Get("/items/{id}/history", itemsHandler.History)

			r.Get("/orders", ordersHandler.List)
			r.Post("/orders", ordersHandler.Create)
			r.Get("/orders/{id}", ordersHandler.Get)
			r.Put("/orders/{id}", ordersHandler.Update)
			r.Delete("/orders/{id}", ordersHandler.Delete)
			r.Post("/orders/{id}/items", ordersHandler.AddLine)
			r.Put("/orders/{id}/items/{lineId}", ordersHandler.UpdateLine)
			r.Post("/orders/{id}/checkout", ordersHandler.CheckOut)
			r.Post("/orders/{id}/checkin", ordersHandler.CheckIn)

			r.Get("/dashboard", dashboardHandler.Get)

			r.Post("/images/upload", imagesHandler.Upload)
			r.Delete("/images/*", imagesHandler.Delete)
		})
	})

	return r
}
