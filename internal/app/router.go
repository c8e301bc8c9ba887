package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/meridian-shop/meridian/internal/auth"
	"github.com/meridian-shop/meridian/internal/products"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	AuthHandler     *auth.Handler
	ProductsHandler *products.Handler
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	authLimit, authWindow := 10, time.Hour
	productLimit, productWindow := 500, 20*time.Minute
	if params.Config != nil {
		authLimit, authWindow = params.Config.AuthRateLimit, params.Config.AuthRateWindow
		productLimit, productWindow = params.Config.ProductRateLimit, params.Config.ProductRateWindow
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(httprate.Limit(authLimit, authWindow, httprate.WithKeyFuncs(httprate.KeyByIP)))
			params.AuthHandler.MountRoutes(r)
		})
		r.Route("/products", func(r chi.Router) {
			r.Use(httprate.Limit(productLimit, productWindow, httprate.WithKeyFuncs(httprate.KeyByIP)))
			params.ProductsHandler.MountRoutes(r)
		})
	})

	return r
}
