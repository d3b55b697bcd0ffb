package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/echofeed/backend/internal/auth"
	adminhandler "github.com/echofeed/backend/internal/handler/admin"
	authhandler "github.com/echofeed/backend/internal/handler/auth"
	feedhandler "github.com/echofeed/backend/internal/handler/feed"
	middlewarePkg "github.com/echofeed/backend/internal/middleware"
	"github.com/echofeed/backend/internal/service/relay"
	userservice "github.com/echofeed/backend/internal/service/user"
	"github.com/echofeed/backend/pkg/utils"
)

// RouterConfig carries the pieces the router needs beyond the services.
type RouterConfig struct {
	Issuer        *auth.Issuer
	AdminUsername string
	StaticDir     string
}

// NewRouter wires HTTP routes to core services.
func NewRouter(rl *relay.Relay, users *userservice.Service, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{
			"status":  "OK",
			"message": "Server is running",
		})
	})

	// The feed socket lives at the root, next to the static frontend.
	feedhandler.New(rl).RegisterRoutes(r)

	r.Route("/api", func(api chi.Router) {
		ah := authhandler.New(users, cfg.Issuer)
		ah.RegisterRoutes(api)

		api.Group(func(g chi.Router) {
			g.Use(middlewarePkg.RequireAuth(cfg.Issuer))
			ah.RegisterProtectedRoutes(g)
		})

		api.Group(func(g chi.Router) {
			g.Use(middlewarePkg.RequireAdmin(cfg.Issuer, cfg.AdminUsername))
			adminhandler.New(users, rl).RegisterRoutes(g)
		})
	})

	if cfg.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	return r
}
