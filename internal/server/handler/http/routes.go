// Package http provides HTTP routing and middleware configuration
// for the username directory service.
package http

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/tkorchagin/namelink/internal/middleware"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves the
// username directory API. It applies JSON content-type enforcement,
// request logging, and per-IP rate limiting, and mounts the username and
// link endpoints under /api/v1.
//
// Routes:
//
//	PUT    /api/v1/username/reserve          → reserve first available hash (account)
//	PUT    /api/v1/username/confirm          → confirm reservation + new link (account)
//	DELETE /api/v1/username                  → delete username and link (account)
//	POST   /api/v1/username/link             → rotate link (account)
//	PUT    /api/v1/username/link/{serverID}  → replace link blob (account)
//	GET    /api/v1/username/link/{serverID}  → fetch encrypted blob (public)
//	GET    /api/v1/username/lookup/{hash}    → resolve hash to account (public)
func NewRouter(
	usernameHandler *UsernameHandler,
	limiter *middleware.RateLimiter,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.WithRequestLogging(logger))
	r.Use(limiter.Handler)

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints: resolving a link needs no account.
		r.Get("/username/link/{serverID}", usernameHandler.GetLinkBlob)
		r.Get("/username/lookup/{hash}", usernameHandler.Lookup)

		// Account-scoped endpoints.
		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.AllowContentType("application/json"))
			r.Use(middleware.AccountAuth)

			r.Put("/username/reserve", usernameHandler.Reserve)
			r.Put("/username/confirm", usernameHandler.Confirm)
			r.Delete("/username", usernameHandler.Delete)
			r.Post("/username/link", usernameHandler.CreateLink)
			r.Put("/username/link/{serverID}", usernameHandler.UpdateLink)
		})
	})

	return r
}
