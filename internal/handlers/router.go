package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	mw "parley/internal/middleware"
)

// Router wires every resource route. Path segments resolve to entities in
// the middleware layer before any handler runs, so a bad slug 404s without
// touching handler code. authLimiter guards the credential-accepting
// endpoints; nil disables it.
func (h *Handler) Router(authLimiter func(http.Handler) http.Handler) chi.Router {
	if authLimiter == nil {
		authLimiter = func(next http.Handler) http.Handler { return next }
	}

	// No CleanPath here: path.Clean drops the trailing slash every route
	// below is registered with, which would 404 the whole API.
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.With(authLimiter).Post("/users/", h.RegisterUser)
		r.With(authLimiter).Post("/login/", h.Login)

		r.Route("/users/{user}", func(r chi.Router) {
			r.Use(mw.UserCtx(h.db))
			r.Get("/", h.GetUser)
			// Logout gates itself: a user holding no key is a 404, which
			// RequireKey would mask as 403.
			r.Post("/logout/", h.Logout)
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireKey(h.db, h.auth))
				r.Put("/", h.UpdateUser)
				r.Delete("/", h.DeleteUser)
			})
		})

		r.Get("/threads/", h.ListThreads)
		r.Post("/threads/", h.CreateThread)
		r.Route("/threads/{thread}", func(r chi.Router) {
			r.Use(mw.ThreadCtx(h.db))
			r.Get("/", h.GetThread)
			r.Put("/", h.UpdateThread)
			r.Delete("/", h.DeleteThread)

			r.Get("/messages/", h.ListMessages)
			r.Post("/messages/", h.CreateMessage)
			r.Route("/messages/{message}", func(r chi.Router) {
				r.Use(mw.MessageCtx(h.db))
				r.Get("/", h.GetMessage)
				r.Put("/", h.UpdateMessage)
				r.Delete("/", h.DeleteMessage)

				r.Get("/reactions/", h.ListReactions)
				r.Post("/reactions/", h.CreateReaction)
				r.Route("/reactions/{reaction}", func(r chi.Router) {
					r.Use(mw.ReactionCtx(h.db))
					r.Get("/", h.GetReaction)
					r.Put("/", h.UpdateReaction)
					r.Delete("/", h.DeleteReaction)
				})
			})
		})

		r.Get("/media/", h.ListMedia)
		r.Post("/media/", h.CreateMedia)
		r.Route("/media/{media}", func(r chi.Router) {
			r.Use(mw.MediaCtx(h.db))
			r.Get("/", h.GetMedia)
			r.Put("/", h.UpdateMedia)
			r.Delete("/", h.DeleteMedia)
		})
	})

	return r
}
