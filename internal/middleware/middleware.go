// Package middleware resolves URL path segments to stored entities and
// gates mutating user operations behind the API key check. Handlers
// downstream never see raw path strings for matched segments; they pick
// the resolved rows out of the request context.
package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"parley/internal/auth"
	"parley/internal/db"
	"parley/internal/resolve"
)

type contextKey string

const (
	userKey     contextKey = "user"
	threadKey   contextKey = "thread"
	messageKey  contextKey = "message"
	reactionKey contextKey = "reaction"
	mediaKey    contextKey = "media"
)

func notFound(w http.ResponseWriter) {
	http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
}

// UserCtx resolves the {user} segment by exact username match.
func UserCtx(d *db.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := d.GetUserByUsername(chi.URLParam(r, "user"))
			if err != nil {
				notFound(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, u)))
		})
	}
}

// ThreadCtx resolves the {thread} segment ("thread-<id>").
func ThreadCtx(d *db.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := resolve.ParseThreadSegment(chi.URLParam(r, "thread"))
			if err != nil {
				notFound(w)
				return
			}
			t, err := d.GetThreadByID(id)
			if err != nil {
				notFound(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), threadKey, t)))
		})
	}
}

// MessageCtx resolves the {message} segment ("message-<id>") and rejects a
// message that exists but belongs to a different thread than the path.
func MessageCtx(d *db.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := resolve.ParseMessageSegment(chi.URLParam(r, "message"))
			if err != nil {
				notFound(w)
				return
			}
			m, err := d.GetMessageByID(id)
			if err != nil {
				notFound(w)
				return
			}
			if t := GetThread(r); t == nil || t.ID != m.ThreadID {
				notFound(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), messageKey, m)))
		})
	}
}

// ReactionCtx resolves the bare-numeric {reaction} segment, scoped to the
// message already in context.
func ReactionCtx(d *db.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := resolve.ParseID(chi.URLParam(r, "reaction"))
			if err != nil {
				notFound(w)
				return
			}
			rx, err := d.GetReactionByID(id)
			if err != nil {
				notFound(w)
				return
			}
			if m := GetMessage(r); m == nil || m.ID != rx.MessageID {
				notFound(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), reactionKey, rx)))
		})
	}
}

// MediaCtx resolves the bare-numeric {media} segment.
func MediaCtx(d *db.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := resolve.ParseID(chi.URLParam(r, "media"))
			if err != nil {
				notFound(w)
				return
			}
			m, err := d.GetMediaByID(id)
			if err != nil {
				notFound(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), mediaKey, m)))
		})
	}
}

// RequireKey gates mutating operations on the resolved target user. The
// presented Api-key header must hash to the TARGET user's stored digest.
// Absent header, no stored key, and mismatch are indistinguishable: 403.
func RequireKey(d *db.DB, svc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			target := GetUser(r)
			if target == nil {
				notFound(w)
				return
			}
			presented := r.Header.Get("Api-key")
			key, err := d.GetAPIKeyForUser(target.ID)
			if err != nil || !svc.VerifyKey(key.KeyHash, presented) {
				http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// --- Context accessors ---

func GetUser(r *http.Request) *db.User {
	u, _ := r.Context().Value(userKey).(*db.User)
	return u
}

func GetThread(r *http.Request) *db.Thread {
	t, _ := r.Context().Value(threadKey).(*db.Thread)
	return t
}

func GetMessage(r *http.Request) *db.Message {
	m, _ := r.Context().Value(messageKey).(*db.Message)
	return m
}

func GetReaction(r *http.Request) *db.Reaction {
	rx, _ := r.Context().Value(reactionKey).(*db.Reaction)
	return rx
}

func GetMedia(r *http.Request) *db.Media {
	m, _ := r.Context().Value(mediaKey).(*db.Media)
	return m
}
