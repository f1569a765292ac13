package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"parley/internal/auth"
	"parley/internal/db"
)

type Handler struct {
	db   *db.DB
	auth *auth.Service
}

func New(database *db.DB, authSvc *auth.Service) *Handler {
	return &Handler{db: database, auth: authSvc}
}

// --- Response helpers ---

func respond(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func ok(w http.ResponseWriter, data interface{}) {
	respond(w, http.StatusOK, data)
}

func noContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// createdAt reports a successful create with the new item's canonical path.
func createdAt(w http.ResponseWriter, location string) {
	w.Header().Set("Location", location)
	w.WriteHeader(http.StatusCreated)
}

// meta writes an item read as key-value response headers with an empty
// body, the wire shape the CLI and tests consume for single entities.
func meta(w http.ResponseWriter, headers map[string]string) {
	for k, v := range headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(http.StatusOK)
}

// headerSafe reports whether s can ride in a response header verbatim.
// Item reads serialize entity attributes as headers, so any stored text
// field must stay free of control characters or net/http drops it.
func headerSafe(s string) bool {
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}
	return true
}

func errResp(w http.ResponseWriter, status int, msg string) {
	respond(w, status, map[string]string{"error": msg})
}

// storeErr maps store sentinels onto statuses; anything else is a 500.
func storeErr(w http.ResponseWriter, err error, conflictMsg string) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		errResp(w, http.StatusNotFound, "not found")
	case errors.Is(err, db.ErrConflict):
		errResp(w, http.StatusConflict, conflictMsg)
	default:
		errResp(w, http.StatusInternalServerError, "internal error")
	}
}

// readJSON enforces the JSON body contract: wrong or missing content type
// is 415, a body that fails to decode is 400.
func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		errResp(w, http.StatusUnsupportedMediaType, "request must be application/json")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		errResp(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
