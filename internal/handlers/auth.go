package handlers

import (
	"net/http"

	mw "parley/internal/middleware"
)

// Login verifies the password and issues an API key when the user holds
// none. Issuance is one-shot: a re-login never rotates an existing key,
// so tokens held by other clients stay valid. The Api-key header is only
// present when a key was actually created.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if !validUser(w, req.Username, req.Password) {
		return
	}

	u, err := h.db.GetUserByUsername(req.Username)
	if err != nil {
		storeErr(w, err, "")
		return
	}
	if !h.auth.CheckPassword(u.PasswordHash, req.Password) {
		errResp(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	rawKey, keyHash, err := h.auth.NewKey()
	if err != nil {
		errResp(w, http.StatusInternalServerError, "failed to issue key")
		return
	}
	issued, err := h.db.CreateAPIKeyIfAbsent(u.ID, keyHash)
	if err != nil {
		storeErr(w, err, "key already exists")
		return
	}
	if issued {
		w.Header().Set("Api-key", rawKey)
	}
	w.WriteHeader(http.StatusCreated)
}

// Logout revokes the stored key. It runs its own gate instead of
// RequireKey: a user holding no key at all is a 404, not a 403, so the
// existence check has to come before the key comparison.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	u := mw.GetUser(r)
	key, err := h.db.GetAPIKeyForUser(u.ID)
	if err != nil {
		storeErr(w, err, "")
		return
	}
	if !h.auth.VerifyKey(key.KeyHash, r.Header.Get("Api-key")) {
		errResp(w, http.StatusForbidden, "forbidden")
		return
	}
	if err := h.db.DeleteAPIKeyForUser(u.ID); err != nil {
		storeErr(w, err, "")
		return
	}
	ok(w, map[string]string{"message": "logged out"})
}
