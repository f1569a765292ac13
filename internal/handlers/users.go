package handlers

import (
	"net/http"
	"strconv"

	mw "parley/internal/middleware"
	"parley/internal/resolve"
)

// validUser checks the registration/replace body shared by POST and PUT.
func validUser(w http.ResponseWriter, username, password string) bool {
	if username == "" || len(username) > 16 || !headerSafe(username) {
		errResp(w, http.StatusBadRequest, "username must be 1-16 printable characters")
		return false
	}
	if password == "" {
		errResp(w, http.StatusBadRequest, "password required")
		return false
	}
	return true
}

// RegisterUser creates the user and issues its API key in one shot. The
// raw key is only ever returned here and at first login.
func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
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

	hash, err := h.auth.HashPassword(req.Password)
	if err != nil {
		errResp(w, http.StatusInternalServerError, "failed to hash password")
		return
	}
	rawKey, keyHash, err := h.auth.NewKey()
	if err != nil {
		errResp(w, http.StatusInternalServerError, "failed to issue key")
		return
	}

	u, err := h.db.CreateUser(req.Username, hash, keyHash)
	if err != nil {
		storeErr(w, err, "username "+req.Username+" already taken")
		return
	}

	w.Header().Set("Api-key", rawKey)
	createdAt(w, resolve.UserPath(u.Username))
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u := mw.GetUser(r)
	meta(w, map[string]string{
		"Username": u.Username,
		"User-Id":  strconv.FormatInt(u.ID, 10),
	})
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	u := mw.GetUser(r)
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

	hash, err := h.auth.HashPassword(req.Password)
	if err != nil {
		errResp(w, http.StatusInternalServerError, "failed to hash password")
		return
	}
	if err := h.db.UpdateUser(u.ID, req.Username, hash); err != nil {
		storeErr(w, err, "username "+req.Username+" already taken")
		return
	}
	noContent(w)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	u := mw.GetUser(r)
	if err := h.db.DeleteUser(u.ID); err != nil {
		storeErr(w, err, "")
		return
	}
	noContent(w)
}
