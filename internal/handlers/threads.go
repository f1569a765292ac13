package handlers

import (
	"net/http"
	"strconv"

	mw "parley/internal/middleware"
	"parley/internal/resolve"
)

func validThread(w http.ResponseWriter, title string) bool {
	if title == "" || len(title) > 200 || !headerSafe(title) {
		errResp(w, http.StatusBadRequest, "title must be 1-200 printable characters")
		return false
	}
	return true
}

func (h *Handler) CreateThread(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if !validThread(w, req.Title) {
		return
	}

	t, err := h.db.CreateThread(req.Title)
	if err != nil {
		storeErr(w, err, "thread already exists")
		return
	}
	createdAt(w, resolve.ThreadPath(t.ID))
}

func (h *Handler) ListThreads(w http.ResponseWriter, r *http.Request) {
	ids, err := h.db.ListThreadIDs()
	if err != nil {
		errResp(w, http.StatusInternalServerError, "failed to list threads")
		return
	}
	ok(w, map[string]interface{}{"thread_ids": ids})
}

func (h *Handler) GetThread(w http.ResponseWriter, r *http.Request) {
	t := mw.GetThread(r)
	meta(w, map[string]string{
		"Thread-Id": strconv.FormatInt(t.ID, 10),
		"Title":     t.Title,
	})
}

func (h *Handler) UpdateThread(w http.ResponseWriter, r *http.Request) {
	t := mw.GetThread(r)
	var req struct {
		Title string `json:"title"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if !validThread(w, req.Title) {
		return
	}
	if err := h.db.UpdateThread(t.ID, req.Title); err != nil {
		storeErr(w, err, "thread already exists")
		return
	}
	noContent(w)
}

func (h *Handler) DeleteThread(w http.ResponseWriter, r *http.Request) {
	t := mw.GetThread(r)
	if err := h.db.DeleteThread(t.ID); err != nil {
		storeErr(w, err, "")
		return
	}
	noContent(w)
}
