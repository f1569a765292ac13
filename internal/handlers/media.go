package handlers

import (
	"net/http"
	"strconv"
	"strings"

	mw "parley/internal/middleware"
	"parley/internal/resolve"
)

type mediaBody struct {
	URL       string `json:"media_url"`
	MessageID *int64 `json:"message_id"`
}

// validMedia enforces the image-extension rule on top of the stored-column
// length cap. Media is the one flat resource: its message linkage rides in
// the body rather than the path.
func validMedia(w http.ResponseWriter, req *mediaBody) bool {
	if req.URL == "" || len(req.URL) > 128 || !headerSafe(req.URL) {
		errResp(w, http.StatusBadRequest, "media_url must be 1-128 printable characters")
		return false
	}
	if !strings.HasSuffix(req.URL, ".png") && !strings.HasSuffix(req.URL, ".jpg") {
		errResp(w, http.StatusBadRequest, "media_url must end in .png or .jpg")
		return false
	}
	if req.MessageID == nil {
		errResp(w, http.StatusBadRequest, "message_id required")
		return false
	}
	return true
}

func (h *Handler) CreateMedia(w http.ResponseWriter, r *http.Request) {
	var req mediaBody
	if !readJSON(w, r, &req) {
		return
	}
	if !validMedia(w, &req) {
		return
	}

	m, err := h.db.CreateMedia(req.URL, *req.MessageID)
	if err != nil {
		storeErr(w, err, "media references a missing message")
		return
	}
	createdAt(w, resolve.MediaPath(m.ID))
}

func (h *Handler) ListMedia(w http.ResponseWriter, r *http.Request) {
	ids, err := h.db.ListMediaIDs()
	if err != nil {
		errResp(w, http.StatusInternalServerError, "failed to list media")
		return
	}
	ok(w, map[string]interface{}{"media_ids": ids})
}

func (h *Handler) GetMedia(w http.ResponseWriter, r *http.Request) {
	m := mw.GetMedia(r)
	meta(w, map[string]string{
		"Media-Id":   strconv.FormatInt(m.ID, 10),
		"Media-Url":  m.URL,
		"Message-Id": strconv.FormatInt(m.MessageID, 10),
	})
}

func (h *Handler) UpdateMedia(w http.ResponseWriter, r *http.Request) {
	m := mw.GetMedia(r)
	var req mediaBody
	if !readJSON(w, r, &req) {
		return
	}
	if !validMedia(w, &req) {
		return
	}
	if err := h.db.UpdateMedia(m.ID, req.URL, *req.MessageID); err != nil {
		storeErr(w, err, "media references a missing message")
		return
	}
	noContent(w)
}

func (h *Handler) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	m := mw.GetMedia(r)
	if err := h.db.DeleteMedia(m.ID); err != nil {
		storeErr(w, err, "")
		return
	}
	noContent(w)
}
