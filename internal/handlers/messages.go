package handlers

import (
	"net/http"
	"strconv"
	"time"

	"parley/internal/db"
	mw "parley/internal/middleware"
	"parley/internal/resolve"
)

type messageBody struct {
	Content   string `json:"message_content"`
	Timestamp string `json:"timestamp"`
	SenderID  *int64 `json:"sender_id"`
	ParentID  *int64 `json:"parent_id"`
}

// validMessage checks the body against the message schema and the
// cross-parent rule: a reply's parent must live in the path's thread.
// The thread foreign key itself always comes from the path, never the body.
func (h *Handler) validMessage(w http.ResponseWriter, t *db.Thread, req *messageBody) bool {
	if req.Content == "" || len(req.Content) > 500 || !headerSafe(req.Content) {
		errResp(w, http.StatusBadRequest, "message_content must be 1-500 printable characters")
		return false
	}
	if _, err := time.Parse(time.RFC3339, req.Timestamp); err != nil {
		errResp(w, http.StatusBadRequest, "timestamp must be an ISO-8601 datetime")
		return false
	}
	if req.SenderID == nil {
		errResp(w, http.StatusBadRequest, "sender_id required")
		return false
	}
	if req.ParentID != nil {
		parent, err := h.db.GetMessageByID(*req.ParentID)
		if err != nil || parent.ThreadID != t.ID {
			errResp(w, http.StatusBadRequest, "parent message not in this thread")
			return false
		}
	}
	return true
}

func (h *Handler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	t := mw.GetThread(r)
	var req messageBody
	if !readJSON(w, r, &req) {
		return
	}
	if !h.validMessage(w, t, &req) {
		return
	}

	m, err := h.db.CreateMessage(t.ID, *req.SenderID, req.Content, req.Timestamp, req.ParentID)
	if err != nil {
		storeErr(w, err, "message violates thread or sender constraints")
		return
	}
	createdAt(w, resolve.MessagePath(t.ID, m.ID))
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	t := mw.GetThread(r)
	ids, err := h.db.ListMessageIDsByThread(t.ID)
	if err != nil {
		errResp(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	ok(w, map[string]interface{}{"message_ids": ids})
}

func (h *Handler) GetMessage(w http.ResponseWriter, r *http.Request) {
	m := mw.GetMessage(r)
	headers := map[string]string{
		"Message-Id":      strconv.FormatInt(m.ID, 10),
		"Message-Content": m.Content,
		"Timestamp":       m.Timestamp,
		"Sender-Id":       strconv.FormatInt(m.SenderID, 10),
		"Thread-Id":       strconv.FormatInt(m.ThreadID, 10),
	}
	if m.ParentID != nil {
		headers["Parent-Id"] = strconv.FormatInt(*m.ParentID, 10)
	}
	meta(w, headers)
}

func (h *Handler) UpdateMessage(w http.ResponseWriter, r *http.Request) {
	t := mw.GetThread(r)
	m := mw.GetMessage(r)
	var req messageBody
	if !readJSON(w, r, &req) {
		return
	}
	if !h.validMessage(w, t, &req) {
		return
	}
	if req.ParentID != nil && *req.ParentID == m.ID {
		errResp(w, http.StatusBadRequest, "message cannot be its own parent")
		return
	}
	if err := h.db.UpdateMessage(m.ID, req.Content, req.Timestamp, *req.SenderID, req.ParentID); err != nil {
		storeErr(w, err, "message violates thread or sender constraints")
		return
	}
	noContent(w)
}

func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	m := mw.GetMessage(r)
	if err := h.db.DeleteMessage(m.ID); err != nil {
		storeErr(w, err, "")
		return
	}
	noContent(w)
}
