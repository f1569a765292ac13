package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	mw "parley/internal/middleware"
	"parley/internal/resolve"
)

type reactionBody struct {
	Type   *int   `json:"reaction_type"`
	UserID *int64 `json:"user_id"`
}

func validReaction(w http.ResponseWriter, req *reactionBody) bool {
	if req.Type == nil {
		errResp(w, http.StatusBadRequest, "reaction_type required")
		return false
	}
	if req.UserID == nil {
		errResp(w, http.StatusBadRequest, "user_id required")
		return false
	}
	return true
}

// CreateReaction enforces at-most-one reaction per (user, message). The
// lookup is the descriptive application-layer check; the store's unique
// constraint settles concurrent duplicates.
func (h *Handler) CreateReaction(w http.ResponseWriter, r *http.Request) {
	t := mw.GetThread(r)
	m := mw.GetMessage(r)
	var req reactionBody
	if !readJSON(w, r, &req) {
		return
	}
	if !validReaction(w, &req) {
		return
	}

	if _, err := h.db.FindReactionByUserMessage(*req.UserID, m.ID); err == nil {
		errResp(w, http.StatusConflict, fmt.Sprintf(
			"user %d has already reacted to message %d", *req.UserID, m.ID))
		return
	}

	rx, err := h.db.CreateReaction(*req.Type, *req.UserID, m.ID)
	if err != nil {
		storeErr(w, err, fmt.Sprintf(
			"user %d has already reacted to message %d", *req.UserID, m.ID))
		return
	}
	createdAt(w, resolve.ReactionPath(t.ID, m.ID, rx.ID))
}

func (h *Handler) ListReactions(w http.ResponseWriter, r *http.Request) {
	m := mw.GetMessage(r)
	ids, err := h.db.ListReactionIDsByMessage(m.ID)
	if err != nil {
		errResp(w, http.StatusInternalServerError, "failed to list reactions")
		return
	}
	ok(w, map[string]interface{}{"reaction_ids": ids})
}

func (h *Handler) GetReaction(w http.ResponseWriter, r *http.Request) {
	rx := mw.GetReaction(r)
	meta(w, map[string]string{
		"Reaction-Id":   strconv.FormatInt(rx.ID, 10),
		"Reaction-Type": strconv.Itoa(rx.Type),
		"User-Id":       strconv.FormatInt(rx.UserID, 10),
		"Message-Id":    strconv.FormatInt(rx.MessageID, 10),
	})
}

func (h *Handler) UpdateReaction(w http.ResponseWriter, r *http.Request) {
	m := mw.GetMessage(r)
	rx := mw.GetReaction(r)
	var req reactionBody
	if !readJSON(w, r, &req) {
		return
	}
	if !validReaction(w, &req) {
		return
	}

	// Moving the reaction to a user who already reacted is the same
	// duplicate-pair violation as on create.
	if existing, err := h.db.FindReactionByUserMessage(*req.UserID, m.ID); err == nil && existing.ID != rx.ID {
		errResp(w, http.StatusConflict, fmt.Sprintf(
			"user %d has already reacted to message %d", *req.UserID, m.ID))
		return
	}

	if err := h.db.UpdateReaction(rx.ID, *req.Type, *req.UserID); err != nil {
		storeErr(w, err, fmt.Sprintf(
			"user %d has already reacted to message %d", *req.UserID, m.ID))
		return
	}
	noContent(w)
}

func (h *Handler) DeleteReaction(w http.ResponseWriter, r *http.Request) {
	rx := mw.GetReaction(r)
	if err := h.db.DeleteReaction(rx.ID); err != nil {
		storeErr(w, err, "")
		return
	}
	noContent(w)
}
