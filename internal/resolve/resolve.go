// Package resolve is the slug codec for URL path segments. Parsing and
// building are inverses: every segment a builder emits re-parses to the
// same id, so Location headers and generated links always resolve.
package resolve

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrBadSegment = errors.New("bad path segment")

// ParseThreadSegment accepts exactly "thread-<integer>".
func ParseThreadSegment(seg string) (int64, error) {
	return parsePrefixed(seg, "thread-")
}

// ParseMessageSegment accepts exactly "message-<integer>".
func ParseMessageSegment(seg string) (int64, error) {
	return parsePrefixed(seg, "message-")
}

// ParseID accepts a bare integer segment (reactions, media).
func ParseID(seg string) (int64, error) {
	id, err := strconv.ParseInt(seg, 10, 64)
	if err != nil {
		return 0, ErrBadSegment
	}
	return id, nil
}

func parsePrefixed(seg, prefix string) (int64, error) {
	rest, found := strings.CutPrefix(seg, prefix)
	if !found {
		return 0, ErrBadSegment
	}
	return ParseID(rest)
}

func ThreadSegment(id int64) string {
	return fmt.Sprintf("thread-%d", id)
}

func MessageSegment(id int64) string {
	return fmt.Sprintf("message-%d", id)
}

// --- Canonical resource paths, used for Location headers ---

func UserPath(username string) string {
	return "/api/users/" + username + "/"
}

func ThreadPath(threadID int64) string {
	return "/api/threads/" + ThreadSegment(threadID) + "/"
}

func MessagePath(threadID, messageID int64) string {
	return ThreadPath(threadID) + "messages/" + MessageSegment(messageID) + "/"
}

func ReactionPath(threadID, messageID, reactionID int64) string {
	return MessagePath(threadID, messageID) + fmt.Sprintf("reactions/%d/", reactionID)
}

func MediaPath(mediaID int64) string {
	return fmt.Sprintf("/api/media/%d/", mediaID)
}
