// Package client is a thin typed wrapper around the parley HTTP API.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"parley/internal/resolve"
)

// APIError is returned for any non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %d %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api: status %d", e.Status)
}

// Client talks to a parley server. APIKey, when set, is attached to
// every request as the Api-key header.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, c.BaseURL+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Api-key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return nil, &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	return resp, nil
}

func (c *Client) doDiscard(method, path string, body any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

func (c *Client) doJSON(method, path string, body, out any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}

func headerInt(resp *http.Response, key string) int64 {
	n, _ := strconv.ParseInt(resp.Header.Get(key), 10, 64)
	return n
}

// --- Users ---

// Register creates an account and returns the issued API key.
func (c *Client) Register(username, password string) (string, error) {
	resp, err := c.do(http.MethodPost, "/api/users/", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return "", err
	}
	resp.Body.Close()
	return resp.Header.Get("Api-key"), nil
}

// Login exchanges credentials for an API key. The key is empty when the
// account already holds one; the previously issued key stays valid.
func (c *Client) Login(username, password string) (string, error) {
	resp, err := c.do(http.MethodPost, "/api/login/", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return "", err
	}
	resp.Body.Close()
	return resp.Header.Get("Api-key"), nil
}

func (c *Client) Logout(username string) error {
	return c.doDiscard(http.MethodPost, resolve.UserPath(username)+"logout/", nil)
}

type UserInfo struct {
	ID       int64
	Username string
}

func (c *Client) GetUser(username string) (UserInfo, error) {
	resp, err := c.do(http.MethodGet, resolve.UserPath(username), nil)
	if err != nil {
		return UserInfo{}, err
	}
	resp.Body.Close()
	return UserInfo{
		ID:       headerInt(resp, "User-Id"),
		Username: resp.Header.Get("Username"),
	}, nil
}

func (c *Client) UpdateUser(username, newName, newPassword string) error {
	return c.doDiscard(http.MethodPut, resolve.UserPath(username), map[string]string{
		"username": newName,
		"password": newPassword,
	})
}

func (c *Client) DeleteUser(username string) error {
	return c.doDiscard(http.MethodDelete, resolve.UserPath(username), nil)
}

// --- Threads ---

type ThreadInfo struct {
	ID    int64
	Title string
}

func (c *Client) CreateThread(title string) (int64, error) {
	resp, err := c.do(http.MethodPost, "/api/threads/", map[string]string{"title": title})
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return idFromLocation(resp, "thread-")
}

func (c *Client) ListThreads() ([]int64, error) {
	var out struct {
		ThreadIDs []int64 `json:"thread_ids"`
	}
	err := c.doJSON(http.MethodGet, "/api/threads/", nil, &out)
	return out.ThreadIDs, err
}

func (c *Client) GetThread(id int64) (ThreadInfo, error) {
	resp, err := c.do(http.MethodGet, resolve.ThreadPath(id), nil)
	if err != nil {
		return ThreadInfo{}, err
	}
	resp.Body.Close()
	return ThreadInfo{
		ID:    headerInt(resp, "Thread-Id"),
		Title: resp.Header.Get("Title"),
	}, nil
}

func (c *Client) UpdateThread(id int64, title string) error {
	return c.doDiscard(http.MethodPut, resolve.ThreadPath(id), map[string]string{"title": title})
}

func (c *Client) DeleteThread(id int64) error {
	return c.doDiscard(http.MethodDelete, resolve.ThreadPath(id), nil)
}

// --- Messages ---

type MessageInfo struct {
	ID        int64
	ThreadID  int64
	SenderID  int64
	ParentID  int64 // zero when the message is a thread root
	Content   string
	Timestamp string
}

type NewMessage struct {
	Content   string `json:"message_content"`
	Timestamp string `json:"timestamp"`
	SenderID  int64  `json:"sender_id"`
	ParentID  *int64 `json:"parent_id,omitempty"`
}

func (c *Client) CreateMessage(threadID int64, m NewMessage) (int64, error) {
	resp, err := c.do(http.MethodPost, resolve.ThreadPath(threadID)+"messages/", m)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return idFromLocation(resp, "message-")
}

func (c *Client) ListMessages(threadID int64) ([]int64, error) {
	var out struct {
		MessageIDs []int64 `json:"message_ids"`
	}
	err := c.doJSON(http.MethodGet, resolve.ThreadPath(threadID)+"messages/", nil, &out)
	return out.MessageIDs, err
}

func (c *Client) GetMessage(threadID, id int64) (MessageInfo, error) {
	resp, err := c.do(http.MethodGet, resolve.MessagePath(threadID, id), nil)
	if err != nil {
		return MessageInfo{}, err
	}
	resp.Body.Close()
	return MessageInfo{
		ID:        headerInt(resp, "Message-Id"),
		ThreadID:  headerInt(resp, "Thread-Id"),
		SenderID:  headerInt(resp, "Sender-Id"),
		ParentID:  headerInt(resp, "Parent-Id"),
		Content:   resp.Header.Get("Message-Content"),
		Timestamp: resp.Header.Get("Timestamp"),
	}, nil
}

func (c *Client) UpdateMessage(threadID, id int64, m NewMessage) error {
	return c.doDiscard(http.MethodPut, resolve.MessagePath(threadID, id), m)
}

func (c *Client) DeleteMessage(threadID, id int64) error {
	return c.doDiscard(http.MethodDelete, resolve.MessagePath(threadID, id), nil)
}

// --- Reactions ---

type ReactionInfo struct {
	ID        int64
	Type      int
	UserID    int64
	MessageID int64
}

func (c *Client) CreateReaction(threadID, messageID int64, typ int, userID int64) (int64, error) {
	resp, err := c.do(http.MethodPost, resolve.MessagePath(threadID, messageID)+"reactions/", map[string]any{
		"reaction_type": typ,
		"user_id":       userID,
	})
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return trailingID(resp)
}

func (c *Client) ListReactions(threadID, messageID int64) ([]int64, error) {
	var out struct {
		ReactionIDs []int64 `json:"reaction_ids"`
	}
	err := c.doJSON(http.MethodGet, resolve.MessagePath(threadID, messageID)+"reactions/", nil, &out)
	return out.ReactionIDs, err
}

func (c *Client) GetReaction(threadID, messageID, id int64) (ReactionInfo, error) {
	resp, err := c.do(http.MethodGet, resolve.ReactionPath(threadID, messageID, id), nil)
	if err != nil {
		return ReactionInfo{}, err
	}
	resp.Body.Close()
	return ReactionInfo{
		ID:        headerInt(resp, "Reaction-Id"),
		Type:      int(headerInt(resp, "Reaction-Type")),
		UserID:    headerInt(resp, "User-Id"),
		MessageID: headerInt(resp, "Message-Id"),
	}, nil
}

func (c *Client) UpdateReaction(threadID, messageID, id int64, typ int, userID int64) error {
	return c.doDiscard(http.MethodPut, resolve.ReactionPath(threadID, messageID, id), map[string]any{
		"reaction_type": typ,
		"user_id":       userID,
	})
}

func (c *Client) DeleteReaction(threadID, messageID, id int64) error {
	return c.doDiscard(http.MethodDelete, resolve.ReactionPath(threadID, messageID, id), nil)
}

// --- Media ---

type MediaInfo struct {
	ID        int64
	URL       string
	MessageID int64
}

func (c *Client) CreateMedia(url string, messageID int64) (int64, error) {
	resp, err := c.do(http.MethodPost, "/api/media/", map[string]any{
		"media_url":  url,
		"message_id": messageID,
	})
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return trailingID(resp)
}

func (c *Client) ListMedia() ([]int64, error) {
	var out struct {
		MediaIDs []int64 `json:"media_ids"`
	}
	err := c.doJSON(http.MethodGet, "/api/media/", nil, &out)
	return out.MediaIDs, err
}

func (c *Client) GetMedia(id int64) (MediaInfo, error) {
	resp, err := c.do(http.MethodGet, resolve.MediaPath(id), nil)
	if err != nil {
		return MediaInfo{}, err
	}
	resp.Body.Close()
	return MediaInfo{
		ID:        headerInt(resp, "Media-Id"),
		URL:       resp.Header.Get("Media-Url"),
		MessageID: headerInt(resp, "Message-Id"),
	}, nil
}

func (c *Client) UpdateMedia(id int64, url string, messageID int64) error {
	return c.doDiscard(http.MethodPut, resolve.MediaPath(id), map[string]any{
		"media_url":  url,
		"message_id": messageID,
	})
}

func (c *Client) DeleteMedia(id int64) error {
	return c.doDiscard(http.MethodDelete, resolve.MediaPath(id), nil)
}

// idFromLocation pulls the numeric id out of a Location header whose
// final segment is a slug like thread-7 or message-12.
func idFromLocation(resp *http.Response, prefix string) (int64, error) {
	loc := strings.TrimRight(resp.Header.Get("Location"), "/")
	seg := loc[strings.LastIndex(loc, "/")+1:]
	rest, ok := strings.CutPrefix(seg, prefix)
	if !ok {
		return 0, fmt.Errorf("client: unexpected Location %q", loc)
	}
	return strconv.ParseInt(rest, 10, 64)
}

// trailingID pulls a bare numeric final segment out of the Location header.
func trailingID(resp *http.Response) (int64, error) {
	loc := strings.TrimRight(resp.Header.Get("Location"), "/")
	seg := loc[strings.LastIndex(loc, "/")+1:]
	return strconv.ParseInt(seg, 10, 64)
}
