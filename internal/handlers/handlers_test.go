package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"parley/internal/auth"
	"parley/internal/client"
	"parley/internal/db"
)

func newTestServer(t *testing.T) string {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	d, err := db.Init("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	srv := httptest.NewServer(New(d, auth.New()).Router(nil))
	t.Cleanup(func() {
		srv.Close()
		d.Close()
	})
	return srv.URL
}

func wantStatus(t *testing.T, err error, status int) {
	t.Helper()
	apiErr, ok := err.(*client.APIError)
	if !ok {
		t.Fatalf("want APIError with status %d, got %v", status, err)
	}
	if apiErr.Status != status {
		t.Fatalf("want status %d, got %d (%s)", status, apiErr.Status, apiErr.Message)
	}
}

// signUp registers a user and returns a client authenticated as them.
func signUp(t *testing.T, baseURL, username string) (*client.Client, client.UserInfo) {
	t.Helper()
	c := client.New(baseURL)
	key, err := c.Register(username, "secret-"+username)
	if err != nil {
		t.Fatalf("Register(%s): %v", username, err)
	}
	if key == "" {
		t.Fatalf("Register(%s): no key issued", username)
	}
	c.APIKey = key
	u, err := c.GetUser(username)
	if err != nil {
		t.Fatalf("GetUser(%s): %v", username, err)
	}
	return c, u
}

func TestRegisterAndLogin(t *testing.T) {
	url := newTestServer(t)
	c := client.New(url)

	key, err := c.Register("alice", "wonderland")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if key == "" {
		t.Fatal("registration should issue a key")
	}

	if _, err := c.Register("alice", "other"); err == nil {
		t.Fatal("duplicate username should fail")
	} else {
		wantStatus(t, err, http.StatusConflict)
	}

	// The account already holds a key, so login succeeds but hands
	// nothing out.
	relogin, err := c.Login("alice", "wonderland")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if relogin != "" {
		t.Error("re-login must not reissue the key")
	}

	_, err = c.Login("alice", "wrong")
	wantStatus(t, err, http.StatusUnauthorized)

	_, err = c.Login("nobody", "whatever")
	wantStatus(t, err, http.StatusNotFound)
}

func TestLogoutThenLoginIssuesFreshKey(t *testing.T) {
	url := newTestServer(t)
	c, _ := signUp(t, url, "alice")
	oldKey := c.APIKey

	if err := c.Logout("alice"); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	// The revoked key no longer opens the gate.
	err := c.UpdateUser("alice", "alice", "newpass")
	wantStatus(t, err, http.StatusForbidden)

	fresh, err := c.Login("alice", "secret-alice")
	if err != nil {
		t.Fatalf("Login after logout: %v", err)
	}
	if fresh == "" {
		t.Fatal("login after logout should issue a key")
	}
	if fresh == oldKey {
		t.Error("fresh key should differ from the revoked one")
	}
	c.APIKey = fresh
	if err := c.UpdateUser("alice", "alice", "newpass"); err != nil {
		t.Fatalf("UpdateUser with fresh key: %v", err)
	}
}

// The whole API is registered with trailing-slash paths; a path-cleaning
// middleware that strips them would 404 every endpoint.
func TestTrailingSlashRoutesResolve(t *testing.T) {
	url := newTestServer(t)

	resp, err := http.Get(url + "/api/threads/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/threads/: status %d, want 200", resp.StatusCode)
	}

	c, _ := signUp(t, url, "alice")
	tid, err := c.CreateThread("general")
	if err != nil {
		t.Fatalf("CreateThread: %v", err)
	}
	if _, err := c.GetThread(tid); err != nil {
		t.Fatalf("GET thread item route: %v", err)
	}
}

func TestSecondLogoutReportsMissingKey(t *testing.T) {
	url := newTestServer(t)
	c, _ := signUp(t, url, "alice")

	if err := c.Logout("alice"); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	// The key row is gone now, so a repeat logout is a 404 — not the
	// gate's 403, which is reserved for presenting a wrong key.
	wantStatus(t, c.Logout("alice"), http.StatusNotFound)
}

func TestAuthGate(t *testing.T) {
	url := newTestServer(t)
	alice, _ := signUp(t, url, "alice")
	bob, _ := signUp(t, url, "bob")

	// No key at all.
	anon := client.New(url)
	wantStatus(t, anon.DeleteUser("alice"), http.StatusForbidden)

	// Someone else's valid key. The gate checks the key against the
	// target account, so bob cannot touch alice.
	wantStatus(t, bob.DeleteUser("alice"), http.StatusForbidden)
	wantStatus(t, bob.UpdateUser("alice", "alice", "pwned"), http.StatusForbidden)
	wantStatus(t, bob.Logout("alice"), http.StatusForbidden)

	// Reads stay open.
	if _, err := anon.GetUser("alice"); err != nil {
		t.Fatalf("unauthenticated read should pass: %v", err)
	}

	if err := alice.DeleteUser("alice"); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := anon.GetUser("alice"); err == nil {
		t.Fatal("deleted user should be gone")
	} else {
		wantStatus(t, err, http.StatusNotFound)
	}
}

func TestThreadAndMessageFlow(t *testing.T) {
	url := newTestServer(t)
	alice, aliceInfo := signUp(t, url, "alice")
	_, bobInfo := signUp(t, url, "bob")

	tid, err := alice.CreateThread("general")
	if err != nil {
		t.Fatalf("CreateThread: %v", err)
	}
	th, err := alice.GetThread(tid)
	if err != nil {
		t.Fatalf("GetThread: %v", err)
	}
	if th.Title != "general" {
		t.Errorf("title %q", th.Title)
	}

	rootID, err := alice.CreateMessage(tid, client.NewMessage{
		Content:   "first post",
		Timestamp: "2024-01-15T09:00:00Z",
		SenderID:  aliceInfo.ID,
	})
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	replyID, err := alice.CreateMessage(tid, client.NewMessage{
		Content:   "a reply",
		Timestamp: "2024-01-15T09:05:00Z",
		SenderID:  bobInfo.ID,
		ParentID:  &rootID,
	})
	if err != nil {
		t.Fatalf("CreateMessage reply: %v", err)
	}

	ids, err := alice.ListMessages(tid)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(ids) != 2 || ids[0] != rootID || ids[1] != replyID {
		t.Errorf("want [%d %d], got %v", rootID, replyID, ids)
	}

	reply, err := alice.GetMessage(tid, replyID)
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if reply.ParentID != rootID {
		t.Errorf("parent %d, want %d", reply.ParentID, rootID)
	}
	if reply.Content != "a reply" || reply.SenderID != bobInfo.ID {
		t.Errorf("bad message meta: %+v", reply)
	}

	root, err := alice.GetMessage(tid, rootID)
	if err != nil {
		t.Fatal(err)
	}
	if root.ParentID != 0 {
		t.Errorf("root message should carry no parent, got %d", root.ParentID)
	}
}

func TestMessageValidation(t *testing.T) {
	url := newTestServer(t)
	alice, aliceInfo := signUp(t, url, "alice")

	tid, err := alice.CreateThread("general")
	if err != nil {
		t.Fatal(err)
	}
	otherTid, err := alice.CreateThread("other")
	if err != nil {
		t.Fatal(err)
	}
	foreignRoot, err := alice.CreateMessage(otherTid, client.NewMessage{
		Content:   "elsewhere",
		Timestamp: "2024-01-15T09:00:00Z",
		SenderID:  aliceInfo.ID,
	})
	if err != nil {
		t.Fatal(err)
	}

	// Parent must live in the same thread.
	_, err = alice.CreateMessage(tid, client.NewMessage{
		Content:   "cross-thread reply",
		Timestamp: "2024-01-15T09:01:00Z",
		SenderID:  aliceInfo.ID,
		ParentID:  &foreignRoot,
	})
	wantStatus(t, err, http.StatusBadRequest)

	_, err = alice.CreateMessage(tid, client.NewMessage{
		Content:   "bad clock",
		Timestamp: "yesterday-ish",
		SenderID:  aliceInfo.ID,
	})
	wantStatus(t, err, http.StatusBadRequest)

	_, err = alice.CreateMessage(tid, client.NewMessage{
		Content:   "",
		Timestamp: "2024-01-15T09:00:00Z",
		SenderID:  aliceInfo.ID,
	})
	wantStatus(t, err, http.StatusBadRequest)

	// A message cannot become its own parent.
	mid, err := alice.CreateMessage(tid, client.NewMessage{
		Content:   "self",
		Timestamp: "2024-01-15T09:02:00Z",
		SenderID:  aliceInfo.ID,
	})
	if err != nil {
		t.Fatal(err)
	}
	err = alice.UpdateMessage(tid, mid, client.NewMessage{
		Content:   "self",
		Timestamp: "2024-01-15T09:02:00Z",
		SenderID:  aliceInfo.ID,
		ParentID:  &mid,
	})
	wantStatus(t, err, http.StatusBadRequest)

	// Fetching a message through the wrong thread is a 404, not a leak.
	_, err = alice.GetMessage(tid, foreignRoot)
	wantStatus(t, err, http.StatusNotFound)
}

func TestReactions(t *testing.T) {
	url := newTestServer(t)
	alice, aliceInfo := signUp(t, url, "alice")
	_, bobInfo := signUp(t, url, "bob")

	tid, err := alice.CreateThread("general")
	if err != nil {
		t.Fatal(err)
	}
	mid, err := alice.CreateMessage(tid, client.NewMessage{
		Content:   "react to me",
		Timestamp: "2024-01-15T09:00:00Z",
		SenderID:  aliceInfo.ID,
	})
	if err != nil {
		t.Fatal(err)
	}

	rid, err := alice.CreateReaction(tid, mid, 1, aliceInfo.ID)
	if err != nil {
		t.Fatalf("CreateReaction: %v", err)
	}
	if _, err := alice.CreateReaction(tid, mid, 2, aliceInfo.ID); err == nil {
		t.Fatal("second reaction by the same user should fail")
	} else {
		wantStatus(t, err, http.StatusConflict)
	}

	if _, err := alice.CreateReaction(tid, mid, 1, bobInfo.ID); err != nil {
		t.Fatalf("reaction by another user: %v", err)
	}

	ids, err := alice.ListReactions(tid, mid)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Errorf("want 2 reactions, got %v", ids)
	}

	rx, err := alice.GetReaction(tid, mid, rid)
	if err != nil {
		t.Fatal(err)
	}
	if rx.Type != 1 || rx.UserID != aliceInfo.ID || rx.MessageID != mid {
		t.Errorf("bad reaction meta: %+v", rx)
	}

	// Changing type in place is allowed; usurping bob's slot is not.
	if err := alice.UpdateReaction(tid, mid, rid, 3, aliceInfo.ID); err != nil {
		t.Fatalf("UpdateReaction: %v", err)
	}
	wantStatus(t, alice.UpdateReaction(tid, mid, rid, 3, bobInfo.ID), http.StatusConflict)

	if err := alice.DeleteReaction(tid, mid, rid); err != nil {
		t.Fatalf("DeleteReaction: %v", err)
	}
	if _, err := alice.CreateReaction(tid, mid, 2, aliceInfo.ID); err != nil {
		t.Fatalf("re-react after delete: %v", err)
	}
}

func TestMedia(t *testing.T) {
	url := newTestServer(t)
	alice, aliceInfo := signUp(t, url, "alice")

	tid, err := alice.CreateThread("general")
	if err != nil {
		t.Fatal(err)
	}
	mid, err := alice.CreateMessage(tid, client.NewMessage{
		Content:   "with attachment",
		Timestamp: "2024-01-15T09:00:00Z",
		SenderID:  aliceInfo.ID,
	})
	if err != nil {
		t.Fatal(err)
	}

	id, err := alice.CreateMedia("sunset.png", mid)
	if err != nil {
		t.Fatalf("CreateMedia: %v", err)
	}
	m, err := alice.GetMedia(id)
	if err != nil {
		t.Fatal(err)
	}
	if m.URL != "sunset.png" || m.MessageID != mid {
		t.Errorf("bad media meta: %+v", m)
	}

	_, err = alice.CreateMedia("malware.exe", mid)
	wantStatus(t, err, http.StatusBadRequest)

	_, err = alice.CreateMedia("orphan.png", 999)
	wantStatus(t, err, http.StatusConflict)

	if err := alice.UpdateMedia(id, "sunrise.jpg", mid); err != nil {
		t.Fatalf("UpdateMedia: %v", err)
	}
	if err := alice.DeleteMedia(id); err != nil {
		t.Fatalf("DeleteMedia: %v", err)
	}
	_, err = alice.GetMedia(id)
	wantStatus(t, err, http.StatusNotFound)
}

func TestDeleteThreadCascadesOverHTTP(t *testing.T) {
	url := newTestServer(t)
	alice, aliceInfo := signUp(t, url, "alice")

	tid, err := alice.CreateThread("doomed")
	if err != nil {
		t.Fatal(err)
	}
	mid, err := alice.CreateMessage(tid, client.NewMessage{
		Content:   "going down with the ship",
		Timestamp: "2024-01-15T09:00:00Z",
		SenderID:  aliceInfo.ID,
	})
	if err != nil {
		t.Fatal(err)
	}
	mediaID, err := alice.CreateMedia("flag.png", mid)
	if err != nil {
		t.Fatal(err)
	}

	if err := alice.DeleteThread(tid); err != nil {
		t.Fatalf("DeleteThread: %v", err)
	}
	_, err = alice.GetThread(tid)
	wantStatus(t, err, http.StatusNotFound)
	_, err = alice.GetMedia(mediaID)
	wantStatus(t, err, http.StatusNotFound)
}

func TestSlugFormat(t *testing.T) {
	url := newTestServer(t)
	alice, _ := signUp(t, url, "alice")

	tid, err := alice.CreateThread("general")
	if err != nil {
		t.Fatal(err)
	}

	// A bare numeric segment is not a thread slug.
	resp, err := http.Get(url + "/api/threads/" + "42/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("bare id: status %d, want 404", resp.StatusCode)
	}

	_, err = alice.GetThread(tid + 100)
	wantStatus(t, err, http.StatusNotFound)
}

func TestContentTypeEnforced(t *testing.T) {
	url := newTestServer(t)

	resp, err := http.Post(url+"/api/threads/", "text/plain", strings.NewReader("title=general"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("non-JSON body: status %d, want 415", resp.StatusCode)
	}

	resp, err = http.Post(url+"/api/threads/", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed JSON: status %d, want 400", resp.StatusCode)
	}
}

// Item reads carry text fields as response headers, so anything stored
// must survive the header round-trip; control characters cannot.
func TestControlCharactersRejected(t *testing.T) {
	url := newTestServer(t)
	alice, aliceInfo := signUp(t, url, "alice")

	_, err := alice.CreateThread("line one\nline two")
	wantStatus(t, err, http.StatusBadRequest)

	tid, err := alice.CreateThread("general")
	if err != nil {
		t.Fatal(err)
	}
	_, err = alice.CreateMessage(tid, client.NewMessage{
		Content:   "hello\r\nX-Injected: yes",
		Timestamp: "2024-01-15T09:00:00Z",
		SenderID:  aliceInfo.ID,
	})
	wantStatus(t, err, http.StatusBadRequest)

	c := client.New(url)
	_, err = c.Register("eve\nl", "secret")
	wantStatus(t, err, http.StatusBadRequest)
}

func TestEmptyListsAreArrays(t *testing.T) {
	url := newTestServer(t)
	c := client.New(url)

	ids, err := c.ListThreads()
	if err != nil {
		t.Fatalf("ListThreads: %v", err)
	}
	if ids == nil {
		// The wire shape matters here: {"thread_ids": []} not null.
		t.Error("empty thread list should decode as an empty slice")
	}
}
