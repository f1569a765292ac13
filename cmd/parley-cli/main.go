// Command parley-cli is an interactive terminal client for a parley server.
//
// It walks a small state machine: sign in, browse threads, open a thread,
// pick a message, then reply to or react to it.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"parley/internal/client"
)

type state int

const (
	stateThreads state = iota
	stateThread
	stateMessage
	stateQuit
)

type app struct {
	api    *client.Client
	in     *bufio.Scanner
	user   client.UserInfo
	thread client.ThreadInfo
	msg    client.MessageInfo
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "server base URL")
	flag.Parse()

	a := &app{
		api: client.New(*baseURL),
		in:  bufio.NewScanner(os.Stdin),
	}
	if err := a.signIn(); err != nil {
		log.Fatal(err)
	}

	st := stateThreads
	for st != stateQuit {
		var err error
		switch st {
		case stateThreads:
			st, err = a.threadList()
		case stateThread:
			st, err = a.threadView()
		case stateMessage:
			st, err = a.messageView()
		}
		if err != nil {
			fmt.Println("error:", err)
		}
	}
	fmt.Println("bye")
}

func (a *app) prompt(label string) string {
	fmt.Print(label)
	if !a.in.Scan() {
		os.Exit(0)
	}
	return strings.TrimSpace(a.in.Text())
}

// signIn logs the user in, registering the account first if it does
// not exist yet.
func (a *app) signIn() error {
	username := a.prompt("username: ")
	password := a.prompt("password: ")

	key, err := a.api.Login(username, password)
	if apiErr, ok := err.(*client.APIError); ok && apiErr.Status == 404 {
		fmt.Println("no such user, registering")
		key, err = a.api.Register(username, password)
	}
	if err != nil {
		return err
	}
	if key == "" {
		// Re-login on an account that already holds a key. The server
		// only hands the key out once, so ask for it directly.
		key = a.prompt("api key: ")
	}
	a.api.APIKey = key

	a.user, err = a.api.GetUser(username)
	if err != nil {
		return err
	}
	fmt.Printf("signed in as %s (id %d)\n", a.user.Username, a.user.ID)
	return nil
}

func (a *app) threadList() (state, error) {
	ids, err := a.api.ListThreads()
	if err != nil {
		return stateThreads, err
	}
	fmt.Println("\n=== threads ===")
	for _, id := range ids {
		t, err := a.api.GetThread(id)
		if err != nil {
			return stateThreads, err
		}
		fmt.Printf("  [%d] %s\n", t.ID, t.Title)
	}
	switch cmd := a.prompt("thread id, (n)ew, (q)uit: "); cmd {
	case "q":
		return stateQuit, nil
	case "n":
		title := a.prompt("title: ")
		id, err := a.api.CreateThread(title)
		if err != nil {
			return stateThreads, err
		}
		fmt.Println("created thread", id)
		return stateThreads, nil
	default:
		id, err := strconv.ParseInt(cmd, 10, 64)
		if err != nil {
			return stateThreads, nil
		}
		a.thread, err = a.api.GetThread(id)
		if err != nil {
			return stateThreads, err
		}
		return stateThread, nil
	}
}

func (a *app) threadView() (state, error) {
	ids, err := a.api.ListMessages(a.thread.ID)
	if err != nil {
		return stateThreads, err
	}
	fmt.Printf("\n=== %s ===\n", a.thread.Title)
	for _, id := range ids {
		m, err := a.api.GetMessage(a.thread.ID, id)
		if err != nil {
			return stateThread, err
		}
		indent := ""
		if m.ParentID != 0 {
			indent = fmt.Sprintf("  ↳ re %d ", m.ParentID)
		}
		fmt.Printf("  [%d] %s%s\n", m.ID, indent, m.Content)
	}
	switch cmd := a.prompt("message id, (p)ost, (b)ack: "); cmd {
	case "b":
		return stateThreads, nil
	case "p":
		return stateThread, a.post(nil)
	default:
		id, err := strconv.ParseInt(cmd, 10, 64)
		if err != nil {
			return stateThread, nil
		}
		a.msg, err = a.api.GetMessage(a.thread.ID, id)
		if err != nil {
			return stateThread, err
		}
		return stateMessage, nil
	}
}

func (a *app) messageView() (state, error) {
	m := a.msg
	fmt.Printf("\nmessage %d by user %d at %s\n  %s\n", m.ID, m.SenderID, m.Timestamp, m.Content)

	rids, err := a.api.ListReactions(a.thread.ID, m.ID)
	if err != nil {
		return stateThread, err
	}
	for _, rid := range rids {
		rx, err := a.api.GetReaction(a.thread.ID, m.ID, rid)
		if err != nil {
			return stateThread, err
		}
		fmt.Printf("  reaction %d: type %d from user %d\n", rx.ID, rx.Type, rx.UserID)
	}

	switch a.prompt("(r)eply, re(a)ct, (d)elete, (b)ack: ") {
	case "r":
		return stateThread, a.post(&m.ID)
	case "d":
		if err := a.api.DeleteMessage(a.thread.ID, m.ID); err != nil {
			return stateThread, err
		}
		fmt.Println("deleted message", m.ID)
		return stateThread, nil
	case "a":
		typ, err := strconv.Atoi(a.prompt("reaction type: "))
		if err != nil {
			return stateMessage, nil
		}
		if _, err := a.api.CreateReaction(a.thread.ID, m.ID, typ, a.user.ID); err != nil {
			return stateMessage, err
		}
		fmt.Println("reacted")
		return stateMessage, nil
	default:
		return stateThread, nil
	}
}

func (a *app) post(parent *int64) error {
	content := a.prompt("content: ")
	id, err := a.api.CreateMessage(a.thread.ID, client.NewMessage{
		Content:   content,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		SenderID:  a.user.ID,
		ParentID:  parent,
	})
	if err != nil {
		return err
	}
	fmt.Println("posted message", id)
	return nil
}
