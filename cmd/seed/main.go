// Command seed populates a fresh database with a small sample
// discussion so the server has something to show out of the box.
package main

import (
	"flag"
	"log"
	"time"

	"parley/internal/auth"
	"parley/internal/db"
)

func main() {
	dbPath := flag.String("db", "parley.db", "path to the database file")
	flag.Parse()

	database, err := db.Init(*dbPath)
	if err != nil {
		log.Fatal("Failed to init database:", err)
	}
	defer database.Close()

	if database.UserCount() > 0 {
		log.Fatal("database already has users, refusing to seed")
	}

	svc := auth.New()
	users := []struct{ name, password string }{
		{"alice", "redqueen"},
		{"bob", "builder"},
		{"carol", "xmas"},
	}
	ids := make([]int64, 0, len(users))
	for _, u := range users {
		hash, err := svc.HashPassword(u.password)
		if err != nil {
			log.Fatal(err)
		}
		_, keyHash, err := svc.NewKey()
		if err != nil {
			log.Fatal(err)
		}
		created, err := database.CreateUser(u.name, hash, keyHash)
		if err != nil {
			log.Fatal(err)
		}
		ids = append(ids, created.ID)
	}

	thread, err := database.CreateThread("General discussion")
	if err != nil {
		log.Fatal(err)
	}

	ts := func(min int) string {
		return time.Date(2024, 1, 15, 9, min, 0, 0, time.UTC).Format(time.RFC3339)
	}
	root, err := database.CreateMessage(thread.ID, ids[0], "Welcome to the board!", ts(0), nil)
	if err != nil {
		log.Fatal(err)
	}
	reply1, err := database.CreateMessage(thread.ID, ids[1], "Glad to be here.", ts(5), &root.ID)
	if err != nil {
		log.Fatal(err)
	}
	reply2, err := database.CreateMessage(thread.ID, ids[2], "Same, looks cozy.", ts(8), &root.ID)
	if err != nil {
		log.Fatal(err)
	}
	if _, err := database.CreateMessage(thread.ID, ids[0], "Happy to have you both.", ts(12), &reply1.ID); err != nil {
		log.Fatal(err)
	}

	for _, rx := range []struct {
		typ     int
		user    int64
		message int64
	}{
		{1, ids[1], root.ID},
		{1, ids[2], root.ID},
		{2, ids[0], reply2.ID},
	} {
		if _, err := database.CreateReaction(rx.typ, rx.user, rx.message); err != nil {
			log.Fatal(err)
		}
	}

	for _, m := range []struct {
		url     string
		message int64
	}{
		{"welcome-banner.png", root.ID},
		{"intro.jpg", reply1.ID},
		{"boardroom.png", reply2.ID},
	} {
		if _, err := database.CreateMedia(m.url, m.message); err != nil {
			log.Fatal(err)
		}
	}

	log.Printf("seeded %s: %d users, 1 thread, 4 messages", *dbPath, len(ids))
}
