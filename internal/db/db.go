package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store-boundary errors. Handlers translate these to HTTP statuses;
// raw sqlite errors never cross the package boundary.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

type DB struct {
	*sql.DB
}

func Init(path string) (*DB, error) {
	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&"
	} else {
		dsn += "?"
	}
	dsn += "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	d := &DB{sqldb}
	if err := d.migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return d, nil
}

func (d *DB) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS api_keys (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id  INTEGER UNIQUE NOT NULL,
	key_hash TEXT NOT NULL,
	FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS threads (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	title      TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	content   TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	sender_id INTEGER NOT NULL,
	thread_id INTEGER NOT NULL,
	parent_id INTEGER,
	FOREIGN KEY (sender_id) REFERENCES users(id)    ON DELETE CASCADE,
	FOREIGN KEY (thread_id) REFERENCES threads(id)  ON DELETE CASCADE,
	FOREIGN KEY (parent_id) REFERENCES messages(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS reactions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	type       INTEGER NOT NULL,
	user_id    INTEGER NOT NULL,
	message_id INTEGER NOT NULL,
	UNIQUE (user_id, message_id),
	FOREIGN KEY (user_id)    REFERENCES users(id)    ON DELETE CASCADE,
	FOREIGN KEY (message_id) REFERENCES messages(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS media (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	url        TEXT NOT NULL,
	message_id INTEGER NOT NULL,
	FOREIGN KEY (message_id) REFERENCES messages(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_reactions_message ON reactions(message_id);
CREATE INDEX IF NOT EXISTS idx_media_message ON media(message_id);
`
	_, err := d.Exec(schema)
	return err
}

// translate maps driver errors onto the package sentinels. Constraint
// failures (UNIQUE and FOREIGN KEY alike) become ErrConflict.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if strings.Contains(err.Error(), "constraint failed") ||
		strings.Contains(err.Error(), "UNIQUE") {
		return ErrConflict
	}
	return err
}

// --- Models ---

type User struct {
	ID           int64     `json:"user_id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type APIKey struct {
	ID      int64
	UserID  int64
	KeyHash string
}

type Thread struct {
	ID        int64     `json:"thread_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type Message struct {
	ID        int64  `json:"message_id"`
	Content   string `json:"message_content"`
	Timestamp string `json:"timestamp"`
	SenderID  int64  `json:"sender_id"`
	ThreadID  int64  `json:"thread_id"`
	ParentID  *int64 `json:"parent_id,omitempty"`
}

type Reaction struct {
	ID        int64 `json:"reaction_id"`
	Type      int   `json:"reaction_type"`
	UserID    int64 `json:"user_id"`
	MessageID int64 `json:"message_id"`
}

type Media struct {
	ID        int64  `json:"media_id"`
	URL       string `json:"media_url"`
	MessageID int64  `json:"message_id"`
}

// --- Users ---

// CreateUser inserts the user and its API key row in one transaction so
// registration never leaves a user without a credential.
func (d *DB) CreateUser(username, passwordHash, keyHash string) (*User, error) {
	tx, err := d.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO users (username, password_hash) VALUES (?, ?)`,
		username, passwordHash)
	if err != nil {
		return nil, translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(`INSERT INTO api_keys (user_id, key_hash) VALUES (?, ?)`,
		id, keyHash); err != nil {
		return nil, translate(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, translate(err)
	}
	return d.GetUserByID(id)
}

func (d *DB) GetUserByID(id int64) (*User, error) {
	u := &User{}
	err := d.QueryRow(
		`SELECT id, username, password_hash, created_at FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return u, nil
}

// GetUserByUsername is an exact, case-sensitive match on the unique column.
func (d *DB) GetUserByUsername(username string) (*User, error) {
	u := &User{}
	err := d.QueryRow(
		`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`, username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return u, nil
}

func (d *DB) UpdateUser(id int64, username, passwordHash string) error {
	res, err := d.Exec(`UPDATE users SET username = ?, password_hash = ? WHERE id = ?`,
		username, passwordHash, id)
	return updated(res, err)
}

func (d *DB) DeleteUser(id int64) error {
	res, err := d.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *DB) UserCount() int {
	var n int
	d.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n)
	return n
}

// --- API keys ---

func (d *DB) GetAPIKeyForUser(userID int64) (*APIKey, error) {
	k := &APIKey{}
	err := d.QueryRow(`SELECT id, user_id, key_hash FROM api_keys WHERE user_id = ?`, userID).
		Scan(&k.ID, &k.UserID, &k.KeyHash)
	if err != nil {
		return nil, translate(err)
	}
	return k, nil
}

// CreateAPIKeyIfAbsent issues a key only when the user holds none. Key
// creation is one-shot: an existing key is left untouched so tokens held
// by other clients are never orphaned.
func (d *DB) CreateAPIKeyIfAbsent(userID int64, keyHash string) (bool, error) {
	res, err := d.Exec(
		`INSERT INTO api_keys (user_id, key_hash) VALUES (?, ?)
		 ON CONFLICT(user_id) DO NOTHING`, userID, keyHash)
	if err != nil {
		return false, translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *DB) DeleteAPIKeyForUser(userID int64) error {
	res, err := d.Exec(`DELETE FROM api_keys WHERE user_id = ?`, userID)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Threads ---

func (d *DB) CreateThread(title string) (*Thread, error) {
	res, err := d.Exec(`INSERT INTO threads (title) VALUES (?)`, title)
	if err != nil {
		return nil, translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return d.GetThreadByID(id)
}

func (d *DB) GetThreadByID(id int64) (*Thread, error) {
	t := &Thread{}
	err := d.QueryRow(`SELECT id, title, created_at FROM threads WHERE id = ?`, id).
		Scan(&t.ID, &t.Title, &t.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return t, nil
}

func (d *DB) ListThreadIDs() ([]int64, error) {
	return d.listIDs(`SELECT id FROM threads ORDER BY id ASC`)
}

func (d *DB) UpdateThread(id int64, title string) error {
	res, err := d.Exec(`UPDATE threads SET title = ? WHERE id = ?`, title, id)
	return updated(res, err)
}

func (d *DB) DeleteThread(id int64) error {
	res, err := d.Exec(`DELETE FROM threads WHERE id = ?`, id)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Messages ---

func (d *DB) CreateMessage(threadID, senderID int64, content, timestamp string, parentID *int64) (*Message, error) {
	res, err := d.Exec(
		`INSERT INTO messages (content, timestamp, sender_id, thread_id, parent_id)
		 VALUES (?, ?, ?, ?, ?)`,
		content, timestamp, senderID, threadID, parentID)
	if err != nil {
		return nil, translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return d.GetMessageByID(id)
}

func (d *DB) GetMessageByID(id int64) (*Message, error) {
	m := &Message{}
	var parent sql.NullInt64
	err := d.QueryRow(
		`SELECT id, content, timestamp, sender_id, thread_id, parent_id
		 FROM messages WHERE id = ?`, id,
	).Scan(&m.ID, &m.Content, &m.Timestamp, &m.SenderID, &m.ThreadID, &parent)
	if err != nil {
		return nil, translate(err)
	}
	if parent.Valid {
		m.ParentID = &parent.Int64
	}
	return m, nil
}

// ListMessageIDsByThread returns the thread's message ids in posting order.
func (d *DB) ListMessageIDsByThread(threadID int64) ([]int64, error) {
	return d.listIDs(
		`SELECT id FROM messages WHERE thread_id = ? ORDER BY timestamp ASC, id ASC`, threadID)
}

func (d *DB) UpdateMessage(id int64, content, timestamp string, senderID int64, parentID *int64) error {
	res, err := d.Exec(
		`UPDATE messages SET content = ?, timestamp = ?, sender_id = ?, parent_id = ? WHERE id = ?`,
		content, timestamp, senderID, parentID, id)
	return updated(res, err)
}

func (d *DB) DeleteMessage(id int64) error {
	res, err := d.Exec(`DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *DB) MessageCountByThread(threadID int64) int {
	var n int
	d.QueryRow(`SELECT COUNT(*) FROM messages WHERE thread_id = ?`, threadID).Scan(&n)
	return n
}

// --- Reactions ---

func (d *DB) CreateReaction(typ int, userID, messageID int64) (*Reaction, error) {
	res, err := d.Exec(`INSERT INTO reactions (type, user_id, message_id) VALUES (?, ?, ?)`,
		typ, userID, messageID)
	if err != nil {
		return nil, translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return d.GetReactionByID(id)
}

func (d *DB) GetReactionByID(id int64) (*Reaction, error) {
	rx := &Reaction{}
	err := d.QueryRow(`SELECT id, type, user_id, message_id FROM reactions WHERE id = ?`, id).
		Scan(&rx.ID, &rx.Type, &rx.UserID, &rx.MessageID)
	if err != nil {
		return nil, translate(err)
	}
	return rx, nil
}

// FindReactionByUserMessage backs the application-layer duplicate check;
// the UNIQUE(user_id, message_id) constraint is the concurrent backstop.
func (d *DB) FindReactionByUserMessage(userID, messageID int64) (*Reaction, error) {
	rx := &Reaction{}
	err := d.QueryRow(
		`SELECT id, type, user_id, message_id FROM reactions
		 WHERE user_id = ? AND message_id = ?`, userID, messageID,
	).Scan(&rx.ID, &rx.Type, &rx.UserID, &rx.MessageID)
	if err != nil {
		return nil, translate(err)
	}
	return rx, nil
}

func (d *DB) ListReactionIDsByMessage(messageID int64) ([]int64, error) {
	return d.listIDs(`SELECT id FROM reactions WHERE message_id = ? ORDER BY id ASC`, messageID)
}

func (d *DB) UpdateReaction(id int64, typ int, userID int64) error {
	res, err := d.Exec(`UPDATE reactions SET type = ?, user_id = ? WHERE id = ?`,
		typ, userID, id)
	return updated(res, err)
}

func (d *DB) DeleteReaction(id int64) error {
	res, err := d.Exec(`DELETE FROM reactions WHERE id = ?`, id)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *DB) ReactionCountByMessage(messageID int64) int {
	var n int
	d.QueryRow(`SELECT COUNT(*) FROM reactions WHERE message_id = ?`, messageID).Scan(&n)
	return n
}

// --- Media ---

func (d *DB) CreateMedia(url string, messageID int64) (*Media, error) {
	res, err := d.Exec(`INSERT INTO media (url, message_id) VALUES (?, ?)`, url, messageID)
	if err != nil {
		return nil, translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return d.GetMediaByID(id)
}

func (d *DB) GetMediaByID(id int64) (*Media, error) {
	m := &Media{}
	err := d.QueryRow(`SELECT id, url, message_id FROM media WHERE id = ?`, id).
		Scan(&m.ID, &m.URL, &m.MessageID)
	if err != nil {
		return nil, translate(err)
	}
	return m, nil
}

func (d *DB) ListMediaIDs() ([]int64, error) {
	return d.listIDs(`SELECT id FROM media ORDER BY id ASC`)
}

func (d *DB) UpdateMedia(id int64, url string, messageID int64) error {
	res, err := d.Exec(`UPDATE media SET url = ?, message_id = ? WHERE id = ?`,
		url, messageID, id)
	return updated(res, err)
}

func (d *DB) DeleteMedia(id int64) error {
	res, err := d.Exec(`DELETE FROM media WHERE id = ?`, id)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *DB) MediaCountByMessage(messageID int64) int {
	var n int
	d.QueryRow(`SELECT COUNT(*) FROM media WHERE message_id = ?`, messageID).Scan(&n)
	return n
}

// --- Helpers ---

// updated finishes an UPDATE: a clean execution that touched no row means
// the target id is gone.
func updated(res sql.Result, err error) error {
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *DB) listIDs(query string, args ...interface{}) ([]int64, error) {
	rows, err := d.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
