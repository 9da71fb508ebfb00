package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect holds the statements that differ between SQL backends.
type Dialect struct {
	Name        string // database/sql driver name
	CreateTable string
	Insert      string // must affect zero rows when the thread already exists
	Update      string
	Select      string
	Exists      string
	Delete      string
}

// bind rewrites ? placeholders as $1, $2, ... for postgres.
func bind(stmt string) string {
	var b strings.Builder
	n := 0
	for _, r := range stmt {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const (
	sqlUpdate = "UPDATE checkpoints SET messages = ?, pending_node = ?, updated_at = ? " +
		"WHERE thread_id = ? AND updated_at = ?"
	sqlSelect = "SELECT messages, pending_node, updated_at FROM checkpoints WHERE thread_id = ?"
	sqlExists = "SELECT 1 FROM checkpoints WHERE thread_id = ?"
	sqlDelete = "DELETE FROM checkpoints WHERE thread_id = ?"
)

// SQLite stores checkpoints with modernc.org/sqlite.
var SQLite = Dialect{
	Name: "sqlite",
	CreateTable: "CREATE TABLE IF NOT EXISTS checkpoints (" +
		"thread_id TEXT PRIMARY KEY, " +
		"messages TEXT NOT NULL, " +
		"pending_node TEXT NOT NULL DEFAULT '', " +
		"updated_at INTEGER NOT NULL" +
		")",
	Insert: "INSERT INTO checkpoints (thread_id, messages, pending_node, updated_at) " +
		"VALUES (?, ?, ?, ?) ON CONFLICT (thread_id) DO NOTHING",
	Update: sqlUpdate,
	Select: sqlSelect,
	Exists: sqlExists,
	Delete: sqlDelete,
}

// Postgres stores checkpoints with lib/pq.
var Postgres = Dialect{
	Name: "postgres",
	CreateTable: "CREATE TABLE IF NOT EXISTS checkpoints (" +
		"thread_id TEXT PRIMARY KEY, " +
		"messages TEXT NOT NULL, " +
		"pending_node TEXT NOT NULL DEFAULT '', " +
		"updated_at BIGINT NOT NULL" +
		")",
	Insert: bind("INSERT INTO checkpoints (thread_id, messages, pending_node, updated_at) " +
		"VALUES (?, ?, ?, ?) ON CONFLICT (thread_id) DO NOTHING"),
	Update: bind(sqlUpdate),
	Select: bind(sqlSelect),
	Exists: bind(sqlExists),
	Delete: bind(sqlDelete),
}

// MySQL stores checkpoints with go-sql-driver/mysql.
var MySQL = Dialect{
	Name: "mysql",
	CreateTable: "CREATE TABLE IF NOT EXISTS checkpoints (" +
		"thread_id VARCHAR(191) NOT NULL PRIMARY KEY, " +
		"messages LONGTEXT NOT NULL, " +
		"pending_node VARCHAR(32) NOT NULL DEFAULT '', " +
		"updated_at BIGINT NOT NULL" +
		")",
	Insert: "INSERT IGNORE INTO checkpoints (thread_id, messages, pending_node, updated_at) " +
		"VALUES (?, ?, ?, ?)",
	Update: sqlUpdate,
	Select: sqlSelect,
	Exists: sqlExists,
	Delete: sqlDelete,
}

// SQLStore keeps checkpoints in a relational table. Compare-and-swap is a
// single conditional statement, so concurrent writers from several
// processes are safe.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLStore wraps an open database. Call Migrate before first use.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// OpenSQL opens dsn with the dialect's driver and creates the table.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	if dialect.Name == SQLite.Name && !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open(dialect.Name, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Name, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect.Name, err)
	}
	s := NewSQLStore(db, dialect)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the checkpoints table if it does not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.CreateTable); err != nil {
		return fmt.Errorf("create checkpoints table: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *SQLStore) Load(ctx context.Context, threadID string) (*Record, error) {
	var (
		messages  string
		pending   string
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, s.dialect.Select, threadID).Scan(&messages, &pending, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	rec := &Record{ThreadID: threadID, PendingNode: pending, UpdatedAt: fromStamp(updatedAt)}
	if err := json.Unmarshal([]byte(messages), &rec.Messages); err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", threadID, err)
	}
	return rec, nil
}

// Save implements Store.
func (s *SQLStore) Save(ctx context.Context, rec *Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	messages, err := json.Marshal(rec.Messages)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	base := stamp(rec.UpdatedAt)
	next := nextStamp(base)
	var res sql.Result
	if base == 0 {
		res, err = s.db.ExecContext(ctx, s.dialect.Insert, rec.ThreadID, string(messages), rec.PendingNode, next)
	} else {
		res, err = s.db.ExecContext(ctx, s.dialect.Update, string(messages), rec.PendingNode, next, rec.ThreadID, base)
	}
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}
	rec.UpdatedAt = fromStamp(next)
	return nil
}

// Exists implements Store.
func (s *SQLStore) Exists(ctx context.Context, threadID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, s.dialect.Exists, threadID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete implements Store.
func (s *SQLStore) Delete(ctx context.Context, threadID string) error {
	_, err := s.db.ExecContext(ctx, s.dialect.Delete, threadID)
	return err
}

// Close implements Store.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
