package notes

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLStore keeps items in a SQLite database.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (or creates) a SQLite notes database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create notes dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open notes db: %w", err)
	}
	s := &SQLStore{db: db, now: time.Now}
	if err := s.ensureTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) ensureTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS note_category (
			name       TEXT    PRIMARY KEY,
			item_count INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS note_item (
			id          TEXT    PRIMARY KEY,
			kind        TEXT    NOT NULL,
			user_id     TEXT    NOT NULL DEFAULT '',
			category    TEXT    NOT NULL REFERENCES note_category(name),
			title       TEXT    NOT NULL,
			description TEXT    NOT NULL DEFAULT '',
			url         TEXT    NOT NULL DEFAULT '',
			deadline_ts INTEGER NOT NULL DEFAULT 0,
			priority    INTEGER NOT NULL DEFAULT 0,
			created_ts  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_note_item_user ON note_item(user_id, kind)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create notes tables: %w", err)
		}
	}
	return nil
}

// Create implements Store. The category counter is bumped in the same transaction.
func (s *SQLStore) Create(ctx context.Context, item *Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE note_category SET item_count = item_count + 1 WHERE name = ?`, item.Category)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrCategoryNotFound, item.Category)
	}

	item.ID = uuid.NewString()
	item.CreatedAt = s.now()
	var deadline int64
	if !item.Deadline.IsZero() {
		deadline = item.Deadline.Unix()
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO note_item (id, kind, user_id, category, title, description, url, deadline_ts, priority, created_ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, string(item.Kind), item.UserID, item.Category, item.Title, item.Description,
		item.URL, deadline, item.Priority, item.CreatedAt.UnixNano(),
	); err != nil {
		return err
	}
	return tx.Commit()
}

// List implements Store.
func (s *SQLStore) List(ctx context.Context, find Find) ([]Item, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.UserID != "" {
		where, args = append(where, "user_id = ?"), append(args, find.UserID)
	}
	if find.Kind != "" {
		where, args = append(where, "kind = ?"), append(args, string(find.Kind))
	}
	if find.Category != "" {
		where, args = append(where, "category = ?"), append(args, find.Category)
	}
	query := fmt.Sprintf(
		`SELECT id, kind, user_id, category, title, description, url, deadline_ts, priority, created_ts
		 FROM note_item WHERE %s ORDER BY created_ts ASC`,
		strings.Join(where, " AND "),
	)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Item
	for rows.Next() {
		var (
			it       Item
			kind     string
			deadline int64
			created  int64
		)
		if err := rows.Scan(&it.ID, &kind, &it.UserID, &it.Category, &it.Title, &it.Description,
			&it.URL, &deadline, &it.Priority, &created); err != nil {
			return nil, err
		}
		it.Kind = Kind(kind)
		if deadline != 0 {
			it.Deadline = time.Unix(deadline, 0)
		}
		it.CreatedAt = time.Unix(0, created)
		list = append(list, it)
	}
	return list, rows.Err()
}

// Categories implements Store.
func (s *SQLStore) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM note_category ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// EnsureCategory implements Store.
func (s *SQLStore) EnsureCategory(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO note_category (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name)
	return err
}

// Close implements Store.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
