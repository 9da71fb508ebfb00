// Package notes stores the todos, memos and articles that agent tools create.
package notes

import (
	"context"
	"errors"
	"time"
)

// Kind distinguishes the entries tools create.
type Kind string

const (
	KindTodo    Kind = "todo"
	KindMemo    Kind = "memo"
	KindArticle Kind = "article"
)

// ErrCategoryNotFound is returned when an entry names an unknown category.
var ErrCategoryNotFound = errors.New("category does not exist")

// Item is one stored entry.
type Item struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	UserID      string    `json:"userId,omitempty"`
	Category    string    `json:"category"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url,omitempty"`
	Deadline    time.Time `json:"deadline,omitzero"`
	Priority    int       `json:"priority,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Find filters List results. Empty fields match everything.
type Find struct {
	UserID   string
	Kind     Kind
	Category string
}

// Store persists items.
type Store interface {
	// Create validates the category, assigns ID and CreatedAt, and stores item.
	Create(ctx context.Context, item *Item) error
	List(ctx context.Context, find Find) ([]Item, error)
	Categories(ctx context.Context) ([]string, error)
	// EnsureCategory creates a category if missing.
	EnsureCategory(ctx context.Context, name string) error
	Close() error
}

func (f Find) match(it Item) bool {
	if f.UserID != "" && it.UserID != f.UserID {
		return false
	}
	if f.Kind != "" && it.Kind != f.Kind {
		return false
	}
	if f.Category != "" && it.Category != f.Category {
		return false
	}
	return true
}
