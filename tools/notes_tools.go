package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/linanwx/notebot/internal/runtimecfg"
	"github.com/linanwx/notebot/logger"
	"github.com/linanwx/notebot/notes"
	"github.com/linanwx/notebot/provider"
)

// CreateTodoTool creates a reminder in the reminders category.
type CreateTodoTool struct {
	store notes.Store
	now   func() time.Time
}

// NewCreateTodoTool returns the tool backed by store.
func NewCreateTodoTool(store notes.Store) *CreateTodoTool {
	return &CreateTodoTool{store: store, now: time.Now}
}

// Def returns the tool definition.
func (t *CreateTodoTool) Def() provider.ToolDef {
	return provider.ToolDef{
		Type: "function",
		Function: provider.FunctionDef{
			Name:        "createTodo",
			Description: "Create a reminder / todo with a deadline.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title": map[string]any{
						"type":        "string",
						"description": "Reminder title.",
					},
					"desc": map[string]any{
						"type":        "string",
						"description": "Reminder details.",
					},
					"deadline": map[string]any{
						"type":        "string",
						"description": "Deadline as YYYY-MM-DD HH:MM, RFC3339, or an English phrase such as \"tomorrow at 9am\", \"next Monday 15:00\" or \"in 2 hours\". Omit for a reminder due now.",
					},
				},
				"required": []string{"title", "desc"},
			},
		},
	}
}

type createTodoArgs struct {
	Title    string `json:"title"`
	Desc     string `json:"desc"`
	Deadline string `json:"deadline"`
}

// Run executes the tool.
func (t *CreateTodoTool) Run(ctx context.Context, args json.RawMessage) (string, error) {
	var a createTodoArgs
	if err := decodeArgs(args, &a); err != nil {
		return "", err
	}
	deadline, err := ParseDeadline(a.Deadline, t.now())
	if err != nil {
		return "", err
	}
	item := &notes.Item{
		Kind:        notes.KindTodo,
		UserID:      RuntimeFrom(ctx).UserID,
		Category:    runtimecfg.NotesCategoryReminders,
		Title:       a.Title,
		Description: a.Desc,
		Deadline:    deadline,
		Priority:    runtimecfg.NotesDefaultPriority,
	}
	return createItem(ctx, t.store, item, "reminder")
}

// TakeNoteTool records a memo in the daily notes category.
type TakeNoteTool struct {
	store notes.Store
}

// NewTakeNoteTool returns the tool backed by store.
func NewTakeNoteTool(store notes.Store) *TakeNoteTool {
	return &TakeNoteTool{store: store}
}

// Def returns the tool definition.
func (t *TakeNoteTool) Def() provider.ToolDef {
	return provider.ToolDef{
		Type: "function",
		Function: provider.FunctionDef{
			Name:        "takeNote",
			Description: "Record a memo / note.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title": map[string]any{
						"type":        "string",
						"description": "Memo title.",
					},
					"desc": map[string]any{
						"type":        "string",
						"description": "Memo content.",
					},
				},
				"required": []string{"title", "desc"},
			},
		},
	}
}

type takeNoteArgs struct {
	Title string `json:"title"`
	Desc  string `json:"desc"`
}

// Run executes the tool.
func (t *TakeNoteTool) Run(ctx context.Context, args json.RawMessage) (string, error) {
	var a takeNoteArgs
	if err := decodeArgs(args, &a); err != nil {
		return "", err
	}
	item := &notes.Item{
		Kind:        notes.KindMemo,
		UserID:      RuntimeFrom(ctx).UserID,
		Category:    runtimecfg.NotesCategoryDaily,
		Title:       a.Title,
		Description: a.Desc,
		Priority:    runtimecfg.NotesDefaultPriority,
	}
	return createItem(ctx, t.store, item, "memo")
}

// WriteArticleTool saves an article under a named category.
type WriteArticleTool struct {
	store notes.Store
}

// NewWriteArticleTool returns the tool backed by store.
func NewWriteArticleTool(store notes.Store) *WriteArticleTool {
	return &WriteArticleTool{store: store}
}

// Def returns the tool definition.
func (t *WriteArticleTool) Def() provider.ToolDef {
	return provider.ToolDef{
		Type: "function",
		Function: provider.FunctionDef{
			Name:        "writeArticle",
			Description: "Save an article / note under an existing category.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title": map[string]any{
						"type":        "string",
						"description": "Article title.",
					},
					"url": map[string]any{
						"type":        "string",
						"description": "Source link.",
					},
					"desc": map[string]any{
						"type":        "string",
						"description": "Article content.",
					},
					"cate": map[string]any{
						"type":        "string",
						"description": "Category name.",
					},
				},
				"required": []string{"title", "url", "desc", "cate"},
			},
		},
	}
}

type writeArticleArgs struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Desc  string `json:"desc"`
	Cate  string `json:"cate"`
}

// Run executes the tool.
func (t *WriteArticleTool) Run(ctx context.Context, args json.RawMessage) (string, error) {
	var a writeArticleArgs
	if err := decodeArgs(args, &a); err != nil {
		return "", err
	}
	item := &notes.Item{
		Kind:        notes.KindArticle,
		UserID:      RuntimeFrom(ctx).UserID,
		Category:    strings.TrimSpace(a.Cate),
		Title:       a.Title,
		Description: fmt.Sprintf("Source: %s<br>%s", a.URL, a.Desc),
		URL:         a.URL,
		Priority:    runtimecfg.NotesDefaultPriority,
	}
	return createItem(ctx, t.store, item, "article")
}

func createItem(ctx context.Context, store notes.Store, item *notes.Item, label string) (string, error) {
	if err := store.Create(ctx, item); err != nil {
		logger.Error("note create failed", "kind", item.Kind, "category", item.Category, "err", err)
		return "", err
	}
	data, err := json.Marshal(item)
	if err != nil {
		return "", err
	}
	logger.Info("note created", "kind", item.Kind, "id", item.ID, "category", item.Category)
	return fmt.Sprintf("Created %s: %s", label, data), nil
}

var deadlineLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

var deadlineParser = newDeadlineParser()

func newDeadlineParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// ParseDeadline reads a deadline relative to now in now's location. Exact
// timestamps are tried first, then English phrases such as "tomorrow at 9am"
// or "next Monday 15:00". An empty deadline is now.
func ParseDeadline(raw string, now time.Time) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return now, nil
	}
	for _, layout := range deadlineLayouts {
		if layout == time.RFC3339 {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t, nil
		}
	}

	r, err := deadlineParser.Parse(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid deadline %q: %w", raw, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("invalid deadline %q", raw)
	}
	return r.Time, nil
}
