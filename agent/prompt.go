// Package agent builds the system prompt the graph sends with every model call.
package agent

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/linanwx/notebot/internal/runtimecfg"
	"github.com/linanwx/notebot/logger"
)

const defaultTemplate = `You are notebot, a helpful assistant inside a note and todo application.
Work through the user's request step by step with the tools provided.
When the user asks to fetch a page, write an article, create a reminder or take a note, call the matching tool instead of describing what you would do, then report the result.
If you need information only the user can give, call askHuman with your question.

Output format:
- Wrap any reasoning in a complete <think></think> pair.
- When you have the final answer or deliverable, prefix it with "FINAL RESULT:".

Available tools: {{TOOLS}}
Current time: {{TIME}}
User: {{USER}}
`

// Vars are the values substituted into a prompt template.
type Vars struct {
	Time  time.Time
	Tools []string
	User  string
}

// Prompt is a parsed system prompt template. It is immutable after
// construction and safe for concurrent use.
type Prompt struct {
	name       string
	body       string
	timeFormat string
}

// DefaultPrompt returns the built-in template.
func DefaultPrompt() *Prompt {
	p, _ := NewPrompt(defaultTemplate)
	p.name = "default"
	return p
}

// NewPrompt parses a template with an optional YAML front matter header.
func NewPrompt(content string) (*Prompt, error) {
	meta, body, _, err := parseTemplate(content)
	if err != nil {
		return nil, fmt.Errorf("invalid prompt front matter: %w", err)
	}
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("prompt template is empty")
	}

	timeFormat := strings.TrimSpace(meta.TimeFormat)
	if timeFormat == "" {
		timeFormat = runtimecfg.PromptTimeFormat
	}
	return &Prompt{
		name:       strings.TrimSpace(meta.Name),
		body:       body,
		timeFormat: timeFormat,
	}, nil
}

// LoadPrompt reads a template file. An empty path yields the default prompt.
func LoadPrompt(path string) (*Prompt, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPrompt(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt template: %w", err)
	}
	p, err := NewPrompt(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if p.name == "" {
		p.name = path
	}
	logger.Info("prompt template loaded", "path", path, "name", p.name)
	return p, nil
}

// Name returns the template name from its header, or its source.
func (p *Prompt) Name() string {
	return p.name
}

// Render substitutes {{TIME}}, {{TOOLS}} and {{USER}}.
func (p *Prompt) Render(v Vars) string {
	now := v.Time
	if now.IsZero() {
		now = time.Now()
	}
	user := strings.TrimSpace(v.User)
	if user == "" {
		user = runtimecfg.PromptAnonymous
	}

	out := p.body
	out = strings.ReplaceAll(out, "{{TIME}}", now.Format(p.timeFormat))
	out = strings.ReplaceAll(out, "{{TOOLS}}", strings.Join(v.Tools, ", "))
	out = strings.ReplaceAll(out, "{{USER}}", user)
	return out
}
