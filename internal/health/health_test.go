package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectCopiesAgentInfo(t *testing.T) {
	info := &AgentInfo{Provider: "ollama", ActiveRuns: 2, Tools: []string{"calculator"}}
	now := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

	s := Collect(Options{Agent: info, Now: now})
	assert.Equal(t, "healthy", s.Status)
	assert.Equal(t, "2025-06-02T08:00:00Z", s.Timestamp)
	assert.Positive(t, s.Goroutines)
	require.NotNil(t, s.Agent)
	assert.Equal(t, 2, s.Agent.ActiveRuns)

	info.Tools[0] = "changed"
	assert.Equal(t, []string{"calculator"}, s.Agent.Tools)
}

func TestFormatText(t *testing.T) {
	s := Collect(Options{Agent: &AgentInfo{Model: "qwen3:8b", Checkpoint: "sqlite", Tools: []string{"calculator", "askHuman"}}})
	text := FormatText(s)
	assert.Contains(t, text, "Status: healthy")
	assert.Contains(t, text, "Model: qwen3:8b")
	assert.Contains(t, text, "Checkpoint: sqlite")
	assert.Contains(t, text, "Tools: calculator, askHuman")

	assert.NotContains(t, FormatText(Collect(Options{})), "Agent:")
}
