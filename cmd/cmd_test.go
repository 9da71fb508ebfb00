package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/linanwx/notebot/checkpoint"
	"github.com/linanwx/notebot/config"
	"github.com/linanwx/notebot/internal/health"
	"github.com/linanwx/notebot/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// flag values outlive a single Execute
	initProvider, initModel, initAPIKey, initAPIBase, initCheckpoint = "", "", "", "", ""
	configDirOverride, logLevelOverride = "", ""
	statusJSON = false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestInitWritesConfigOnce(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "--config-dir", dir, "init", "--provider", "deepseek", "--api-key", "sk-test", "--checkpoint", "file")
	require.NoError(t, err)
	assert.Contains(t, out, "Config created:")

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	cfg, err := config.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "deepseek", cfg.Thread.Provider)
	assert.Equal(t, provider.SupportedModelsForProvider("deepseek")[0], cfg.Thread.ModelType)
	require.NotNil(t, cfg.Providers.DeepSeek)
	assert.Equal(t, "sk-test", cfg.Providers.DeepSeek.APIKey)
	assert.Equal(t, "file", cfg.Checkpoint.Driver)

	out, err = execute(t, "--config-dir", dir, "init", "--provider", "openai", "--api-key", "other")
	require.NoError(t, err)
	assert.Contains(t, out, "Config already exists")
}

func TestInitRejectsUnknownModel(t *testing.T) {
	_, err := execute(t, "--config-dir", t.TempDir(), "init", "--provider", "deepseek", "--model", "not-a-model")
	assert.Error(t, err)
}

func TestThreadShowAndDelete(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "--config-dir", dir, "init", "--checkpoint", "file")
	require.NoError(t, err)

	cfg, err := config.Load()
	require.NoError(t, err)
	store, err := checkpoint.Open(context.Background(), cfg.Checkpoint)
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), &checkpoint.Record{
		ThreadID: "t-cli",
		Messages: []provider.Message{
			provider.UserMessage("remind me to water the plants"),
			provider.AssistantMessageWithTools("", "", []provider.ToolCall{
				provider.FunctionToolCall("tc_1", "askHuman", `{"question":"What time?"}`),
			}),
		},
		PendingNode: checkpoint.PendingAskHuman,
	}))
	require.NoError(t, store.Close())

	out, err := execute(t, "--config-dir", dir, "thread", "show", "t-cli")
	require.NoError(t, err)
	assert.Contains(t, out, "thread:  t-cli")
	assert.Contains(t, out, "pending: askHuman")
	assert.Contains(t, out, "question: What time?")
	assert.Contains(t, out, "[user] remind me to water the plants")
	assert.Contains(t, out, "-> askHuman")

	out, err = execute(t, "--config-dir", dir, "thread", "delete", "t-cli")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted thread t-cli")

	_, err = execute(t, "--config-dir", dir, "thread", "show", "t-cli")
	assert.ErrorContains(t, err, "not found")
}

func TestToolsListsAskHumanLast(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "--config-dir", dir, "init")
	require.NoError(t, err)

	out, err := execute(t, "--config-dir", dir, "tools")
	require.NoError(t, err)
	for _, name := range []string{"calculator", "createTodo", "fetchUrlContent", "askHuman"} {
		assert.Contains(t, out, name)
	}
	assert.Greater(t, bytes.LastIndex([]byte(out), []byte("askHuman")), bytes.Index([]byte(out), []byte("calculator")))
}

func TestStatusJSON(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "--config-dir", dir, "init", "--provider", "ollama", "--model", "qwen3:8b", "--checkpoint", "memory")
	require.NoError(t, err)

	out, err := execute(t, "--config-dir", dir, "status", "--json")
	require.NoError(t, err)
	var snap health.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	require.NotNil(t, snap.Agent)
	assert.Equal(t, "ollama", snap.Agent.Provider)
	assert.Equal(t, "qwen3:8b", snap.Agent.Model)
	assert.Equal(t, "memory", snap.Agent.Checkpoint)
	assert.Equal(t, "askHuman", snap.Agent.Tools[len(snap.Agent.Tools)-1])
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "notebot "+Version)
}
