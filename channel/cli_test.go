package channel

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/linanwx/notebot/checkpoint"
	"github.com/linanwx/notebot/internal/runtimecfg"
	"github.com/linanwx/notebot/provider"
	"github.com/linanwx/notebot/provider/providertest"
	"github.com/linanwx/notebot/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, p provider.Provider, store checkpoint.Store, input string) (*CLIChannel, string) {
	t.Helper()
	var out bytes.Buffer
	c := NewCLIChannel(newTestEngine(t, p, store), CLIConfig{
		UserID: "bob",
		In:     strings.NewReader(input),
		Out:    &out,
	})
	require.NoError(t, c.Run(context.Background()))
	return c, out.String()
}

func TestCLIAnswersPendingQuestion(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	p := providertest.NewScripted(
		providertest.Calls("", provider.FunctionToolCall("tc_1", tools.AskHumanName, `{"question":"Which list?"}`)),
		providertest.Text("Added to groceries."),
	)

	c, out := runCLI(t, p, store, "add milk\n\ngroceries\nexit\n")
	assert.Contains(t, out, "? Which list?")
	assert.Contains(t, out, "Added to groceries.")
	assert.Contains(t, out, "Goodbye!")
	require.NotEmpty(t, c.ThreadID())

	rec, err := store.Load(context.Background(), c.ThreadID())
	require.NoError(t, err)
	assert.Equal(t, checkpoint.PendingNone, rec.PendingNode)
	require.Len(t, rec.Messages, 4)
	assert.Equal(t, "tc_1", rec.Messages[2].ToolCallID)
	assert.Equal(t, "groceries", rec.Messages[2].Content)
}

func TestCLICancelCommand(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	p := providertest.NewScripted(
		providertest.Calls("", provider.FunctionToolCall("tc_1", tools.AskHumanName, `{"question":"Delete everything?"}`)),
		providertest.Text("Okay, nothing was deleted."),
	)

	c, out := runCLI(t, p, store, "wipe my notes\n"+runtimecfg.CLIChannelCancelCommand+"\n")
	assert.Contains(t, out, "nothing was deleted")

	rec, err := store.Load(context.Background(), c.ThreadID())
	require.NoError(t, err)
	assert.Equal(t, runtimecfg.GraphCancelNotice, rec.Messages[2].Content)
}

func TestCLIRendersToolCalls(t *testing.T) {
	p := providertest.NewStreaming(
		providertest.Calls("", provider.FunctionToolCall("c1", "calculator", `{"expression":"6*7"}`)),
		providertest.Text("FINAL RESULT: 42"),
	)

	_, out := runCLI(t, p, checkpoint.NewMemoryStore(), "what is 6*7\n")
	assert.Contains(t, out, "[calculator] 42")
	assert.Contains(t, out, "FINAL RESULT: 42")
}

func TestCLIReportsRunErrors(t *testing.T) {
	p := providertest.NewScripted(providertest.Fail(assert.AnError))

	_, out := runCLI(t, p, checkpoint.NewMemoryStore(), "hello\n")
	assert.Contains(t, out, "error:")
	assert.Contains(t, out, assert.AnError.Error())
}

func TestCLINewThreadCommand(t *testing.T) {
	p := providertest.NewScripted(providertest.Text("one"), providertest.Text("two"))
	var out bytes.Buffer
	c := NewCLIChannel(newTestEngine(t, p, checkpoint.NewMemoryStore()), CLIConfig{
		ThreadID: "first",
		In:       strings.NewReader("hi\n/new\nhello\n"),
		Out:      &out,
	})
	require.NoError(t, c.Run(context.Background()))
	assert.NotEqual(t, "first", c.ThreadID())
	assert.Contains(t, out.String(), "Started a new thread.")
	assert.Equal(t, 2, p.CallCount())
	// the second thread starts from an empty history
	assert.Len(t, p.Requests()[1].Messages, 2)
}

func TestCLIStartStop(t *testing.T) {
	var out bytes.Buffer
	c := NewCLIChannel(newTestEngine(t, providertest.NewScripted(), checkpoint.NewMemoryStore()), CLIConfig{
		In:  strings.NewReader("quit\n"),
		Out: &out,
	})
	require.NoError(t, c.Start(context.Background()))
	<-c.Finished()
	require.NoError(t, c.Stop())
	assert.Contains(t, out.String(), "Goodbye!")
}
