package channel

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/linanwx/notebot/graph"
	"github.com/linanwx/notebot/internal/runtimecfg"
	"github.com/linanwx/notebot/logger"
	"github.com/linanwx/notebot/stream"
)

const cliToolResultPreview = 200

// CLIChannel is an interactive terminal session on one thread.
type CLIChannel struct {
	engine   *graph.Engine
	mux      *stream.Multiplexer
	prompt   string
	userID   string
	in       io.Reader
	out      io.Writer
	threadID string
	// pending is set while the thread waits on the human.
	pending bool

	done     chan struct{}
	finished chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// CLIConfig holds CLI channel configuration.
type CLIConfig struct {
	Prompt   string // Input prompt (default: "> ")
	ThreadID string // continue an existing thread
	UserID   string
	In       io.Reader // default os.Stdin
	Out      io.Writer // default os.Stdout
}

// NewCLIChannel creates a new CLI channel.
func NewCLIChannel(engine *graph.Engine, cfg CLIConfig) *CLIChannel {
	prompt := cfg.Prompt
	if prompt == "" {
		prompt = runtimecfg.CLIChannelPrompt
	}
	in := cfg.In
	if in == nil {
		in = os.Stdin
	}
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	userID := cfg.UserID
	if userID == "" {
		userID = os.Getenv("USER")
	}

	return &CLIChannel{
		engine:   engine,
		mux:      stream.NewMultiplexer(),
		prompt:   prompt,
		userID:   userID,
		in:       in,
		out:      out,
		threadID: strings.TrimSpace(cfg.ThreadID),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// Name returns the channel name.
func (c *CLIChannel) Name() string {
	return "cli"
}

// Start runs the session in the background. Finished is closed when the
// user quits or input ends.
func (c *CLIChannel) Start(ctx context.Context) error {
	logger.Info("cli channel started", "threadID", c.threadID)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(c.finished)
		if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("cli channel error", "err", err)
		}
	}()
	return nil
}

// Finished is closed when the session ends.
func (c *CLIChannel) Finished() <-chan struct{} {
	return c.finished
}

// Stop gracefully shuts down the channel. A pending read on stdin is not
// interrupted; the session ends at the next line.
func (c *CLIChannel) Stop() error {
	c.stopOnce.Do(func() { close(c.done) })
	c.wg.Wait()
	logger.Info("cli channel stopped")
	return nil
}

// ThreadID returns the thread the session is on.
func (c *CLIChannel) ThreadID() string {
	return c.threadID
}

// Run reads lines until EOF, an exit command, or ctx ends. Each line is one
// turn; while the thread waits on a question the line is the answer, and
// /cancel cancels it.
func (c *CLIChannel) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(c.in)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		default:
		}

		fmt.Fprint(c.out, c.prompt)
		if !scanner.Scan() {
			fmt.Fprintln(c.out)
			return scanner.Err()
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		switch text {
		case "exit", "quit", "/exit", "/quit":
			fmt.Fprintln(c.out, "Goodbye!")
			return nil
		case "/new":
			c.threadID = ""
			c.pending = false
			fmt.Fprintln(c.out, "Started a new thread.")
			continue
		case "/thread":
			fmt.Fprintln(c.out, "thread:", c.threadID)
			continue
		}

		turn := graph.Turn{ThreadID: c.threadID, Input: text, UserID: c.userID}
		if c.pending {
			turn.Action = graph.ActionResume
			if text == runtimecfg.CLIChannelCancelCommand {
				turn.Action = graph.ActionCancel
				turn.Input = ""
			}
		}
		if err := c.submit(ctx, turn); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintln(c.out, "error:", err)
		}
	}
}

func (c *CLIChannel) submit(ctx context.Context, turn graph.Turn) error {
	threadID, events, err := c.engine.Stream(ctx, turn)
	if err != nil {
		if errors.Is(err, graph.ErrUnknownThread) {
			c.pending = false
		}
		return err
	}
	c.threadID = threadID
	c.pending = false

	err = c.mux.Pipe(ctx, events, stream.FrameWriterFunc(c.writeFrame))
	fmt.Fprintln(c.out)
	return err
}

func (c *CLIChannel) writeFrame(_ context.Context, f stream.Frame) error {
	switch f.Type {
	case runtimecfg.StreamFrameTypeText:
		_, err := fmt.Fprint(c.out, f.Text)
		return err
	case runtimecfg.StreamFrameTypeTool:
		for _, seg := range stream.ParseSegments(f.Text) {
			if seg.Kind != stream.SegmentToolCall {
				continue
			}
			if _, err := fmt.Fprintf(c.out, "\n[%s] %s\n", seg.Tool, preview(seg.Result, cliToolResultPreview)); err != nil {
				return err
			}
		}
		return nil
	case runtimecfg.StreamFrameTypeAsk:
		c.pending = true
		for _, seg := range stream.ParseSegments(f.Text) {
			if seg.Kind != stream.SegmentAskHuman {
				continue
			}
			if _, err := fmt.Fprintf(c.out, "\n? %s\n(answer, or %s)", seg.Text, runtimecfg.CLIChannelCancelCommand); err != nil {
				return err
			}
		}
		return nil
	case runtimecfg.StreamFrameTypeError:
		// Pipe returns the run error; submit prints it.
		return nil
	default:
		return nil
	}
}

func preview(s string, limit int) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
