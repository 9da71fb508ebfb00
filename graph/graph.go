// Package graph runs the agent state machine: ask the model, run the tools it
// requests, suspend when it asks the human a question, and checkpoint the
// thread after every step.
package graph

import (
	"errors"

	"github.com/linanwx/notebot/checkpoint"
)

// Node names a state of the machine.
type Node string

const (
	NodeAgent    Node = "agent"
	NodeAction   Node = "action"
	NodeAskHuman Node = "askHuman"
	NodeEnd      Node = "end"
)

// Turn actions.
const (
	ActionNone   = ""
	ActionResume = "resume"
	ActionCancel = "cancel"
)

var (
	// ErrInvalidTurn is returned for malformed turns (unknown action, missing input).
	ErrInvalidTurn = errors.New("invalid turn")
	// ErrUnknownThread is returned when resume or cancel names a thread that
	// is not waiting on the human.
	ErrUnknownThread = errors.New("unknown thread")
	// ErrThreadBusy is returned when a thread already has an active run.
	ErrThreadBusy = errors.New("thread is busy")
	// ErrModelInvocation wraps model failures. The run stops and the
	// checkpoint keeps its last saved state.
	ErrModelInvocation = errors.New("model invocation failed")
	// ErrMaxIterations is returned when a run exceeds its agent step budget.
	ErrMaxIterations = errors.New("max tool iterations exceeded")
	// ErrInvalidCheckpoint is returned when a loaded record is corrupt.
	ErrInvalidCheckpoint = errors.New("invalid checkpoint")
)

// Turn is one client submission.
type Turn struct {
	ThreadID string
	Input    string
	// Action is empty for a new message, or resume/cancel for a thread
	// suspended on askHuman.
	Action string
	// UserID is the caller identity passed to the prompt and to tools.
	UserID string
}

// Result summarizes a finished run.
type Result struct {
	ThreadID string
	// Node is NodeEnd or NodeAskHuman.
	Node     Node
	Steps    int
	Question string
	Events   []Event
}

func pendingFor(n Node) string {
	switch n {
	case NodeAskHuman:
		return checkpoint.PendingAskHuman
	case NodeAgent:
		return checkpoint.PendingAgent
	default:
		return checkpoint.PendingNone
	}
}
