// Package engine defines the Provider interface for reasoning engine backends.
//
// A reasoning engine consumes a system prompt, an ordered message window, and
// a set of tool definitions, and returns exactly one next action: either a
// terminal textual reply or one or more tool invocation requests. The engine
// is treated as opaque — it owns all natural-language understanding; this
// repository only guarantees that the submitted window is structurally
// complete (see the convo package).
//
// Implementors must be safe for concurrent use.
package engine

import (
	"context"

	"github.com/aerochat/aerochat/pkg/types"
)

// Request carries everything the engine needs to decide the next action.
// Messages must satisfy the tool-call completeness invariant; providers are
// entitled to reject windows that do not.
type Request struct {
	// System is the high-priority instruction text injected ahead of the
	// conversation window.
	System string

	// Messages is the bounded conversation window, oldest first.
	Messages []types.Message

	// Tools is the set of tool definitions offered to the engine.
	Tools []types.ToolDefinition

	// Temperature controls output randomness in [0.0, 2.0]. Zero means use
	// the provider default.
	Temperature float64

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int
}

// Action is the engine's decision for one step of a turn. Exactly one of the
// two shapes is populated: a non-empty ToolCalls list (tool round) or reply
// text in Content (terminal for the turn). Content may accompany tool calls;
// the orchestrator treats any non-empty ToolCalls as a tool round.
type Action struct {
	// Content is the assistant's reply text. Empty when the engine responds
	// exclusively with tool calls.
	Content string

	// ToolCalls lists the tool invocations the engine is requesting, in
	// request order. The caller executes them sequentially and appends one
	// tool result per invocation id.
	ToolCalls []types.ToolCall
}

// IsToolCall reports whether this action requests at least one tool
// invocation.
func (a *Action) IsToolCall() bool {
	return len(a.ToolCalls) > 0
}

// Provider is the abstraction over any reasoning engine backend.
//
// Decide must return a well-formed Action or an error; it must never block
// past ctx cancellation. Transport-level failures (timeouts included) are
// returned as errors and surface as turn-level failures upstream.
type Provider interface {
	Decide(ctx context.Context, req Request) (*Action, error)
}
