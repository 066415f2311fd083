// Package orchestrator drives one conversation turn: it appends the
// inbound message, loops the reasoning engine over the bounded history
// window, dispatches requested tools, and terminates on a textual reply.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aerochat/aerochat/internal/convo"
	"github.com/aerochat/aerochat/internal/observe"
	"github.com/aerochat/aerochat/internal/prompt"
	"github.com/aerochat/aerochat/internal/tools"
	"github.com/aerochat/aerochat/pkg/engine"
	"github.com/aerochat/aerochat/pkg/types"
)

// ErrTurnIterationExceeded is returned when the engine keeps requesting
// tools without ever producing a reply. The turn is abandoned; the
// history keeps every round that was executed.
var ErrTurnIterationExceeded = errors.New("orchestrator: tool-call rounds exceeded the iteration cap")

// DefaultMaxRounds bounds the tool-call rounds within a single turn.
const DefaultMaxRounds = 10

// fallbackReply is used when the engine produces an empty terminal reply.
const fallbackReply = "Let me check that for you..."

// listingPhrases betray a reply that narrates flight options in text. When
// a flight_results payload is present the UI renders the options itself,
// so such replies are swapped for a short prompt to pick a card.
var listingPhrases = []string{
	"here are", "here's", "available flights", "i found", "flights from",
	"you can choose", "please pick", "listed below", "options below", "following flights",
}

const pickReply = "Here are the available flights — pick one and I'll get you booked!"

// TurnResult is the outcome of one completed turn.
type TurnResult struct {
	ThreadID string
	Reply    string

	// FlightResults and AncillaryResults are the structured side payloads
	// produced by tools during this turn, if any. They are drawn only from
	// messages appended within the turn, never from stale history.
	FlightResults    map[string]any
	AncillaryResults map[string]any
}

// Config assembles an [Orchestrator].
type Config struct {
	Engine engine.Provider
	Store  convo.Store
	Locks  *convo.Locks
	Window *convo.Builder
	Tools  *tools.Registry

	// MaxRounds caps tool-call rounds per turn. Default: DefaultMaxRounds.
	MaxRounds int

	// Now supplies the date injected into the system prompt. Default: time.Now.
	Now func() time.Time

	// Metrics is optional; when nil no instruments are recorded.
	Metrics *observe.Metrics
}

// Orchestrator processes turns. Safe for concurrent use across threads;
// turns on the same thread are serialized via the lock table.
type Orchestrator struct {
	engine    engine.Provider
	store     convo.Store
	locks     *convo.Locks
	window    *convo.Builder
	tools     *tools.Registry
	maxRounds int
	now       func() time.Time
	metrics   *observe.Metrics
}

// New creates an orchestrator.
func New(cfg Config) *Orchestrator {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Locks == nil {
		cfg.Locks = convo.NewLocks()
	}
	if cfg.Window == nil {
		cfg.Window = convo.NewBuilder(convo.BuilderConfig{})
	}
	return &Orchestrator{
		engine:    cfg.Engine,
		store:     cfg.Store,
		locks:     cfg.Locks,
		window:    cfg.Window,
		tools:     cfg.Tools,
		maxRounds: cfg.MaxRounds,
		now:       cfg.Now,
		metrics:   cfg.Metrics,
	}
}

// Turn processes one inbound message end to end. An empty threadID starts
// a fresh thread.
func (o *Orchestrator) Turn(ctx context.Context, threadID string, inbound types.Message) (*TurnResult, error) {
	if threadID == "" {
		threadID = convo.NewThreadID()
	}
	o.locks.Lock(threadID)
	defer o.locks.Unlock(threadID)

	start := time.Now()
	if o.metrics != nil {
		o.metrics.ActiveTurns.Add(ctx, 1)
		defer func() {
			o.metrics.ActiveTurns.Add(ctx, -1)
			o.metrics.TurnDuration.Record(ctx, time.Since(start).Seconds())
		}()
	}

	hist, err := o.store.History(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load history: %w", err)
	}
	turnStart := len(hist)

	hist, err = o.append(ctx, threadID, hist, inbound)
	if err != nil {
		return nil, err
	}

	system := prompt.System(o.now())
	defs := o.tools.Definitions()

	for round := 0; round < o.maxRounds; round++ {
		win := o.window.Window(hist)
		if o.metrics != nil {
			o.metrics.WindowSize.Record(ctx, int64(len(win)))
		}

		decideStart := time.Now()
		action, err := o.engine.Decide(ctx, engine.Request{
			System:   system,
			Messages: win,
			Tools:    defs,
		})
		if o.metrics != nil {
			status := "ok"
			if err != nil {
				status = "error"
			}
			o.metrics.RecordEngineRequest(ctx, status, time.Since(decideStart))
		}
		if err != nil {
			return nil, fmt.Errorf("orchestrator: engine decide: %w", err)
		}

		if !action.IsToolCall() {
			hist, err = o.append(ctx, threadID, hist, types.AssistantReply(action.Content))
			if err != nil {
				return nil, err
			}
			return o.finish(threadID, action.Content, hist[turnStart:]), nil
		}

		assistant := types.Message{
			Role:      types.RoleAssistant,
			Content:   action.Content,
			ToolCalls: action.ToolCalls,
		}
		hist, err = o.append(ctx, threadID, hist, assistant)
		if err != nil {
			return nil, err
		}

		// Sequential, in request order: a later call may depend on context
		// established by an earlier one within the same round.
		for _, call := range action.ToolCalls {
			res := o.tools.Execute(ctx, threadID, call)
			slog.Debug("tool executed",
				"thread_id", threadID,
				"tool", call.Name,
				"is_error", res.IsError)
			hist, err = o.append(ctx, threadID, hist, types.ToolResult(call.ID, res.Content))
			if err != nil {
				return nil, err
			}
		}
	}

	slog.Warn("turn abandoned after iteration cap",
		"thread_id", threadID,
		"max_rounds", o.maxRounds)
	return nil, fmt.Errorf("%w (thread %s)", ErrTurnIterationExceeded, threadID)
}

func (o *Orchestrator) append(ctx context.Context, threadID string, hist []types.Message, msg types.Message) ([]types.Message, error) {
	if err := o.store.Append(ctx, threadID, msg); err != nil {
		return nil, fmt.Errorf("orchestrator: append message: %w", err)
	}
	return append(hist, msg), nil
}

// finish assembles the turn result from the messages appended this turn.
func (o *Orchestrator) finish(threadID, reply string, turnMsgs []types.Message) *TurnResult {
	res := &TurnResult{
		ThreadID: threadID,
		Reply:    strings.TrimSpace(reply),
	}
	if res.Reply == "" {
		res.Reply = fallbackReply
	}

	// Latest payload of each kind wins.
	for i := len(turnMsgs) - 1; i >= 0; i-- {
		m := turnMsgs[i]
		if m.Role != types.RoleTool || m.Content == "" {
			continue
		}
		var body map[string]any
		if err := json.Unmarshal([]byte(m.Content), &body); err != nil {
			continue
		}
		switch body["type"] {
		case types.PayloadFlightResults:
			if res.FlightResults == nil {
				res.FlightResults = body
			}
		case types.PayloadAncillaryResults:
			if res.AncillaryResults == nil {
				res.AncillaryResults = body
			}
		}
	}

	if res.FlightResults != nil && describesListing(res.Reply) {
		res.Reply = pickReply
	}
	return res
}

// describesListing reports whether the reply text narrates flight options.
func describesListing(reply string) bool {
	lower := strings.ToLower(reply)
	for _, p := range listingPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
