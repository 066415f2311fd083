package convo

import (
	"encoding/json"

	"github.com/aerochat/aerochat/pkg/types"
)

// Window builder defaults.
const (
	DefaultWindowSize     = 30
	DefaultFallbackSize   = 6
	DefaultMaxItineraries = 4
	DefaultMaxAncillaries = 6
)

// Builder produces the bounded message window submitted to the reasoning
// engine. It first makes a payload-reduced copy of the history (large tool
// results are shrunk, never the conversation text), then selects a suffix
// that keeps every tool call paired with its results.
//
// The engine's calling convention rejects windows where a tool result has
// no preceding tool call, or a tool call has no result. Truncating by
// message count alone breaks that pairing, so the builder trades window
// size for structural validity, never the reverse.
type Builder struct {
	windowSize     int
	fallbackSize   int
	maxItineraries int
	maxAncillaries int
}

// BuilderConfig holds the window tuning knobs. Zero values mean defaults.
type BuilderConfig struct {
	WindowSize     int
	FallbackSize   int
	MaxItineraries int
	MaxAncillaries int
}

// NewBuilder creates a window builder.
func NewBuilder(cfg BuilderConfig) *Builder {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultWindowSize
	}
	if cfg.FallbackSize <= 0 {
		cfg.FallbackSize = DefaultFallbackSize
	}
	if cfg.MaxItineraries <= 0 {
		cfg.MaxItineraries = DefaultMaxItineraries
	}
	if cfg.MaxAncillaries <= 0 {
		cfg.MaxAncillaries = DefaultMaxAncillaries
	}
	return &Builder{
		windowSize:     cfg.WindowSize,
		fallbackSize:   cfg.FallbackSize,
		maxItineraries: cfg.MaxItineraries,
		maxAncillaries: cfg.MaxAncillaries,
	}
}

// Window returns the bounded, payload-reduced suffix of history that is
// safe to submit to the reasoning engine.
func (b *Builder) Window(history []types.Message) []types.Message {
	reduced := b.Slim(history)
	if len(reduced) <= b.fallbackSize {
		return sanitize(reduced)
	}

	start := len(reduced) - b.windowSize
	if start < 0 {
		start = 0
	}
	for off := start; off < len(reduced); off++ {
		cand := reduced[off:]
		if cand[0].Role == types.RoleTool {
			// Would begin with an orphaned tool result.
			continue
		}
		if isComplete(cand) {
			return cand
		}
	}

	// No complete suffix within the window. Degrade to a short fixed tail;
	// sanitize strips whatever pairing the cut severed.
	return sanitize(reduced[len(reduced)-b.fallbackSize:])
}

// Slim returns a copy of history with oversized tool-result payloads
// reduced: flight results keep only the first few itineraries' summary
// fields, ancillary results keep only the first few items. Reduced copies
// are tagged so the engine knows it is looking at a sample.
func (b *Builder) Slim(history []types.Message) []types.Message {
	out := make([]types.Message, len(history))
	copy(out, history)
	for i := range out {
		if out[i].Role != types.RoleTool {
			continue
		}
		if slimmed, ok := b.slimPayload(out[i].Content); ok {
			out[i].Content = slimmed
		}
	}
	return out
}

// slimPayload reduces a single tool-result body. The bool reports whether
// anything changed.
func (b *Builder) slimPayload(content string) (string, bool) {
	var body map[string]any
	if err := json.Unmarshal([]byte(content), &body); err != nil {
		return "", false
	}

	changed := false
	switch body["type"] {
	case types.PayloadFlightResults:
		data, ok := body["data"].([]any)
		if !ok {
			return "", false
		}
		if len(data) > b.maxItineraries {
			data = data[:b.maxItineraries]
			changed = true
		}
		for j, entry := range data {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			if _, has := m["classes"]; has {
				trimmed := make(map[string]any, len(m))
				for k, v := range m {
					if k != "classes" {
						trimmed[k] = v
					}
				}
				data[j] = trimmed
				changed = true
			}
		}
		body["data"] = data

	case types.PayloadAncillaryResults:
		items, ok := body["items"].([]any)
		if !ok || len(items) <= b.maxAncillaries {
			return "", false
		}
		body["items"] = items[:b.maxAncillaries]
		changed = true

	default:
		return "", false
	}

	if !changed {
		return "", false
	}
	body["_slimmed"] = true
	buf, err := json.Marshal(body)
	if err != nil {
		return "", false
	}
	return string(buf), true
}

// isComplete reports whether every tool call in msgs is followed by its
// result and every tool result was requested within msgs.
func isComplete(msgs []types.Message) bool {
	pending := make(map[string]bool)
	for _, m := range msgs {
		switch m.Role {
		case types.RoleAssistant:
			for _, tc := range m.ToolCalls {
				pending[tc.ID] = true
			}
		case types.RoleTool:
			if !pending[m.ToolCallID] {
				return false
			}
			delete(pending, m.ToolCallID)
		}
	}
	return len(pending) == 0
}

// sanitize trims msgs until it satisfies the completeness invariant: drop
// leading orphaned tool results, then drop trailing messages while a tool
// call is still awaiting its result.
func sanitize(msgs []types.Message) []types.Message {
	for len(msgs) > 0 && msgs[0].Role == types.RoleTool {
		msgs = msgs[1:]
	}
	for len(msgs) > 0 && !isComplete(msgs) {
		msgs = msgs[:len(msgs)-1]
		for len(msgs) > 0 && msgs[0].Role == types.RoleTool {
			msgs = msgs[1:]
		}
	}
	return msgs
}
