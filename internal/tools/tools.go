// Package tools implements the five booking tools exposed to the
// reasoning engine: destination search, flight availability, ancillary
// lookup and purchase, and booking confirmation.
//
// Every tool is a pure request→result function: argument validation
// failures and remote failures are converted to structured error results,
// never surfaced as Go errors, so the engine always receives a well-formed
// tool result to reason about.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aerochat/aerochat/internal/normalize"
	"github.com/aerochat/aerochat/internal/observe"
	"github.com/aerochat/aerochat/internal/reservation"
	"github.com/aerochat/aerochat/pkg/types"
)

// Tool names as declared to the reasoning engine.
const (
	NameSearchDestinations = "search_destinations"
	NameCheckAvailability  = "check_flight_availability"
	NameCheckAncillaries   = "check_ancillaries"
	NameAddAncillary       = "add_ancillary"
	NameConfirmBooking     = "confirm_booking"
)

// Result is the outcome of one tool execution. Content is always a JSON
// document; IsError marks results the engine should treat as failures.
type Result struct {
	Content string
	IsError bool
}

type handler func(ctx context.Context, threadID string, args json.RawMessage) Result

type entry struct {
	def types.ToolDefinition
	fn  handler

	// needsBooking gates tools that only make sense once a booking exists
	// for the thread. The engine is also instructed not to call them early,
	// but prompt compliance alone is too soft a guarantee.
	needsBooking bool
}

// Config assembles a [Registry]. Client and Bookings are required; the
// rest default sensibly.
type Config struct {
	Client   reservation.Client
	Bookings *BookingContexts

	// Matcher resolves free-text city names against the destination
	// catalog. Default: normalize.NewMatcher() with standard thresholds.
	Matcher *normalize.Matcher

	// Now supplies the reference time for date normalization. Default:
	// time.Now.
	Now func() time.Time

	// Metrics is optional; when nil no instruments are recorded.
	Metrics *observe.Metrics
}

// Registry holds the tool table and dispatches invocations.
type Registry struct {
	client   reservation.Client
	bookings *BookingContexts
	matcher  *normalize.Matcher
	now      func() time.Time
	metrics  *observe.Metrics

	entries map[string]entry
	order   []string
}

// NewRegistry builds the registry with all five tools registered.
func NewRegistry(cfg Config) *Registry {
	if cfg.Matcher == nil {
		cfg.Matcher = normalize.NewMatcher()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Bookings == nil {
		cfg.Bookings = NewBookingContexts()
	}
	r := &Registry{
		client:   cfg.Client,
		bookings: cfg.Bookings,
		matcher:  cfg.Matcher,
		now:      cfg.Now,
		metrics:  cfg.Metrics,
		entries:  make(map[string]entry),
	}
	r.register(searchDestinationsDef, r.searchDestinations, false)
	r.register(checkAvailabilityDef, r.checkAvailability, false)
	r.register(checkAncillariesDef, r.checkAncillaries, true)
	r.register(addAncillaryDef, r.addAncillary, true)
	r.register(confirmBookingDef, r.confirmBooking, true)
	return r
}

func (r *Registry) register(def types.ToolDefinition, fn handler, needsBooking bool) {
	r.entries[def.Name] = entry{def: def, fn: fn, needsBooking: needsBooking}
	r.order = append(r.order, def.Name)
}

// Definitions returns the tool declarations in registration order, for
// inclusion in every reasoning-engine request.
func (r *Registry) Definitions() []types.ToolDefinition {
	defs := make([]types.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.entries[name].def)
	}
	return defs
}

// Execute dispatches one tool invocation for the given thread. Unknown
// tools, missing booking context and handler failures all yield error
// results; Execute never returns a Go error.
func (r *Registry) Execute(ctx context.Context, threadID string, call types.ToolCall) Result {
	e, ok := r.entries[call.Name]
	if !ok {
		return errorResult("unknown tool %q", call.Name)
	}
	if e.needsBooking {
		if _, ok := r.bookings.Get(threadID); !ok {
			return errorResult("no booking exists for this conversation yet — a flight must be booked before managing extras or passenger details")
		}
	}

	start := time.Now()
	res := e.fn(ctx, threadID, json.RawMessage(call.Arguments))
	if r.metrics != nil {
		status := "ok"
		if res.IsError {
			status = "error"
		}
		r.metrics.RecordToolCall(ctx, call.Name, status, time.Since(start))
	}
	return res
}

// recordRemoteError feeds reservation failures into metrics, keyed by the
// remote operation when known.
func (r *Registry) recordRemoteError(ctx context.Context, err error) {
	if r.metrics == nil {
		return
	}
	op := "unknown"
	var remote *reservation.RemoteError
	if errors.As(err, &remote) {
		op = remote.Op
	}
	r.metrics.RecordReservationError(ctx, op)
}

// jsonResult marshals v into a success result.
func jsonResult(v any) Result {
	buf, err := json.Marshal(v)
	if err != nil {
		return errorResult("encode result: %v", err)
	}
	return Result{Content: string(buf)}
}

// errorResult produces a structured {"error": ...} result.
func errorResult(format string, args ...any) Result {
	msg := fmt.Sprintf(format, args...)
	buf, _ := json.Marshal(map[string]string{"error": msg})
	return Result{Content: string(buf), IsError: true}
}

// objectSchema builds a JSON-schema object declaration.
func objectSchema(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func prop(typ, desc string) map[string]any {
	return map[string]any{"type": typ, "description": desc}
}
