// Package mock provides a test double for the engine.Provider interface.
//
// Use Provider in unit tests to verify that the orchestrator sends correct
// Requests and to feed controlled actions without a live reasoning engine.
// All fields are safe to set before calling any method; mutating them during
// a concurrent call is the caller's responsibility.
//
// Example:
//
//	p := &mock.Provider{
//	    Actions: []*engine.Action{{Content: "Hello!"}},
//	}
//	action, err := p.Decide(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/aerochat/aerochat/pkg/engine"
)

// DecideCall records a single invocation of Decide.
type DecideCall struct {
	// Ctx is the context passed to Decide.
	Ctx context.Context
	// Req is the Request passed to Decide.
	Req engine.Request
}

// Provider is a mock implementation of engine.Provider.
//
// Each call to Decide consumes the next entry of Actions; when Actions is
// exhausted, the last entry is repeated. Set Err to inject an error instead.
type Provider struct {
	mu sync.Mutex

	// Actions is the sequence of actions returned by successive Decide calls.
	Actions []*engine.Action

	// Err, if non-nil, is returned as the error from every Decide call.
	Err error

	// Calls records every invocation of Decide in order.
	Calls []DecideCall

	next int
}

// Decide implements engine.Provider.
func (p *Provider) Decide(ctx context.Context, req engine.Request) (*engine.Action, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Calls = append(p.Calls, DecideCall{Ctx: ctx, Req: req})

	if p.Err != nil {
		return nil, p.Err
	}
	if len(p.Actions) == 0 {
		return &engine.Action{}, nil
	}

	idx := p.next
	if idx >= len(p.Actions) {
		idx = len(p.Actions) - 1
	}
	p.next++
	return p.Actions[idx], nil
}

// DecideCount returns the number of Decide invocations recorded so far.
func (p *Provider) DecideCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
