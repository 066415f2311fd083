package tools

import "sync"

// BookingContext identifies the booking a conversation thread is working
// on. It is recorded by the booking endpoint when a flight is booked
// out-of-band and gates the post-booking tools.
type BookingContext struct {
	BookingID int64
	FlightID  int64
	PNR       string
}

// BookingContexts is a concurrent thread-id → [BookingContext] table.
type BookingContexts struct {
	mu sync.RWMutex
	m  map[string]BookingContext
}

// NewBookingContexts creates an empty table.
func NewBookingContexts() *BookingContexts {
	return &BookingContexts{m: make(map[string]BookingContext)}
}

// Set records the thread's current booking, replacing any previous one.
func (b *BookingContexts) Set(threadID string, bc BookingContext) {
	b.mu.Lock()
	b.m[threadID] = bc
	b.mu.Unlock()
}

// Get returns the thread's booking context, if any.
func (b *BookingContexts) Get(threadID string) (BookingContext, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	bc, ok := b.m[threadID]
	return bc, ok
}
