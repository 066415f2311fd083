// Package mock provides a configurable in-memory reservation.Client for
// tests. Each operation delegates to an optional function field; unset
// operations return empty results. All calls are recorded.
package mock

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/aerochat/aerochat/internal/reservation"
)

// Client implements reservation.Client for tests.
type Client struct {
	DestinationsFn      func(ctx context.Context) ([]reservation.Destination, error)
	AvailabilityFn      func(ctx context.Context, origin, destination, startDate, endDate string) (int, error)
	PricedItinerariesFn func(ctx context.Context, q reservation.ItineraryQuery) ([]reservation.Itinerary, error)
	AncillariesFn       func(ctx context.Context, bookingID, flightID int64) ([]reservation.AncillaryItem, error)
	CreateAncillaryFn   func(ctx context.Context, bookingID, flightID, itemID int64, paxIndex int) (json.RawMessage, error)
	CreateBookingFn     func(ctx context.Context, req reservation.BookingRequest) (*reservation.Booking, error)
	ConfirmBookingFn    func(ctx context.Context, bookingID int64, p reservation.Passenger) (json.RawMessage, error)

	mu    sync.Mutex
	calls []string
}

var _ reservation.Client = (*Client)(nil)

// Calls returns the names of the operations invoked so far, in order.
func (c *Client) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}

func (c *Client) record(op string) {
	c.mu.Lock()
	c.calls = append(c.calls, op)
	c.mu.Unlock()
}

func (c *Client) Destinations(ctx context.Context) ([]reservation.Destination, error) {
	c.record("Destinations")
	if c.DestinationsFn != nil {
		return c.DestinationsFn(ctx)
	}
	return nil, nil
}

func (c *Client) Availability(ctx context.Context, origin, destination, startDate, endDate string) (int, error) {
	c.record("Availability")
	if c.AvailabilityFn != nil {
		return c.AvailabilityFn(ctx, origin, destination, startDate, endDate)
	}
	return 0, nil
}

func (c *Client) PricedItineraries(ctx context.Context, q reservation.ItineraryQuery) ([]reservation.Itinerary, error) {
	c.record("PricedItineraries")
	if c.PricedItinerariesFn != nil {
		return c.PricedItinerariesFn(ctx, q)
	}
	return nil, nil
}

func (c *Client) Ancillaries(ctx context.Context, bookingID, flightID int64) ([]reservation.AncillaryItem, error) {
	c.record("Ancillaries")
	if c.AncillariesFn != nil {
		return c.AncillariesFn(ctx, bookingID, flightID)
	}
	return nil, nil
}

func (c *Client) CreateAncillary(ctx context.Context, bookingID, flightID, itemID int64, paxIndex int) (json.RawMessage, error) {
	c.record("CreateAncillary")
	if c.CreateAncillaryFn != nil {
		return c.CreateAncillaryFn(ctx, bookingID, flightID, itemID, paxIndex)
	}
	return json.RawMessage(`{}`), nil
}

func (c *Client) CreateBooking(ctx context.Context, req reservation.BookingRequest) (*reservation.Booking, error) {
	c.record("CreateBooking")
	if c.CreateBookingFn != nil {
		return c.CreateBookingFn(ctx, req)
	}
	return &reservation.Booking{Raw: json.RawMessage(`{}`)}, nil
}

func (c *Client) ConfirmBooking(ctx context.Context, bookingID int64, p reservation.Passenger) (json.RawMessage, error) {
	c.record("ConfirmBooking")
	if c.ConfirmBookingFn != nil {
		return c.ConfirmBookingFn(ctx, bookingID, p)
	}
	return json.RawMessage(`{}`), nil
}
