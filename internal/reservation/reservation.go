// Package reservation provides a typed client for the remote reservation
// system (AeroCRS). It wraps the vendor's JSON envelope protocol behind a
// small [Client] interface so the tool layer and the HTTP booking endpoint
// never deal with wire shapes directly.
package reservation

import (
	"context"
	"encoding/json"
	"fmt"
)

// Destination is one entry of the remote destination catalog.
type Destination struct {
	Code string `json:"code"`
	Name string `json:"name"`
	IATA string `json:"iatacode"`
}

// Fare holds the per-passenger-type amounts of a fare class. Amounts are
// kept as json.Number because the remote system emits them as either
// strings or numbers depending on the endpoint.
type Fare struct {
	AdultFare json.Number `json:"adultFare"`
	ChildFare json.Number `json:"childFare"`
	Tax       json.Number `json:"tax"`
}

// FareOption is one bookable class of an itinerary.
type FareOption struct {
	FareID    int64       `json:"fareid"`
	Fare      Fare        `json:"fare"`
	FreeSeats json.Number `json:"freeseats"`
}

// Itinerary is one flight option returned by the priced-itinerary search.
// STD/STA are raw timestamps in whatever format the remote system used;
// callers normalize them before display.
type Itinerary struct {
	Direction  string                `json:"direction"`
	FlightID   int64                 `json:"flightid"`
	FlightCode string                `json:"flightcode"`
	Number     json.Number           `json:"fltnum"`
	STD        string                `json:"STD"`
	STA        string                `json:"STA"`
	Via        string                `json:"via"`
	Classes    map[string]FareOption `json:"classes"`
}

// ItineraryQuery describes a priced-itinerary search.
type ItineraryQuery struct {
	Origin      string
	Destination string
	Date        string // YYYY/MM/DD
	ReturnDate  string // YYYY/MM/DD, empty for one-way
	Adults      int
	Children    int
	Infants     int
}

// AncillaryItem is a purchasable add-on (baggage, meal, seat) in the flat
// form produced by [Client.Ancillaries].
type AncillaryItem struct {
	ItemID   int64       `json:"itemId"`
	Name     string      `json:"name"`
	Category string      `json:"category"`
	Price    json.Number `json:"price"`
	Currency string      `json:"currency"`
}

// BookingRequest carries the parameters for creating a provisional booking
// from a selected itinerary and fare class.
type BookingRequest struct {
	TripType    string // "OW" or "RT"
	Origin      string
	Destination string
	FlightID    int64
	FareID      int64
	Adults      int
	Children    int
	Infants     int
}

// Booking is the result of a successful booking creation.
type Booking struct {
	ID  int64
	PNR string

	// Raw is the full vendor response, passed through to API callers.
	Raw json.RawMessage
}

// Passenger holds the details required to finalize a booking.
type Passenger struct {
	FirstName string
	LastName  string
	Birthdate string // YYYY/MM/DD
	Phone     string
	Email     string
}

// Client is the set of reservation-system operations the rest of the
// application depends on.
type Client interface {
	// Destinations returns the full destination catalog.
	Destinations(ctx context.Context) ([]Destination, error)

	// Availability returns the number of flights operating between origin
	// and destination within the inclusive date window.
	Availability(ctx context.Context, origin, destination, startDate, endDate string) (int, error)

	// PricedItineraries returns bookable flight options for the query.
	PricedItineraries(ctx context.Context, q ItineraryQuery) ([]Itinerary, error)

	// Ancillaries returns the add-ons purchasable for a booking, flattened
	// from the vendor's nested group structure.
	Ancillaries(ctx context.Context, bookingID, flightID int64) ([]AncillaryItem, error)

	// CreateAncillary attaches an add-on to a booking for one passenger.
	// The vendor response is returned verbatim.
	CreateAncillary(ctx context.Context, bookingID, flightID, itemID int64, paxIndex int) (json.RawMessage, error)

	// CreateBooking creates a provisional booking for a selected flight.
	CreateBooking(ctx context.Context, req BookingRequest) (*Booking, error)

	// ConfirmBooking finalizes a booking with passenger details. The
	// vendor response is returned verbatim.
	ConfirmBooking(ctx context.Context, bookingID int64, p Passenger) (json.RawMessage, error)
}

// RemoteError wraps every failure surfaced by the remote reservation
// system: transport errors, malformed responses, and error fields embedded
// in otherwise successful responses.
type RemoteError struct {
	Op  string // remote operation name, e.g. "getAvailability"
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("reservation: %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }
