package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aerochat/aerochat/internal/reservation"
	"github.com/aerochat/aerochat/internal/reservation/mock"
	"github.com/aerochat/aerochat/pkg/types"
)

// refNow is the fixed reference day for all date handling in these tests.
var refNow = time.Date(2026, time.July, 15, 10, 0, 0, 0, time.UTC)

func newRegistry(t *testing.T, client *mock.Client) *Registry {
	t.Helper()
	return NewRegistry(Config{
		Client:   client,
		Bookings: NewBookingContexts(),
		Now:      func() time.Time { return refNow },
	})
}

func execute(t *testing.T, r *Registry, thread, name string, args any) Result {
	t.Helper()
	buf, err := json.Marshal(args)
	if err != nil {
		t.Fatal(err)
	}
	return r.Execute(context.Background(), thread, types.ToolCall{
		ID: "call_1", Name: name, Arguments: string(buf),
	})
}

func decode(t *testing.T, res Result) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(res.Content), &m); err != nil {
		t.Fatalf("result is not JSON: %v\n%s", err, res.Content)
	}
	return m
}

func TestDefinitionsOrder(t *testing.T) {
	r := newRegistry(t, &mock.Client{})
	defs := r.Definitions()
	want := []string{
		NameSearchDestinations,
		NameCheckAvailability,
		NameCheckAncillaries,
		NameAddAncillary,
		NameConfirmBooking,
	}
	if len(defs) != len(want) {
		t.Fatalf("got %d definitions, want %d", len(defs), len(want))
	}
	for i, d := range defs {
		if d.Name != want[i] {
			t.Errorf("definition %d = %q, want %q", i, d.Name, want[i])
		}
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	r := newRegistry(t, &mock.Client{})
	res := r.Execute(context.Background(), "t1", types.ToolCall{ID: "x", Name: "teleport", Arguments: "{}"})
	if !res.IsError {
		t.Fatal("unknown tool did not produce an error result")
	}
}

func catalogClient() *mock.Client {
	return &mock.Client{
		DestinationsFn: func(ctx context.Context) ([]reservation.Destination, error) {
			return []reservation.Destination{
				{Code: "JRO", Name: "Kilimanjaro", IATA: "JRO"},
				{Code: "ARK", Name: "Arusha Airport", IATA: "ARK"},
				{Code: "DAR", Name: "Dar es Salaam", IATA: "DAR"},
			}, nil
		},
	}
}

func TestSearchDestinationsFound(t *testing.T) {
	r := newRegistry(t, catalogClient())
	res := execute(t, r, "t1", NameSearchDestinations, map[string]any{"query": "arusha"})
	if res.IsError {
		t.Fatalf("unexpected error result: %s", res.Content)
	}
	body := decode(t, res)
	if body["found"] != true || body["code"] != "ARK" || body["name"] != "Arusha Airport" {
		t.Errorf("unexpected result: %v", body)
	}
}

func TestSearchDestinationsSuggestions(t *testing.T) {
	r := newRegistry(t, catalogClient())
	res := execute(t, r, "t1", NameSearchDestinations, map[string]any{"query": "xqwvk"})
	body := decode(t, res)
	if body["found"] != false {
		t.Fatalf("found = %v, want false", body["found"])
	}
	if body["query"] != "xqwvk" {
		t.Errorf("query not echoed: %v", body)
	}
	if _, ok := body["similar_destinations"]; !ok {
		t.Errorf("no suggestions field in result: %v", body)
	}
}

func TestSearchDestinationsRemoteFailure(t *testing.T) {
	client := &mock.Client{
		DestinationsFn: func(ctx context.Context) ([]reservation.Destination, error) {
			return nil, &reservation.RemoteError{Op: "getDestinations", Err: errors.New("boom")}
		},
	}
	r := newRegistry(t, client)
	res := execute(t, r, "t1", NameSearchDestinations, map[string]any{"query": "arusha"})
	if !res.IsError {
		t.Fatal("remote failure not marked as error result")
	}
	body := decode(t, res)
	if body["found"] != false {
		t.Errorf("found = %v, want false", body["found"])
	}
}

func TestCheckAvailabilityValidation(t *testing.T) {
	r := newRegistry(t, &mock.Client{})

	res := execute(t, r, "t1", NameCheckAvailability, map[string]any{
		"from_code": "JRO", "to_code": "DAR", "travel_date": "tomorrow", "adults": 0,
	})
	if !res.IsError || !strings.Contains(res.Content, "adult") {
		t.Errorf("adults=0 not rejected: %s", res.Content)
	}

	res = execute(t, r, "t1", NameCheckAvailability, map[string]any{
		"from_code": "JRO", "to_code": "DAR", "travel_date": "not a date", "adults": 1,
	})
	if !res.IsError || !strings.Contains(res.Content, "future date") {
		t.Errorf("unparsable date not rejected: %s", res.Content)
	}
}

func TestCheckAvailabilityZeroCountShortCircuits(t *testing.T) {
	client := &mock.Client{
		AvailabilityFn: func(ctx context.Context, origin, destination, start, end string) (int, error) {
			if start != "2026/07/16" || end != "2026/07/23" {
				t.Errorf("window = %s..%s", start, end)
			}
			return 0, nil
		},
	}
	r := newRegistry(t, client)
	res := execute(t, r, "t1", NameCheckAvailability, map[string]any{
		"from_code": "JRO", "to_code": "DAR", "travel_date": "tomorrow", "adults": 2,
	})
	if !res.IsError || !strings.Contains(res.Content, "No flights available") {
		t.Fatalf("zero availability not surfaced: %s", res.Content)
	}
	for _, call := range client.Calls() {
		if call == "PricedItineraries" {
			t.Fatal("itinerary fetch attempted despite zero availability")
		}
	}
}

func itineraries() []reservation.Itinerary {
	classes := map[string]reservation.FareOption{
		"Y": {FareID: 1, Fare: reservation.Fare{AdultFare: "180.00", Tax: "20.00"}, FreeSeats: "5"},
		"W": {FareID: 2, Fare: reservation.Fare{AdultFare: "120.00", Tax: "18.00"}, FreeSeats: "9"},
	}
	return []reservation.Itinerary{
		{Direction: "outbound", FlightID: 101, FlightCode: "PW431", Number: "431",
			STD: "2026-07-16T08:30:00", STA: "2026-07-16 09:45:00", Classes: classes},
		{Direction: "inbound", FlightID: 202, FlightCode: "PW432", Number: "432",
			STD: "2026-07-20T16:00:00", STA: "2026-07-20T17:15:00", Via: "ZNZ", Classes: classes},
	}
}

func TestCheckAvailabilityBuildsFlightResults(t *testing.T) {
	client := &mock.Client{
		AvailabilityFn: func(ctx context.Context, origin, destination, start, end string) (int, error) {
			return 4, nil
		},
		PricedItinerariesFn: func(ctx context.Context, q reservation.ItineraryQuery) ([]reservation.Itinerary, error) {
			if q.ReturnDate != "2026/07/20" {
				t.Errorf("return date = %q", q.ReturnDate)
			}
			return itineraries(), nil
		},
	}
	r := newRegistry(t, client)
	res := execute(t, r, "t1", NameCheckAvailability, map[string]any{
		"from_code": "JRO", "to_code": "DAR", "travel_date": "tomorrow",
		"adults": 2, "round_trip": true, "return_date": "2026/07/20",
	})
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.Content)
	}

	body := decode(t, res)
	if body["type"] != types.PayloadFlightResults {
		t.Errorf("type = %v", body["type"])
	}
	pctx := body["context"].(map[string]any)
	if pctx["triptype"] != "RT" || pctx["adults"] != float64(2) {
		t.Errorf("context = %v", pctx)
	}
	if pctx["departure_date"] != "2026/07/16" {
		t.Errorf("departure_date = %v", pctx["departure_date"])
	}

	data := body["data"].([]any)
	if len(data) != 2 {
		t.Fatalf("got %d itineraries, want 2", len(data))
	}
	first := data[0].(map[string]any)
	if first["direction"] != "Outbound" || first["flight_code"] != "PW431" {
		t.Errorf("first itinerary = %v", first)
	}
	if first["price"] != "120.00" {
		t.Errorf("price = %v, want cheapest fare 120.00", first["price"])
	}
	if first["departure_time"] != "08:30" || first["arrival_time"] != "09:45" {
		t.Errorf("times = %v / %v", first["departure_time"], first["arrival_time"])
	}
	second := data[1].(map[string]any)
	if second["direction"] != "Return" || second["via"] != "ZNZ" {
		t.Errorf("second itinerary = %v", second)
	}
}

func TestCheapestClassTieBreakIsStable(t *testing.T) {
	classes := map[string]reservation.FareOption{
		"Y": {FareID: 300, Fare: reservation.Fare{AdultFare: "150.00"}},
		"B": {FareID: 200, Fare: reservation.Fare{AdultFare: "150.00"}},
		"Q": {FareID: 100, Fare: reservation.Fare{AdultFare: "150.00"}},
	}
	for i := 0; i < 20; i++ {
		got, ok := cheapestClass(classes)
		if !ok {
			t.Fatal("expected a fare class")
		}
		if got.FareID != 200 {
			t.Fatalf("equal fares must resolve to class B (fare id 200), got %d", got.FareID)
		}
	}
}

func TestCheapestClassSkipsUnparsableFares(t *testing.T) {
	classes := map[string]reservation.FareOption{
		"A": {FareID: 1, Fare: reservation.Fare{AdultFare: "not-a-number"}},
		"C": {FareID: 2, Fare: reservation.Fare{AdultFare: "99.50"}},
	}
	got, ok := cheapestClass(classes)
	if !ok || got.FareID != 2 {
		t.Fatalf("want fare id 2, got %+v ok=%v", got, ok)
	}

	none := map[string]reservation.FareOption{
		"A": {FareID: 1, Fare: reservation.Fare{AdultFare: "bogus"}},
	}
	if _, ok := cheapestClass(none); ok {
		t.Fatal("expected ok=false when no fare is parsable")
	}
}

func TestBookingContextGuard(t *testing.T) {
	client := &mock.Client{
		AncillariesFn: func(ctx context.Context, bookingID, flightID int64) ([]reservation.AncillaryItem, error) {
			return []reservation.AncillaryItem{{ItemID: 11, Name: "Extra 20kg", Price: "25.00", Currency: "USD"}}, nil
		},
	}
	r := newRegistry(t, client)

	args := map[string]any{"booking_id": 9001, "flight_id": 101}
	res := execute(t, r, "t1", NameCheckAncillaries, args)
	if !res.IsError || !strings.Contains(res.Content, "no booking") {
		t.Fatalf("guard did not reject: %s", res.Content)
	}
	if len(client.Calls()) != 0 {
		t.Fatal("remote call made despite missing booking context")
	}

	r.bookings.Set("t1", BookingContext{BookingID: 9001, FlightID: 101})
	res = execute(t, r, "t1", NameCheckAncillaries, args)
	if res.IsError {
		t.Fatalf("guard rejected after booking was recorded: %s", res.Content)
	}
	body := decode(t, res)
	if body["type"] != types.PayloadAncillaryResults || body["available"] != true {
		t.Errorf("unexpected result: %v", body)
	}

	// The guard is per-thread.
	res = execute(t, r, "t2", NameCheckAncillaries, args)
	if !res.IsError {
		t.Fatal("booking context leaked across threads")
	}
}

func TestCheckAncillariesEmpty(t *testing.T) {
	r := newRegistry(t, &mock.Client{})
	r.bookings.Set("t1", BookingContext{BookingID: 1, FlightID: 2})

	res := execute(t, r, "t1", NameCheckAncillaries, map[string]any{"booking_id": 1, "flight_id": 2})
	body := decode(t, res)
	if body["available"] != false || body["available_count"] != float64(0) {
		t.Errorf("unexpected result: %v", body)
	}
}

func TestConfirmBookingValidation(t *testing.T) {
	client := &mock.Client{}
	r := newRegistry(t, client)
	r.bookings.Set("t1", BookingContext{BookingID: 9001, FlightID: 101})

	res := execute(t, r, "t1", NameConfirmBooking, map[string]any{
		"booking_id": 9001, "firstname": "Asha", "lastname": "", "birthdate": "1990-05-01",
		"phone": "", "email": "asha@example.com",
	})
	if !res.IsError {
		t.Fatal("missing fields not rejected")
	}
	if !strings.Contains(res.Content, "lastname") || !strings.Contains(res.Content, "phone") {
		t.Errorf("missing fields not named: %s", res.Content)
	}
	if len(client.Calls()) != 0 {
		t.Error("remote confirmation attempted with missing fields")
	}
}

func TestConfirmBookingNormalizesBirthdate(t *testing.T) {
	var got reservation.Passenger
	client := &mock.Client{
		ConfirmBookingFn: func(ctx context.Context, bookingID int64, p reservation.Passenger) (json.RawMessage, error) {
			if bookingID != 9001 {
				t.Errorf("bookingID = %d", bookingID)
			}
			got = p
			return json.RawMessage(`{"aerocrs":{"success":true}}`), nil
		},
	}
	r := newRegistry(t, client)
	r.bookings.Set("t1", BookingContext{BookingID: 9001, FlightID: 101})

	res := execute(t, r, "t1", NameConfirmBooking, map[string]any{
		"booking_id": 9001, "firstname": "Asha", "lastname": "Mushi",
		"birthdate": "1990-05-01", "phone": "+255700000000", "email": "asha@example.com",
	})
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.Content)
	}
	if got.Birthdate != "1990/05/01" {
		t.Errorf("birthdate = %q, want 1990/05/01", got.Birthdate)
	}
	if !strings.Contains(res.Content, "success") {
		t.Errorf("vendor response not passed through: %s", res.Content)
	}
}
