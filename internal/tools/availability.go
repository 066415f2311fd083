package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/aerochat/aerochat/internal/normalize"
	"github.com/aerochat/aerochat/internal/reservation"
	"github.com/aerochat/aerochat/pkg/types"
)

// availabilityWindowDays is the width of the date window probed before
// fetching priced itineraries.
const availabilityWindowDays = 7

var checkAvailabilityDef = types.ToolDefinition{
	Name: NameCheckAvailability,
	Description: "Check if flights are available and fetch flight options for a given route and date. " +
		"Call this once you have confirmed: from city code, to city code, date, passengers, and trip type.",
	Parameters: objectSchema(map[string]any{
		"from_code":   prop("string", `Departure IATA code (e.g. "JRO")`),
		"to_code":     prop("string", `Arrival IATA code (e.g. "DAR")`),
		"travel_date": prop("string", "Departure date in YYYY/MM/DD format"),
		"adults":      prop("integer", "Number of adult passengers (>=1)"),
		"children":    prop("integer", "Number of child passengers"),
		"infants":     prop("integer", "Number of infant passengers"),
		"round_trip":  prop("boolean", "True if a return flight is needed"),
		"return_date": prop("string", "Return date in YYYY/MM/DD if round_trip is true"),
	}, "from_code", "to_code", "travel_date", "adults"),
}

type checkAvailabilityArgs struct {
	FromCode   string `json:"from_code"`
	ToCode     string `json:"to_code"`
	TravelDate string `json:"travel_date"`
	Adults     int    `json:"adults"`
	Children   int    `json:"children"`
	Infants    int    `json:"infants"`
	RoundTrip  bool   `json:"round_trip"`
	ReturnDate string `json:"return_date"`
}

// itineraryView is one flight option as rendered into the flight_results
// payload. Classes carries the full fare table for the UI's fare picker;
// the window builder strips it before the history is resubmitted to the
// engine.
type itineraryView struct {
	Direction       string                            `json:"direction"`
	FlightID        int64                             `json:"flight_id"`
	FlightCode      string                            `json:"flight_code"`
	FlightNumber    string                            `json:"flight_number"`
	OriginCode      string                            `json:"origin_code"`
	DestinationCode string                            `json:"destination_code"`
	DepartureTime   string                            `json:"departure_time"`
	ArrivalTime     string                            `json:"arrival_time"`
	Via             *string                           `json:"via"`
	Price           json.Number                       `json:"price"`
	Tax             json.Number                       `json:"tax"`
	SeatsAvailable  json.Number                       `json:"seats_available"`
	Classes         map[string]reservation.FareOption `json:"classes"`
}

func (r *Registry) checkAvailability(ctx context.Context, threadID string, raw json.RawMessage) Result {
	var a checkAvailabilityArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return errorResult("invalid arguments: %v", err)
	}
	if a.FromCode == "" || a.ToCode == "" {
		return errorResult("both from_code and to_code are required")
	}
	if a.Adults < 1 {
		return errorResult("at least one adult passenger is required")
	}

	depDate, outcome := normalize.Date(a.TravelDate, r.now(), false)
	if outcome != normalize.DateOK {
		return errorResult("Departure date is invalid or in the past. Please provide a future date.")
	}
	endDate, err := normalize.AddDays(depDate, availabilityWindowDays)
	if err != nil {
		return errorResult("Departure date is invalid or in the past. Please provide a future date.")
	}

	count, err := r.client.Availability(ctx, a.FromCode, a.ToCode, depDate, endDate)
	if err != nil {
		r.recordRemoteError(ctx, err)
		return errorResult("Availability check failed: %v", err)
	}
	if count == 0 {
		return errorResult("No flights available from %s to %s around %s. Try different dates.",
			a.FromCode, a.ToCode, depDate)
	}

	q := reservation.ItineraryQuery{
		Origin:      a.FromCode,
		Destination: a.ToCode,
		Date:        depDate,
		Adults:      a.Adults,
		Children:    a.Children,
		Infants:     a.Infants,
	}
	if a.RoundTrip && a.ReturnDate != "" {
		if ret, out := normalize.Date(a.ReturnDate, r.now(), false); out == normalize.DateOK {
			q.ReturnDate = ret
		}
	}

	itineraries, err := r.client.PricedItineraries(ctx, q)
	if err != nil {
		r.recordRemoteError(ctx, err)
		return errorResult("Could not retrieve flight details: %v", err)
	}

	var data []itineraryView
	appendViews := func(directionTag, label string) {
		for _, it := range itineraries {
			if it.Direction != directionTag {
				continue
			}
			cheapest, ok := cheapestClass(it.Classes)
			if !ok {
				continue
			}
			var via *string
			if it.Via != "" {
				v := it.Via
				via = &v
			}
			data = append(data, itineraryView{
				Direction:       label,
				FlightID:        it.FlightID,
				FlightCode:      it.FlightCode,
				FlightNumber:    it.Number.String(),
				OriginCode:      a.FromCode,
				DestinationCode: a.ToCode,
				DepartureTime:   normalize.ClockTime(it.STD),
				ArrivalTime:     normalize.ClockTime(it.STA),
				Via:             via,
				Price:           cheapest.Fare.AdultFare,
				Tax:             cheapest.Fare.Tax,
				SeatsAvailable:  cheapest.FreeSeats,
				Classes:         it.Classes,
			})
		}
	}
	appendViews("outbound", "Outbound")
	appendViews("inbound", "Return")

	tripType := "OW"
	if a.RoundTrip {
		tripType = "RT"
	}
	payloadCtx := map[string]any{
		"from_code":      a.FromCode,
		"to_code":        a.ToCode,
		"adults":         a.Adults,
		"child":          a.Children,
		"infant":         a.Infants,
		"triptype":       tripType,
		"departure_date": depDate,
	}
	if q.ReturnDate != "" {
		payloadCtx["return_date"] = q.ReturnDate
	} else {
		payloadCtx["return_date"] = nil
	}

	return jsonResult(map[string]any{
		"type":       types.PayloadFlightResults,
		"header":     fmt.Sprintf("✈️  %s → %s", a.FromCode, a.ToCode),
		"sub_header": subHeader(a.Adults, a.Children, a.Infants),
		"context":    payloadCtx,
		"data":       data,
	})
}

// cheapestClass picks the fare class with the lowest numeric adult fare.
// Classes with unparsable fares are skipped; ok is false when no class has
// a usable fare. Keys are visited in sorted order so equal fares always
// resolve to the same class.
func cheapestClass(classes map[string]reservation.FareOption) (reservation.FareOption, bool) {
	names := make([]string, 0, len(classes))
	for name := range classes {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		best     reservation.FareOption
		bestFare float64
		found    bool
	)
	for _, name := range names {
		opt := classes[name]
		fare, err := opt.Fare.AdultFare.Float64()
		if err != nil {
			continue
		}
		if !found || fare < bestFare {
			best, bestFare, found = opt, fare, true
		}
	}
	return best, found
}

func subHeader(adults, children, infants int) string {
	s := fmt.Sprintf("👥 %d Adult(s)", adults)
	if children > 0 {
		s += fmt.Sprintf(", %d Child(ren)", children)
	}
	if infants > 0 {
		s += fmt.Sprintf(", %d Infant(s)", infants)
	}
	return s
}
