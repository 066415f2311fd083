package reservation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/aerochat/aerochat/internal/resilience"
)

// DefaultBaseURL is the production endpoint of the reservation system.
const DefaultBaseURL = "https://api.aerocrs.com/v5"

// Passenger document defaults sent with every confirmation. The booking
// flow does not collect travel documents, so the agent account's standing
// values are used. Note "paxnationailty" is the vendor's own spelling.
const (
	defaultPaxTitle     = "Mr."
	defaultNationality  = "US"
	defaultDocType      = "PP"
	defaultDocNumber    = "9919239123"
	defaultDocIssuer    = "US"
	defaultDocExpiry    = "2028/12/31"
	defaultAgentConfirm = "apiconnector"
)

// HTTPClient is the production [Client] implementation talking to the
// reservation system over HTTPS. All calls go through an optional circuit
// breaker so a dead backend fails fast instead of piling up timeouts.
type HTTPClient struct {
	baseURL      string
	authID       string
	authPassword string
	httpc        *http.Client
	breaker      *resilience.Breaker
}

var _ Client = (*HTTPClient)(nil)

// Option configures an [HTTPClient].
type Option func(*HTTPClient)

// WithBaseURL overrides the API endpoint, mainly for tests and staging.
func WithBaseURL(u string) Option {
	return func(c *HTTPClient) { c.baseURL = u }
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.httpc = hc }
}

// WithTimeout sets the per-request timeout on the underlying HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.httpc.Timeout = d }
}

// WithBreaker routes all calls through the given circuit breaker.
func WithBreaker(b *resilience.Breaker) Option {
	return func(c *HTTPClient) { c.breaker = b }
}

// NewHTTPClient creates a client authenticating with the given agency
// credentials.
func NewHTTPClient(authID, authPassword string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:      DefaultBaseURL,
		authID:       authID,
		authPassword: authPassword,
		httpc:        &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope wraps request parameters in the vendor's standard body shape:
// {"aerocrs": {"parms": {...}}}.
func envelope(parms any) any {
	return map[string]any{"aerocrs": map[string]any{"parms": parms}}
}

// do performs one API call. GET requests send no body; POST requests send
// the JSON-encoded body. The response body is decoded into out when out is
// non-nil. Any failure is wrapped in a [RemoteError] carrying op.
func (c *HTTPClient) do(ctx context.Context, op, method, path string, body, out any) error {
	call := func() error {
		var reader io.Reader
		if body != nil {
			buf, err := json.Marshal(body)
			if err != nil {
				return fmt.Errorf("encode request: %w", err)
			}
			reader = bytes.NewReader(buf)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("auth_id", c.authID)
		req.Header.Set("auth_password", c.authPassword)

		resp, err := c.httpc.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("unexpected status %s: %s", resp.Status, snippet)
		}
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Execute(call)
	} else {
		err = call()
	}
	if err != nil {
		return &RemoteError{Op: op, Err: err}
	}
	return nil
}

func (c *HTTPClient) Destinations(ctx context.Context) ([]Destination, error) {
	var out struct {
		AeroCRS struct {
			Destinations struct {
				Destination []Destination `json:"destination"`
			} `json:"destinations"`
		} `json:"aerocrs"`
	}
	if err := c.do(ctx, "getDestinations", http.MethodGet, "/getDestinations", nil, &out); err != nil {
		return nil, err
	}
	return out.AeroCRS.Destinations.Destination, nil
}

func (c *HTTPClient) Availability(ctx context.Context, origin, destination, startDate, endDate string) (int, error) {
	parms := map[string]any{
		"dates":        map[string]string{"start": startDate, "end": endDate},
		"destinations": map[string]string{"from": origin, "to": destination},
	}
	var out struct {
		AeroCRS struct {
			Flights struct {
				Count json.Number `json:"count"`
			} `json:"flights"`
		} `json:"aerocrs"`
	}
	if err := c.do(ctx, "getAvailability", http.MethodPost, "/getAvailability", envelope(parms), &out); err != nil {
		return 0, err
	}
	n, err := out.AeroCRS.Flights.Count.Int64()
	if err != nil {
		return 0, &RemoteError{Op: "getAvailability", Err: fmt.Errorf("bad flight count %q: %w", out.AeroCRS.Flights.Count, err)}
	}
	return int(n), nil
}

func (c *HTTPClient) PricedItineraries(ctx context.Context, q ItineraryQuery) ([]Itinerary, error) {
	params := url.Values{}
	params.Set("from", q.Origin)
	params.Set("to", q.Destination)
	params.Set("start", q.Date)
	params.Set("adults", strconv.Itoa(q.Adults))
	params.Set("child", strconv.Itoa(q.Children))
	params.Set("infant", strconv.Itoa(q.Infants))
	if q.ReturnDate != "" {
		params.Set("end", q.ReturnDate)
	}

	var out struct {
		AeroCRS struct {
			Flights struct {
				Flight []Itinerary `json:"flight"`
			} `json:"flights"`
		} `json:"aerocrs"`
	}
	path := "/getDeepLink?" + params.Encode()
	if err := c.do(ctx, "getDeepLink", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.AeroCRS.Flights.Flight, nil
}

// rawAncillary mirrors the vendor's nested ancillary structure: a node is
// either a priced item itself or a group whose children carry the prices.
type rawAncillary struct {
	ItemID   json.Number    `json:"itemid"`
	ID       json.Number    `json:"id"`
	Name     string         `json:"name"`
	Category string         `json:"category"`
	Type     string         `json:"type"`
	Price    json.Number    `json:"price"`
	Currency string         `json:"currency"`
	Items    []rawAncillary `json:"items"`
	SubItems []rawAncillary `json:"subitems"`
}

func (c *HTTPClient) Ancillaries(ctx context.Context, bookingID, flightID int64) ([]AncillaryItem, error) {
	parms := map[string]any{
		"bookingid": bookingID,
		"flightid":  flightID,
		"currency":  "USD",
	}
	var out struct {
		AeroCRS struct {
			Ancillaries []rawAncillary `json:"ancillaries"`
		} `json:"aerocrs"`
	}
	if err := c.do(ctx, "getAncillaries", http.MethodPost, "/getAncillaries", envelope(parms), &out); err != nil {
		return nil, err
	}
	return flattenAncillaries(out.AeroCRS.Ancillaries, "", ""), nil
}

// flattenAncillaries turns the nested group structure into a flat item
// list. Children inherit the parent group's category and currency when
// they carry none of their own.
func flattenAncillaries(nodes []rawAncillary, category, currency string) []AncillaryItem {
	var items []AncillaryItem
	for _, n := range nodes {
		cat := n.Category
		if cat == "" {
			cat = n.Type
		}
		if cat == "" {
			cat = category
		}
		cur := n.Currency
		if cur == "" {
			cur = currency
		}

		children := n.Items
		if len(children) == 0 {
			children = n.SubItems
		}
		if len(children) > 0 {
			// Group node: the group name becomes the category fallback.
			childCat := cat
			if childCat == "" {
				childCat = n.Name
			}
			items = append(items, flattenAncillaries(children, childCat, cur)...)
			continue
		}

		if n.Price.String() == "" {
			continue
		}
		id := n.ItemID
		if id.String() == "" {
			id = n.ID
		}
		itemID, err := id.Int64()
		if err != nil {
			continue
		}
		items = append(items, AncillaryItem{
			ItemID:   itemID,
			Name:     n.Name,
			Category: cat,
			Price:    n.Price,
			Currency: cur,
		})
	}
	return items
}

func (c *HTTPClient) CreateAncillary(ctx context.Context, bookingID, flightID, itemID int64, paxIndex int) (json.RawMessage, error) {
	parms := map[string]any{
		"ancillaries": map[string]any{
			"ancillary": []map[string]any{{
				"paxnum":    paxIndex,
				"itemid":    itemID,
				"bookingid": bookingID,
				"flightid":  flightID,
			}},
		},
	}
	var raw json.RawMessage
	if err := c.do(ctx, "createAncillary", http.MethodPost, "/createAncillary", envelope(parms), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *HTTPClient) CreateBooking(ctx context.Context, req BookingRequest) (*Booking, error) {
	parms := map[string]any{
		"triptype": req.TripType,
		"adults":   req.Adults,
		"child":    req.Children,
		"infant":   req.Infants,
		"bookflight": []map[string]any{{
			"fromcode": req.Origin,
			"tocode":   req.Destination,
			"flightid": req.FlightID,
			"fareid":   req.FareID,
		}},
	}
	var raw json.RawMessage
	if err := c.do(ctx, "createBooking", http.MethodPost, "/createBooking", envelope(parms), &raw); err != nil {
		return nil, err
	}

	// The vendor reports per-flight failures inside a 200 response.
	var out struct {
		AeroCRS struct {
			Booking struct {
				BookingID json.Number `json:"bookingid"`
				PNRRef    string      `json:"pnrref"`
				PNR       string      `json:"PNR"`
				Items     struct {
					Flight []struct {
						Error string `json:"error"`
					} `json:"flight"`
				} `json:"items"`
			} `json:"booking"`
		} `json:"aerocrs"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &RemoteError{Op: "createBooking", Err: fmt.Errorf("decode response: %w", err)}
	}
	for _, f := range out.AeroCRS.Booking.Items.Flight {
		if f.Error != "" {
			return nil, &RemoteError{Op: "createBooking", Err: fmt.Errorf("flight rejected: %s", f.Error)}
		}
	}

	id, _ := out.AeroCRS.Booking.BookingID.Int64()
	pnr := out.AeroCRS.Booking.PNRRef
	if pnr == "" {
		pnr = out.AeroCRS.Booking.PNR
	}
	return &Booking{ID: id, PNR: pnr, Raw: raw}, nil
}

func (c *HTTPClient) ConfirmBooking(ctx context.Context, bookingID int64, p Passenger) (json.RawMessage, error) {
	parms := map[string]any{
		"bookingid":         bookingID,
		"agentconfirmation": defaultAgentConfirm,
		"confirmationemail": p.Email,
		"passenger": []map[string]any{{
			"paxtitle":       defaultPaxTitle,
			"firstname":      p.FirstName,
			"lastname":       p.LastName,
			"paxage":         nil,
			"paxnationailty": defaultNationality,
			"paxdoctype":     defaultDocType,
			"paxdocnumber":   defaultDocNumber,
			"paxdocissuer":   defaultDocIssuer,
			"paxdocexpiry":   defaultDocExpiry,
			"paxbirthdate":   p.Birthdate,
			"paxphone":       p.Phone,
			"paxemail":       p.Email,
		}},
	}
	var raw json.RawMessage
	if err := c.do(ctx, "confirmBooking", http.MethodPost, "/confirmBooking", envelope(parms), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
