package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aerochat/aerochat/internal/convo"
	"github.com/aerochat/aerochat/internal/orchestrator"
	"github.com/aerochat/aerochat/internal/reservation"
	resmock "github.com/aerochat/aerochat/internal/reservation/mock"
	"github.com/aerochat/aerochat/internal/tools"
	"github.com/aerochat/aerochat/pkg/engine"
	engmock "github.com/aerochat/aerochat/pkg/engine/mock"
	"github.com/aerochat/aerochat/pkg/types"
)

type fixture struct {
	server   *Server
	store    *convo.MemStore
	bookings *tools.BookingContexts
	engine   *engmock.Provider
	client   *resmock.Client
}

func newFixture(t *testing.T, eng *engmock.Provider, client *resmock.Client) *fixture {
	t.Helper()
	store := convo.NewMemStore()
	bookings := tools.NewBookingContexts()
	now := func() time.Time { return time.Date(2026, time.July, 15, 10, 0, 0, 0, time.UTC) }

	registry := tools.NewRegistry(tools.Config{Client: client, Bookings: bookings, Now: now})
	orch := orchestrator.New(orchestrator.Config{
		Engine: eng,
		Store:  store,
		Tools:  registry,
		Now:    now,
	})
	srv := New(Config{
		Orchestrator:   orch,
		Reservation:    client,
		Bookings:       bookings,
		AllowedOrigins: []string{"*"},
	})
	return &fixture{server: srv, store: store, bookings: bookings, engine: eng, client: client}
}

func (f *fixture) post(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
	}
	return m
}

func TestChatSimpleReply(t *testing.T) {
	f := newFixture(t,
		&engmock.Provider{Actions: []*engine.Action{{Content: "Hi! Where to?"}}},
		&resmock.Client{})

	rec := f.post(t, "/chat", `{"message":"hello"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["response"] != "Hi! Where to?" {
		t.Errorf("response = %v", body["response"])
	}
	if body["thread_id"] != defaultThreadID {
		t.Errorf("thread_id = %v", body["thread_id"])
	}
	if _, has := body["flight_results"]; has {
		t.Error("flight_results present on a plain reply")
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	f := newFixture(t, &engmock.Provider{}, &resmock.Client{})
	rec := f.post(t, "/chat", `{"message":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestChatBookingTriggerBecomesSystemMessage(t *testing.T) {
	f := newFixture(t,
		&engmock.Provider{Actions: []*engine.Action{{Content: "Checking extras!"}}},
		&resmock.Client{})

	rec := f.post(t, "/chat", `{"message":"__booking__: Booking created. BookingID: 9001, FlightID: 101","thread_id":"t1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	hist, _ := f.store.History(context.Background(), "t1")
	if len(hist) == 0 || hist[0].Role != types.RoleSystem {
		t.Fatalf("trigger not injected as system message: %+v", hist)
	}
	if !strings.Contains(hist[0].Content, "BookingID: 9001") {
		t.Errorf("trigger content = %q", hist[0].Content)
	}
	if strings.HasPrefix(hist[0].Content, bookingTriggerPrefix) {
		t.Error("trigger prefix not stripped")
	}
}

func TestChatTurnFailure(t *testing.T) {
	f := newFixture(t, &engmock.Provider{Err: errors.New("engine down")}, &resmock.Client{})
	rec := f.post(t, "/chat", `{"message":"hello"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["detail"] == "" {
		t.Error("no error detail")
	}
}

func bookingStub() *resmock.Client {
	return &resmock.Client{
		CreateBookingFn: func(ctx context.Context, req reservation.BookingRequest) (*reservation.Booking, error) {
			return &reservation.Booking{
				ID:  9001,
				PNR: "ABC123",
				Raw: json.RawMessage(`{"aerocrs":{"booking":{"bookingid":9001,"pnrref":"ABC123"}}}`),
			}, nil
		},
	}
}

func TestBookFlight(t *testing.T) {
	f := newFixture(t, &engmock.Provider{}, bookingStub())

	rec := f.post(t, "/book-flight", `{"flight_id":101,"fare_id":7,"from_code":"JRO","to_code":"DAR","thread_id":"t1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	meta, ok := body["_meta"].(map[string]any)
	if !ok {
		t.Fatalf("no _meta in response: %v", body)
	}
	if meta["booking_id"] != float64(9001) || meta["pnr"] != "ABC123" || meta["flight_id"] != float64(101) {
		t.Errorf("meta = %v", meta)
	}
	if _, hasVendor := body["aerocrs"]; !hasVendor {
		t.Error("vendor response not passed through")
	}

	bc, ok := f.bookings.Get("t1")
	if !ok || bc.BookingID != 9001 || bc.FlightID != 101 {
		t.Errorf("booking context not recorded: %+v", bc)
	}
}

func TestBookFlightDefaults(t *testing.T) {
	var got reservation.BookingRequest
	client := &resmock.Client{
		CreateBookingFn: func(ctx context.Context, req reservation.BookingRequest) (*reservation.Booking, error) {
			got = req
			return &reservation.Booking{ID: 1, Raw: json.RawMessage(`{}`)}, nil
		},
	}
	f := newFixture(t, &engmock.Provider{}, client)

	rec := f.post(t, "/book-flight", `{"flight_id":101,"fare_id":7,"from_code":"JRO","to_code":"DAR"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got.TripType != "OW" || got.Adults != 1 {
		t.Errorf("defaults not applied: %+v", got)
	}
	if _, ok := f.bookings.Get(defaultThreadID); !ok {
		t.Error("default thread booking context missing")
	}
}

func TestBookFlightRejectedFare(t *testing.T) {
	client := &resmock.Client{
		CreateBookingFn: func(ctx context.Context, req reservation.BookingRequest) (*reservation.Booking, error) {
			return nil, &reservation.RemoteError{
				Op:  "createBooking",
				Err: errors.New("flight rejected: fare no longer available"),
			}
		},
	}
	f := newFixture(t, &engmock.Provider{}, client)

	rec := f.post(t, "/book-flight", `{"flight_id":101,"fare_id":7}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestLogFlight(t *testing.T) {
	f := newFixture(t, &engmock.Provider{}, &resmock.Client{})
	rec := f.post(t, "/log-flight", `{"flight_code":"PW431"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "logged" || body["code"] != "PW431" {
		t.Errorf("body = %v", body)
	}
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, &engmock.Provider{}, &resmock.Client{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
