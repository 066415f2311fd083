package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/aerochat/aerochat/internal/reservation"
	"github.com/aerochat/aerochat/internal/tools"
	"github.com/aerochat/aerochat/pkg/types"
)

type chatRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"thread_id"`
}

type chatResponse struct {
	Response         string         `json:"response"`
	ThreadID         string         `json:"thread_id"`
	FlightResults    map[string]any `json:"flight_results,omitempty"`
	AncillaryResults map[string]any `json:"ancillary_results,omitempty"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// chat runs one conversation turn. A message starting with the booking
// trigger prefix is injected as a system message instead of a user one.
func (s *Server) chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Detail: err.Error()})
	}
	if req.Message == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Detail: "message is required"})
	}
	if req.ThreadID == "" {
		req.ThreadID = defaultThreadID
	}

	var inbound types.Message
	if rest, ok := strings.CutPrefix(req.Message, bookingTriggerPrefix); ok {
		inbound = types.SystemMessage(strings.TrimSpace(rest))
	} else {
		inbound = types.UserMessage(req.Message)
	}

	res, err := s.orch.Turn(c.Request().Context(), req.ThreadID, inbound)
	if err != nil {
		slog.Error("chat turn failed", "thread_id", req.ThreadID, "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Detail: err.Error()})
	}

	return c.JSON(http.StatusOK, chatResponse{
		Response:         res.Reply,
		ThreadID:         res.ThreadID,
		FlightResults:    res.FlightResults,
		AncillaryResults: res.AncillaryResults,
	})
}

type bookFlightRequest struct {
	FlightID int64  `json:"flight_id"`
	FareID   int64  `json:"fare_id"`
	FromCode string `json:"from_code"`
	ToCode   string `json:"to_code"`
	TripType string `json:"trip_type"`
	Adults   int    `json:"adults"`
	Child    int    `json:"child"`
	Infant   int    `json:"infant"`
	ThreadID string `json:"thread_id"`
}

// bookFlight is called when the user clicks "Book" on a flight card. It
// creates the booking out-of-band and records the booking context for the
// thread; the frontend then notifies the agent via the chat trigger so the
// ancillary and passenger flow starts.
func (s *Server) bookFlight(c echo.Context) error {
	var req bookFlightRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Detail: err.Error()})
	}
	if req.FlightID == 0 || req.FareID == 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{Detail: "flight_id and fare_id are required"})
	}
	if req.TripType == "" {
		req.TripType = "OW"
	}
	if req.Adults == 0 {
		req.Adults = 1
	}
	if req.ThreadID == "" {
		req.ThreadID = defaultThreadID
	}

	booking, err := s.client.CreateBooking(c.Request().Context(), reservation.BookingRequest{
		TripType:    req.TripType,
		Origin:      req.FromCode,
		Destination: req.ToCode,
		FlightID:    req.FlightID,
		FareID:      req.FareID,
		Adults:      req.Adults,
		Children:    req.Child,
		Infants:     req.Infant,
	})
	if err != nil {
		slog.Error("booking failed", "thread_id", req.ThreadID, "flight_id", req.FlightID, "error", err)
		var remote *reservation.RemoteError
		if errors.As(err, &remote) && strings.Contains(remote.Err.Error(), "flight rejected") {
			return c.JSON(http.StatusBadRequest, errorResponse{Detail: remote.Err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{Detail: err.Error()})
	}

	s.bookings.Set(req.ThreadID, tools.BookingContext{
		BookingID: booking.ID,
		FlightID:  req.FlightID,
		PNR:       booking.PNR,
	})
	slog.Info("booking created",
		"thread_id", req.ThreadID,
		"booking_id", booking.ID,
		"flight_id", req.FlightID,
		"pnr", booking.PNR)

	// Vendor response passed through with booking metadata attached.
	body := map[string]any{}
	if err := json.Unmarshal(booking.Raw, &body); err != nil {
		body = map[string]any{}
	}
	pnr := booking.PNR
	if pnr == "" {
		pnr = "N/A"
	}
	body["_meta"] = map[string]any{
		"booking_id": booking.ID,
		"flight_id":  req.FlightID,
		"pnr":        pnr,
	}
	return c.JSON(http.StatusOK, body)
}

type logFlightRequest struct {
	FlightCode string `json:"flight_code"`
}

// logFlight records which flight card the user clicked, for analytics.
func (s *Server) logFlight(c echo.Context) error {
	var req logFlightRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Detail: err.Error()})
	}
	slog.Info("flight card clicked", "flight_code", req.FlightCode)
	return c.JSON(http.StatusOK, map[string]string{
		"status": "logged",
		"code":   req.FlightCode,
	})
}
