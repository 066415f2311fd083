package tools

import (
	"context"
	"encoding/json"

	"github.com/aerochat/aerochat/pkg/types"
)

var checkAncillariesDef = types.ToolDefinition{
	Name: NameCheckAncillaries,
	Description: "Check available add-ons (baggage, meals, seats) for a booking. " +
		"Always call this immediately after a booking is created " +
		"(after seeing a BookingID in the conversation).",
	Parameters: objectSchema(map[string]any{
		"booking_id": prop("integer", "The booking ID from the system message"),
		"flight_id":  prop("integer", "The flight ID from the system message"),
	}, "booking_id", "flight_id"),
}

type checkAncillariesArgs struct {
	BookingID int64 `json:"booking_id"`
	FlightID  int64 `json:"flight_id"`
}

func (r *Registry) checkAncillaries(ctx context.Context, threadID string, raw json.RawMessage) Result {
	var a checkAncillariesArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return errorResult("invalid arguments: %v", err)
	}

	items, err := r.client.Ancillaries(ctx, a.BookingID, a.FlightID)
	if err != nil {
		r.recordRemoteError(ctx, err)
		return Result{
			Content: mustJSON(map[string]any{
				"type":            types.PayloadAncillaryResults,
				"available":       false,
				"available_count": 0,
				"error":           err.Error(),
			}),
			IsError: true,
		}
	}
	if len(items) == 0 {
		return jsonResult(map[string]any{
			"type":            types.PayloadAncillaryResults,
			"available":       false,
			"available_count": 0,
			"items":           []any{},
		})
	}
	return jsonResult(map[string]any{
		"type":            types.PayloadAncillaryResults,
		"available":       true,
		"available_count": len(items),
		"items":           items,
	})
}

var addAncillaryDef = types.ToolDefinition{
	Name: NameAddAncillary,
	Description: "Add an ancillary extra (baggage, meal, etc.) to a booking. " +
		"Only call if check_ancillaries returned available=true and the user " +
		"confirmed they want an extra.",
	Parameters: objectSchema(map[string]any{
		"booking_id": prop("integer", "Booking ID"),
		"flight_id":  prop("integer", "Flight ID"),
		"item_id":    prop("integer", "The item ID from check_ancillaries results"),
		"pax_num":    prop("integer", "Passenger number (default 0 = first passenger)"),
	}, "booking_id", "flight_id", "item_id"),
}

type addAncillaryArgs struct {
	BookingID int64 `json:"booking_id"`
	FlightID  int64 `json:"flight_id"`
	ItemID    int64 `json:"item_id"`
	PaxNum    int   `json:"pax_num"`
}

func (r *Registry) addAncillary(ctx context.Context, threadID string, raw json.RawMessage) Result {
	var a addAncillaryArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return errorResult("invalid arguments: %v", err)
	}

	resp, err := r.client.CreateAncillary(ctx, a.BookingID, a.FlightID, a.ItemID, a.PaxNum)
	if err != nil {
		r.recordRemoteError(ctx, err)
		return errorResult("could not add the extra: %v", err)
	}
	return Result{Content: string(resp)}
}
