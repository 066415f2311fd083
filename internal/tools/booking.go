package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/aerochat/aerochat/internal/normalize"
	"github.com/aerochat/aerochat/internal/reservation"
	"github.com/aerochat/aerochat/pkg/types"
)

var confirmBookingDef = types.ToolDefinition{
	Name: NameConfirmBooking,
	Description: "Finalize a booking with passenger details. " +
		"ONLY call when you have ALL of: firstname, lastname, birthdate, phone, and email. " +
		"If any detail is missing, ask the user first — do NOT call with placeholder values. " +
		"Birthdate must be in YYYY/MM/DD format.",
	Parameters: objectSchema(map[string]any{
		"booking_id": prop("integer", "Booking ID from the system message"),
		"firstname":  prop("string", "Passenger's first name"),
		"lastname":   prop("string", "Passenger's last name"),
		"birthdate":  prop("string", "Date of birth in YYYY/MM/DD"),
		"phone":      prop("string", "Contact phone number"),
		"email":      prop("string", "Contact email address"),
	}, "booking_id", "firstname", "lastname", "birthdate", "phone", "email"),
}

type confirmBookingArgs struct {
	BookingID int64  `json:"booking_id"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Birthdate string `json:"birthdate"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

func (r *Registry) confirmBooking(ctx context.Context, threadID string, raw json.RawMessage) Result {
	var a confirmBookingArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return errorResult("invalid arguments: %v", err)
	}

	var missing []string
	for _, f := range []struct{ name, val string }{
		{"firstname", a.FirstName},
		{"lastname", a.LastName},
		{"birthdate", a.Birthdate},
		{"phone", a.Phone},
		{"email", a.Email},
	} {
		if strings.TrimSpace(f.val) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return errorResult("missing passenger details: %s — ask the user before confirming", strings.Join(missing, ", "))
	}

	// Birthdates are in the past by nature; fall back to the raw input when
	// normalization cannot make sense of it.
	birthdate := a.Birthdate
	if bd, ok := normalize.Birthdate(a.Birthdate, r.now()); ok {
		birthdate = bd
	}

	resp, err := r.client.ConfirmBooking(ctx, a.BookingID, reservation.Passenger{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Birthdate: birthdate,
		Phone:     a.Phone,
		Email:     a.Email,
	})
	if err != nil {
		r.recordRemoteError(ctx, err)
		return errorResult("booking confirmation failed: %v", err)
	}
	return Result{Content: string(resp)}
}
