package convo

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/aerochat/aerochat/pkg/types"
)

func flightResultsPayload(t *testing.T, n int) string {
	t.Helper()
	data := make([]map[string]any, n)
	for i := range data {
		data[i] = map[string]any{
			"direction":   "Outbound",
			"flight_code": fmt.Sprintf("PW%03d", i),
			"price":       "120.00",
			"classes":     map[string]any{"Y": map[string]any{"fare": map[string]any{"adultFare": "120.00"}}},
		}
	}
	buf, err := json.Marshal(map[string]any{
		"type": types.PayloadFlightResults,
		"data": data,
	})
	if err != nil {
		t.Fatal(err)
	}
	return string(buf)
}

func ancillaryResultsPayload(t *testing.T, n int) string {
	t.Helper()
	items := make([]map[string]any, n)
	for i := range items {
		items[i] = map[string]any{"itemId": i, "name": fmt.Sprintf("item %d", i), "price": "10.00"}
	}
	buf, err := json.Marshal(map[string]any{
		"type":      types.PayloadAncillaryResults,
		"available": true,
		"items":     items,
	})
	if err != nil {
		t.Fatal(err)
	}
	return string(buf)
}

// chat builds a well-formed alternating user/assistant history of n messages.
func chat(n int) []types.Message {
	msgs := make([]types.Message, 0, n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			msgs = append(msgs, types.UserMessage(fmt.Sprintf("user %d", i)))
		} else {
			msgs = append(msgs, types.AssistantReply(fmt.Sprintf("reply %d", i)))
		}
	}
	return msgs
}

func toolRound(callID, name, result string) []types.Message {
	return []types.Message{
		{Role: types.RoleAssistant, ToolCalls: []types.ToolCall{{ID: callID, Name: name, Arguments: "{}"}}},
		types.ToolResult(callID, result),
	}
}

func TestWindowIsCompleteSuffix(t *testing.T) {
	b := NewBuilder(BuilderConfig{})

	var hist []types.Message
	hist = append(hist, chat(20)...)
	hist = append(hist, toolRound("call_1", "search_destinations", `{"found":true}`)...)
	hist = append(hist, types.AssistantReply("found it"))
	hist = append(hist, chat(20)...)

	win := b.Window(hist)
	if len(win) == 0 || len(win) > DefaultWindowSize {
		t.Fatalf("window length = %d", len(win))
	}
	if !isComplete(win) {
		t.Fatal("window violates tool-call pairing")
	}
	// Must be a true suffix of the reduced history.
	reduced := b.Slim(hist)
	tail := reduced[len(reduced)-len(win):]
	for i := range win {
		if win[i].Content != tail[i].Content || win[i].Role != tail[i].Role {
			t.Fatalf("window[%d] is not the history suffix", i)
		}
	}
}

func TestWindowShortHistoryIsIdentity(t *testing.T) {
	b := NewBuilder(BuilderConfig{})
	hist := chat(5)

	win := b.Window(hist)
	if len(win) != len(hist) {
		t.Fatalf("window length = %d, want %d", len(win), len(hist))
	}
	for i := range win {
		if win[i].Content != hist[i].Content {
			t.Errorf("window[%d] differs from history", i)
		}
	}
}

func TestWindowSkipsLeadingOrphanToolResult(t *testing.T) {
	b := NewBuilder(BuilderConfig{WindowSize: 10})

	var hist []types.Message
	hist = append(hist, chat(4)...)
	hist = append(hist, toolRound("call_9", "check_flight_availability", `{"type":"flight_results","data":[]}`)...)
	hist = append(hist, chat(9)...)
	// The 10-message suffix starts at the tool result of call_9.

	win := b.Window(hist)
	if win[0].Role == types.RoleTool {
		t.Fatal("window starts with an orphaned tool result")
	}
	if !isComplete(win) {
		t.Fatal("window violates tool-call pairing")
	}
}

func TestWindowExcludesIncompleteTrailingGroup(t *testing.T) {
	b := NewBuilder(BuilderConfig{WindowSize: 10, FallbackSize: 6})

	var hist []types.Message
	hist = append(hist, chat(12)...)
	// Assistant requested two invocations but only one result was persisted.
	hist = append(hist, types.Message{Role: types.RoleAssistant, ToolCalls: []types.ToolCall{
		{ID: "call_a", Name: "search_destinations", Arguments: "{}"},
		{ID: "call_b", Name: "search_destinations", Arguments: "{}"},
	}})
	hist = append(hist, types.ToolResult("call_a", `{"found":true}`))

	win := b.Window(hist)
	if len(win) == 0 {
		t.Fatal("empty window")
	}
	if !isComplete(win) {
		t.Fatal("window violates tool-call pairing")
	}
	for _, m := range win {
		for _, tc := range m.ToolCalls {
			if tc.ID == "call_b" {
				t.Fatal("incomplete tool-call group leaked into the window")
			}
		}
	}
}

func TestSlimFlightResults(t *testing.T) {
	b := NewBuilder(BuilderConfig{})
	hist := []types.Message{
		types.UserMessage("book me a flight"),
		types.ToolResult("call_1", flightResultsPayload(t, 6)),
	}

	out := b.Slim(hist)
	if out[0].Content != "book me a flight" {
		t.Error("non-tool message modified")
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(out[1].Content), &body); err != nil {
		t.Fatalf("slimmed payload is not JSON: %v", err)
	}
	if body["_slimmed"] != true {
		t.Error("reduced payload not tagged")
	}
	data := body["data"].([]any)
	if len(data) != DefaultMaxItineraries {
		t.Fatalf("kept %d itineraries, want %d", len(data), DefaultMaxItineraries)
	}
	if _, has := data[0].(map[string]any)["classes"]; has {
		t.Error("fare classes survived slimming")
	}
	// Original history untouched.
	if strings.Contains(out[1].Content, `"classes"`) {
		t.Error("classes still present in slimmed content")
	}
	if !strings.Contains(hist[1].Content, `"classes"`) {
		t.Error("Slim mutated the input history")
	}
}

func TestSlimAncillaryResults(t *testing.T) {
	b := NewBuilder(BuilderConfig{})
	hist := []types.Message{types.ToolResult("call_2", ancillaryResultsPayload(t, 9))}

	out := b.Slim(hist)
	var body map[string]any
	if err := json.Unmarshal([]byte(out[0].Content), &body); err != nil {
		t.Fatal(err)
	}
	if body["_slimmed"] != true {
		t.Error("reduced payload not tagged")
	}
	if items := body["items"].([]any); len(items) != DefaultMaxAncillaries {
		t.Errorf("kept %d items, want %d", len(items), DefaultMaxAncillaries)
	}
}

func TestSlimLeavesSmallAndOpaquePayloadsAlone(t *testing.T) {
	b := NewBuilder(BuilderConfig{})
	small := ancillaryResultsPayload(t, 2)
	hist := []types.Message{
		types.ToolResult("call_1", small),
		types.ToolResult("call_2", `{"found":true,"code":"JRO"}`),
		types.ToolResult("call_3", "not json at all"),
	}

	out := b.Slim(hist)
	for i := range hist {
		if out[i].Content != hist[i].Content {
			t.Errorf("message %d modified: %s", i, out[i].Content)
		}
	}
}
