// Package types defines the shared types used across all aerochat packages.
//
// These types form the lingua franca between the reasoning engine provider,
// the conversation store, the tool registry, and the orchestrator. They are
// intentionally minimal — each package defines its own domain types, but
// cross-cutting data structures live here to avoid circular imports.
package types

// Role identifies who produced a [Message]. It is the discriminant of the
// message tagged union: downstream code switches on Role rather than probing
// content.
type Role string

const (
	// RoleUser is an inbound traveller message.
	RoleUser Role = "user"

	// RoleAssistant is a message produced by the reasoning engine. It carries
	// either reply text or one or more requested tool invocations.
	RoleAssistant Role = "assistant"

	// RoleSystem is an instruction or out-of-band trigger injected by an
	// outer layer (e.g. the booking-created notification).
	RoleSystem Role = "system"

	// RoleTool is the result of exactly one tool invocation, paired to its
	// request via [Message.ToolCallID].
	RoleTool Role = "tool"
)

// IsValid reports whether r is a recognised role.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return true
	}
	return false
}

// Message is a single entry in a conversation thread's history. Messages are
// immutable once appended; the window builder copies before slimming.
type Message struct {
	// Role discriminates the variant.
	Role Role

	// Content is the text content. For RoleTool it is the JSON-encoded tool
	// result; for RoleAssistant it may be empty when ToolCalls is non-empty.
	Content string

	// ToolCalls lists the tool invocations requested by the assistant.
	// Only meaningful when Role is RoleAssistant.
	ToolCalls []ToolCall

	// ToolCallID pairs a RoleTool message to the invocation it answers.
	ToolCallID string
}

// ToolCall is a single tool invocation requested within an assistant message.
type ToolCall struct {
	// ID is unique within the requesting assistant message and is echoed
	// back on the matching RoleTool result.
	ID string

	// Name is the tool name as declared in its [ToolDefinition].
	Name string

	// Arguments is the JSON-encoded argument object.
	Arguments string
}

// ToolDefinition describes a tool offered to the reasoning engine.
type ToolDefinition struct {
	// Name is the tool's unique identifier.
	Name string

	// Description explains what the tool does and when to call it.
	Description string

	// Parameters is the JSON Schema describing the tool's input parameters.
	Parameters map[string]any
}

// Payload type tags carried in the "type" field of structured tool results.
// The turn output contract surfaces at most one payload of each tag per turn.
const (
	// PayloadFlightResults tags the structured itinerary listing emitted by
	// check_flight_availability.
	PayloadFlightResults = "flight_results"

	// PayloadAncillaryResults tags the flattened add-on listing emitted by
	// check_ancillaries.
	PayloadAncillaryResults = "ancillary_results"
)

// UserMessage returns a RoleUser message with the given text.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// SystemMessage returns a RoleSystem message with the given text.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// AssistantReply returns a RoleAssistant message carrying reply text only.
func AssistantReply(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// ToolResult returns a RoleTool message answering the invocation identified
// by callID.
func ToolResult(callID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID}
}
