package turns

import "github.com/google/uuid"

// Convenience constructors for the four message variants.

// NewSystemMessage returns a system directive.
func NewSystemMessage(text string) Message {
	return Message{ID: uuid.NewString(), Kind: KindSystem, Content: text}
}

// NewHumanMessage returns a user text message.
func NewHumanMessage(text string) Message {
	return Message{ID: uuid.NewString(), Kind: KindHuman, Content: text}
}

// NewAIMessage returns a model response, optionally carrying tool-call requests.
func NewAIMessage(text string, calls ...ToolCall) Message {
	return Message{ID: uuid.NewString(), Kind: KindAI, Content: text, ToolCalls: calls}
}

// NewToolCall returns a tool-call request with a fresh id when id is empty.
func NewToolCall(id string, name string, args any) ToolCall {
	if id == "" {
		id = "call_" + uuid.NewString()
	}
	return ToolCall{ID: id, Name: name, Args: args}
}

// NewToolResultMessage returns the result of a tool execution.
// toolCallID must match the id of the request it answers.
func NewToolResultMessage(toolCallID string, name string, content string) Message {
	return Message{
		ID:         uuid.NewString(),
		Kind:       KindTool,
		Content:    content,
		ToolCallID: toolCallID,
		Name:       name,
	}
}

// EnsureIDs gives every message without an id a fresh one, in place.
func EnsureIDs(msgs []Message) {
	for i := range msgs {
		if msgs[i].ID == "" {
			msgs[i].ID = uuid.NewString()
		}
	}
}
