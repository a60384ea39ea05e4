// Package chat defines the conversation model the policy engine
// operates on. Messages are owned by the dashboard's chat storage
// layer; this package only describes their shape and wire format.
// The engine treats stored messages as immutable values and always
// derives fresh copies when a view must differ from what is stored.
package chat

import (
	"encoding/json"
	"fmt"
)

// Roles of a conversation turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Part type discriminators used on the wire.
const (
	PartTypeText           = "text"
	PartTypeToolInvocation = "tool-invocation"
)

// Tool invocation states.
const (
	StatePending         = "pending"
	StateOutputAvailable = "output-available"
)

// ToolInvocationRecord captures one tool call inside an assistant turn.
// Output is set once by the tool's real execution; sanitization on
// replay produces a copy with a different Output, never a write-back.
type ToolInvocationRecord struct {
	ToolName string          `json:"toolName"`
	State    string          `json:"state"`
	Input    json.RawMessage `json:"input,omitempty"`
	Output   json.RawMessage `json:"output,omitempty"`
}

// Part is one segment of a message: free text or a tool invocation.
// Exactly one of Text/Invocation is meaningful, selected by Type.
type Part struct {
	Type       string                `json:"type"`
	Text       string                `json:"text,omitempty"`
	Invocation *ToolInvocationRecord `json:"toolInvocation,omitempty"`
}

// TextPart builds a free-text part.
func TextPart(text string) Part {
	return Part{Type: PartTypeText, Text: text}
}

// ToolPart builds a tool-invocation part.
func ToolPart(rec ToolInvocationRecord) Part {
	return Part{Type: PartTypeToolInvocation, Invocation: &rec}
}

// Clone returns a deep copy of the part. RawMessage payloads are
// copied so the clone shares no memory with stored history.
func (p Part) Clone() Part {
	out := p
	if p.Invocation != nil {
		rec := *p.Invocation
		rec.Input = cloneRaw(p.Invocation.Input)
		rec.Output = cloneRaw(p.Invocation.Output)
		out.Invocation = &rec
	}
	return out
}

// Message is one ordered turn in a conversation.
//
// Results is an ephemeral scratch bag attached while the assistant is
// generating (raw query results collected for rendering). It is not
// part of the durable schema and must never be forwarded to the model
// on a later turn; the history cleaner strips it from assistant turns.
type Message struct {
	ID      string          `json:"id"`
	Role    string          `json:"role"`
	Parts   []Part          `json:"parts"`
	Results json.RawMessage `json:"results,omitempty"`
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	out := m
	out.Results = cloneRaw(m.Results)
	if m.Parts != nil {
		out.Parts = make([]Part, len(m.Parts))
		for i, p := range m.Parts {
			out.Parts[i] = p.Clone()
		}
	}
	return out
}

// Validate checks structural invariants of a decoded message.
func (m Message) Validate() error {
	if m.Role != RoleUser && m.Role != RoleAssistant {
		return fmt.Errorf("message %s: unknown role %q", m.ID, m.Role)
	}
	for i, p := range m.Parts {
		switch p.Type {
		case PartTypeText:
		case PartTypeToolInvocation:
			if p.Invocation == nil {
				return fmt.Errorf("message %s: part %d: tool-invocation part without record", m.ID, i)
			}
			if p.Invocation.ToolName == "" {
				return fmt.Errorf("message %s: part %d: tool-invocation part without tool name", m.ID, i)
			}
		default:
			return fmt.Errorf("message %s: part %d: unknown part type %q", m.ID, i, p.Type)
		}
	}
	return nil
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}
