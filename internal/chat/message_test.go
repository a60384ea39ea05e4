package chat

import (
	"encoding/json"
	"testing"
)

func TestMessage_Validate(t *testing.T) {
	msg := Message{
		ID:   "m1",
		Role: RoleAssistant,
		Parts: []Part{
			TextPart("looking at your tables"),
			ToolPart(ToolInvocationRecord{ToolName: "list_tables", State: StatePending}),
		},
	}
	if err := msg.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestMessage_ValidateRejectsBadRole(t *testing.T) {
	msg := Message{ID: "m1", Role: "system"}
	if err := msg.Validate(); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestMessage_ValidateRejectsEmptyInvocation(t *testing.T) {
	msg := Message{
		ID:    "m1",
		Role:  RoleAssistant,
		Parts: []Part{{Type: PartTypeToolInvocation}},
	}
	if err := msg.Validate(); err == nil {
		t.Fatal("expected error for tool-invocation part without record")
	}
}

func TestMessage_CloneIsolatesPayloads(t *testing.T) {
	orig := Message{
		ID:   "m1",
		Role: RoleAssistant,
		Parts: []Part{
			ToolPart(ToolInvocationRecord{
				ToolName: "execute_sql",
				State:    StateOutputAvailable,
				Output:   json.RawMessage(`[{"id":1}]`),
			}),
		},
		Results: json.RawMessage(`[{"id":1}]`),
	}

	cp := orig.Clone()
	cp.Parts[0].Invocation.Output[1] = 'X'
	cp.Results[1] = 'X'

	if string(orig.Parts[0].Invocation.Output) != `[{"id":1}]` {
		t.Fatal("clone shares tool output memory with original")
	}
	if string(orig.Results) != `[{"id":1}]` {
		t.Fatal("clone shares results memory with original")
	}
}

func TestPart_WireFormat(t *testing.T) {
	p := ToolPart(ToolInvocationRecord{
		ToolName: "get_logs",
		State:    StateOutputAvailable,
		Input:    json.RawMessage(`{"service":"api"}`),
		Output:   json.RawMessage(`"no errors"`),
	})
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}

	var decoded Part
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Type != PartTypeToolInvocation {
		t.Fatalf("expected tool-invocation type, got %q", decoded.Type)
	}
	if decoded.Invocation == nil || decoded.Invocation.ToolName != "get_logs" {
		t.Fatal("expected invocation record to survive round trip")
	}
}
