package history

import (
	"encoding/json"
	"fmt"
	"reflect"
	"testing"

	"github.com/dbforge/assistant-gate/internal/chat"
)

func makeMessages(n int) []chat.Message {
	msgs := make([]chat.Message, n)
	for i := range msgs {
		role := chat.RoleUser
		if i%2 == 1 {
			role = chat.RoleAssistant
		}
		msgs[i] = chat.Message{
			ID:    fmt.Sprintf("m%d", i+1),
			Role:  role,
			Parts: []chat.Part{chat.TextPart(fmt.Sprintf("turn %d", i+1))},
		}
	}
	return msgs
}

func TestPrepare_WindowBound(t *testing.T) {
	for _, total := range []int{0, 1, 6, 7, 8, 10, 25} {
		msgs := makeMessages(total)
		got := Prepare(msgs, Options{})

		want := total
		if want > DefaultWindowSize {
			want = DefaultWindowSize
		}
		if len(got) != want {
			t.Fatalf("total=%d: expected %d messages, got %d", total, want, len(got))
		}
		for i, msg := range got {
			expected := msgs[total-want+i].ID
			if msg.ID != expected {
				t.Fatalf("total=%d: position %d: expected %s, got %s", total, i, expected, msg.ID)
			}
		}
	}
}

func TestPrepare_ScenarioTenMessages(t *testing.T) {
	msgs := makeMessages(10)
	got := Prepare(msgs, Options{})
	if len(got) != 7 {
		t.Fatalf("expected 7 messages, got %d", len(got))
	}
	for i, msg := range got {
		expected := fmt.Sprintf("m%d", i+4)
		if msg.ID != expected {
			t.Fatalf("position %d: expected %s, got %s", i, expected, msg.ID)
		}
	}
}

func TestPrepare_StripsAssistantResults(t *testing.T) {
	msgs := []chat.Message{
		{
			ID:      "u1",
			Role:    chat.RoleUser,
			Results: json.RawMessage(`[{"kept":true}]`),
		},
		{
			ID:      "a1",
			Role:    chat.RoleAssistant,
			Parts:   []chat.Part{chat.TextPart("ran your query")},
			Results: json.RawMessage(`[{"email":"a@b.com"}]`),
		},
	}

	got := Prepare(msgs, Options{})

	if got[1].Results != nil {
		t.Fatal("assistant results bag must be stripped")
	}
	if string(got[0].Results) != `[{"kept":true}]` {
		t.Fatal("non-assistant messages must pass through intact")
	}
	// Stored history is never mutated.
	if string(msgs[1].Results) != `[{"email":"a@b.com"}]` {
		t.Fatal("input message was mutated")
	}
}

func TestPrepare_Idempotent(t *testing.T) {
	msgs := makeMessages(12)
	msgs[11].Results = json.RawMessage(`["scratch"]`)

	for _, opts := range []Options{
		{},
		{TrimLeadingCallerRole: true},
	} {
		once := Prepare(msgs, opts)
		twice := Prepare(once, opts)
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("opts=%+v: prepare(prepare(x)) differs from prepare(x)", opts)
		}
	}
}

func TestPrepare_TrimConsecutiveCallerTurnsOnce(t *testing.T) {
	// A window opening on a run of caller turns must reach its fixed
	// point in a single pass.
	msgs := []chat.Message{
		{ID: "m1", Role: chat.RoleUser},
		{ID: "m2", Role: chat.RoleUser},
		{ID: "m3", Role: chat.RoleAssistant},
	}
	opts := Options{TrimLeadingCallerRole: true}

	once := Prepare(msgs, opts)
	if len(once) != 1 || once[0].ID != "m3" {
		t.Fatalf("expected window [m3], got %v", once)
	}
	twice := Prepare(once, opts)
	if !reflect.DeepEqual(once, twice) {
		t.Fatal("re-preparing a trimmed window changed it")
	}
}

func TestPrepare_CustomWindowSize(t *testing.T) {
	msgs := makeMessages(10)
	got := Prepare(msgs, Options{WindowSize: 3})
	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got))
	}
	if got[0].ID != "m8" {
		t.Fatalf("expected window to start at m8, got %s", got[0].ID)
	}
}

func TestPrepare_TrimLeadingCallerRole(t *testing.T) {
	// With a window of 3, the window for these 4 messages opens on a
	// user turn; trimming shifts it onto the assistant's turn.
	msgs := []chat.Message{
		{ID: "m1", Role: chat.RoleUser},
		{ID: "m2", Role: chat.RoleUser},
		{ID: "m3", Role: chat.RoleAssistant},
		{ID: "m4", Role: chat.RoleUser},
	}
	got := Prepare(msgs, Options{WindowSize: 3, TrimLeadingCallerRole: true})
	if len(got) != 2 {
		t.Fatalf("expected 2 messages after trim, got %d", len(got))
	}
	if got[0].ID != "m3" || got[0].Role != chat.RoleAssistant {
		t.Fatalf("expected window to open on the assistant turn m3, got %s", got[0].ID)
	}
}

func TestPrepare_TrimNoopWhenWindowOpensOnAssistant(t *testing.T) {
	msgs := []chat.Message{
		{ID: "m1", Role: chat.RoleAssistant},
		{ID: "m2", Role: chat.RoleUser},
	}
	got := Prepare(msgs, Options{TrimLeadingCallerRole: true})
	if len(got) != 2 {
		t.Fatalf("expected untouched window, got %d messages", len(got))
	}
}

func TestPrepare_TrimKeepsSingleMessage(t *testing.T) {
	msgs := makeMessages(1)
	got := Prepare(msgs, Options{TrimLeadingCallerRole: true})
	if len(got) != 1 {
		t.Fatal("a single-message history must not be trimmed to nothing")
	}
}
