package sanitize

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/dbforge/assistant-gate/internal/chat"
	"github.com/dbforge/assistant-gate/internal/optin"
	"github.com/dbforge/assistant-gate/internal/taxonomy"
)

func sqlPart(output string) chat.Part {
	return chat.ToolPart(chat.ToolInvocationRecord{
		ToolName: "execute_sql",
		State:    chat.StateOutputAvailable,
		Input:    json.RawMessage(`{"query":"select email from users"}`),
		Output:   json.RawMessage(output),
	})
}

func TestSanitizePart_RedactsRowsBelowDataLevel(t *testing.T) {
	r := Default(taxonomy.Default())
	part := sqlPart(`[{"email":"a@b.com"}]`)

	got := r.SanitizePart(part, optin.LevelDisabled)

	var redacted string
	if err := json.Unmarshal(got.Invocation.Output, &redacted); err != nil {
		t.Fatalf("expected string sentinel output: %v", err)
	}
	if redacted != RedactedSentinel {
		t.Fatalf("expected redaction sentinel, got %q", redacted)
	}
	if got.Invocation.State != chat.StateOutputAvailable {
		t.Fatal("sanitization must leave the invocation state untouched")
	}
	// Stored record untouched.
	if string(part.Invocation.Output) != `[{"email":"a@b.com"}]` {
		t.Fatal("input record was mutated")
	}
}

func TestSanitizePart_ReplaySafety(t *testing.T) {
	// The same stored record, captured while row sharing was on, is
	// replayed under two different current levels. The result must be
	// a pure function of the current level.
	r := Default(taxonomy.Default())
	part := sqlPart(`[{"email":"a@b.com"}]`)

	atSchema := r.SanitizePart(part, optin.LevelSchema)
	var redacted string
	if err := json.Unmarshal(atSchema.Invocation.Output, &redacted); err != nil || redacted != RedactedSentinel {
		t.Fatalf("expected sentinel at schema level, got %s", atSchema.Invocation.Output)
	}

	atFull := r.SanitizePart(part, optin.LevelSchemaAndLogData)
	if string(atFull.Invocation.Output) != `[{"email":"a@b.com"}]` {
		t.Fatalf("expected original rows at full level, got %s", atFull.Invocation.Output)
	}
}

func TestSanitizePart_ScalarStatusPassesThrough(t *testing.T) {
	r := Default(taxonomy.Default())
	part := sqlPart(`"Success. No rows returned."`)

	got := r.SanitizePart(part, optin.LevelDisabled)
	if string(got.Invocation.Output) != `"Success. No rows returned."` {
		t.Fatalf("scalar status must pass through, got %s", got.Invocation.Output)
	}
}

func TestSanitizePart_Idempotent(t *testing.T) {
	r := Default(taxonomy.Default())
	part := sqlPart(`[{"id":1},{"id":2}]`)

	once := r.SanitizePart(part, optin.LevelSchema)
	twice := r.SanitizePart(once, optin.LevelSchema)
	if !reflect.DeepEqual(once, twice) {
		t.Fatal("sanitizing an already-sanitized part changed it")
	}
}

func TestSanitizePart_UnregisteredToolPassesThrough(t *testing.T) {
	r := Default(taxonomy.Default())
	part := chat.ToolPart(chat.ToolInvocationRecord{
		ToolName: "get_logs",
		State:    chat.StateOutputAvailable,
		Output:   json.RawMessage(`["log line"]`),
	})

	got := r.SanitizePart(part, optin.LevelDisabled)
	if string(got.Invocation.Output) != `["log line"]` {
		t.Fatal("tool without a registered sanitizer must pass through")
	}
}

func TestSanitizePart_TextPartPassesThrough(t *testing.T) {
	r := Default(taxonomy.Default())
	part := chat.TextPart("hello")
	if got := r.SanitizePart(part, optin.LevelDisabled); got.Text != "hello" {
		t.Fatal("text parts must pass through")
	}
}

func TestSanitizeMessage_OnlyAssistantTurns(t *testing.T) {
	r := Default(taxonomy.Default())
	userMsg := chat.Message{
		ID:    "u1",
		Role:  chat.RoleUser,
		Parts: []chat.Part{sqlPart(`[{"id":1}]`)},
	}
	got := r.SanitizeMessage(userMsg, optin.LevelDisabled)
	if string(got.Parts[0].Invocation.Output) != `[{"id":1}]` {
		t.Fatal("non-assistant messages must pass through")
	}

	asstMsg := chat.Message{
		ID:    "a1",
		Role:  chat.RoleAssistant,
		Parts: []chat.Part{chat.TextPart("here you go"), sqlPart(`[{"id":1}]`)},
	}
	got = r.SanitizeMessage(asstMsg, optin.LevelDisabled)
	var redacted string
	if err := json.Unmarshal(got.Parts[1].Invocation.Output, &redacted); err != nil || redacted != RedactedSentinel {
		t.Fatal("assistant tool parts must be sanitized")
	}
}

func TestCheckCoverage_MissingSanitizer(t *testing.T) {
	tax := taxonomy.New(map[string]taxonomy.Category{
		"dump_rows": taxonomy.CategoryData,
	})
	r := NewRegistry(nil)
	if err := r.CheckCoverage(tax); err == nil {
		t.Fatal("expected coverage failure for data tool without sanitizer")
	}
}

func TestDefault_PanicsOnGap(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for uncovered data tool")
		}
	}()
	Default(taxonomy.New(map[string]taxonomy.Category{
		"bulk_export": taxonomy.CategoryData,
	}))
}
