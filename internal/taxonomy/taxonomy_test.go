package taxonomy

import (
	"testing"

	"github.com/dbforge/assistant-gate/internal/optin"
)

func TestCategoryOf_Registered(t *testing.T) {
	tax := Default()
	cat, ok := tax.CategoryOf("execute_sql")
	if !ok {
		t.Fatal("expected execute_sql to be registered")
	}
	if cat != CategoryData {
		t.Fatalf("expected data category, got %s", cat)
	}
}

func TestCategoryOf_Unknown(t *testing.T) {
	tax := Default()
	if _, ok := tax.CategoryOf("drop_database"); ok {
		t.Fatal("expected unknown tool to be unregistered")
	}
	if tax.Known("") {
		t.Fatal("expected empty name to be unregistered")
	}
}

func TestMinimumLevel(t *testing.T) {
	if _, ok := MinimumLevel(CategoryUI); ok {
		t.Fatal("expected UI category to have no minimum level")
	}
	lvl, ok := MinimumLevel(CategoryData)
	if !ok || lvl != optin.LevelSchemaAndLogData {
		t.Fatalf("expected data minimum schema_and_log_and_data, got %s", lvl)
	}
	lvl, ok = MinimumLevel(CategoryLog)
	if !ok || lvl != optin.LevelSchemaAndLog {
		t.Fatalf("expected log minimum schema_and_log, got %s", lvl)
	}
	lvl, ok = MinimumLevel(CategorySchema)
	if !ok || lvl != optin.LevelSchema {
		t.Fatalf("expected schema minimum schema, got %s", lvl)
	}
}

func TestAllowed_Monotonic(t *testing.T) {
	levels := []optin.Level{
		optin.LevelDisabled,
		optin.LevelSchema,
		optin.LevelSchemaAndLog,
		optin.LevelSchemaAndLogData,
	}
	categories := []Category{CategoryUI, CategorySchema, CategoryLog, CategoryData}
	for _, cat := range categories {
		wasAllowed := false
		for _, lvl := range levels {
			allowed := Allowed(cat, lvl)
			if wasAllowed && !allowed {
				t.Fatalf("raising level to %s revoked %s access", lvl, cat)
			}
			wasAllowed = allowed
		}
		if !wasAllowed {
			t.Fatalf("category %s not allowed even at the highest level", cat)
		}
	}
}

func TestAllowed_UnspecifiedCategoryDenied(t *testing.T) {
	for _, lvl := range []optin.Level{
		optin.LevelDisabled,
		optin.LevelSchemaAndLogData,
	} {
		if Allowed(CategoryUnspecified, lvl) {
			t.Fatalf("zero-valued category must be denied at %s", lvl)
		}
		if Allowed(Category(99), lvl) {
			t.Fatalf("out-of-range category must be denied at %s", lvl)
		}
	}
}

func TestAllowed_UIAlwaysPermitted(t *testing.T) {
	if !Allowed(CategoryUI, optin.LevelDisabled) {
		t.Fatal("expected UI tools to be allowed at disabled")
	}
	if !Allowed(CategoryUI, "garbage") {
		t.Fatal("expected UI tools to be allowed even for malformed levels")
	}
}

func TestNamesInCategory(t *testing.T) {
	tax := Default()
	data := tax.NamesInCategory(CategoryData)
	if len(data) != 1 || data[0] != "execute_sql" {
		t.Fatalf("expected [execute_sql], got %v", data)
	}
}

func TestNew_CopiesInput(t *testing.T) {
	src := map[string]Category{"a_tool": CategoryUI}
	tax := New(src)
	src["b_tool"] = CategoryData
	if tax.Known("b_tool") {
		t.Fatal("expected taxonomy to be isolated from later map mutation")
	}
}
