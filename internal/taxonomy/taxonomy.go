// Package taxonomy holds the closed registry of assistant tool names
// and their sensitivity categories. The tables are assembled once at
// startup and injected into the filter and validator; there is no
// mutation API. Adding or removing a tool is a deployment-time change.
package taxonomy

import (
	"sort"

	"github.com/dbforge/assistant-gate/internal/optin"
)

// Category classifies what kind of project data a tool can expose.
type Category int

const (
	CategoryUnspecified Category = iota
	CategoryUI                   // rendering-only, no project data
	CategorySchema               // table/function/extension structure
	CategoryLog                  // logs and advisor findings
	CategoryData                 // raw row data
)

// String returns the lowercase category name.
func (c Category) String() string {
	switch c {
	case CategoryUI:
		return "ui"
	case CategorySchema:
		return "schema"
	case CategoryLog:
		return "log"
	case CategoryData:
		return "data"
	default:
		return "unspecified"
	}
}

// categoryMinimums maps each category to the lowest opt-in level that
// permits it. CategoryUI is absent: UI tools are always permitted.
var categoryMinimums = map[Category]optin.Level{
	CategorySchema: optin.LevelSchema,
	CategoryLog:    optin.LevelSchemaAndLog,
	CategoryData:   optin.LevelSchemaAndLogData,
}

// Taxonomy is the closed tool-name registry. Read-only after construction.
type Taxonomy struct {
	categories map[string]Category
}

// New builds a taxonomy from a name→category table. The table is copied;
// later changes to the argument do not affect the taxonomy.
func New(categories map[string]Category) *Taxonomy {
	m := make(map[string]Category, len(categories))
	for name, cat := range categories {
		m[name] = cat
	}
	return &Taxonomy{categories: m}
}

// Default returns the taxonomy for the dashboard assistant's tool set.
func Default() *Taxonomy {
	return New(map[string]Category{
		"display_query":         CategoryUI,
		"display_edge_function": CategoryUI,
		"rename_chat":           CategoryUI,
		"search_docs":           CategoryUI,

		"list_tables":         CategorySchema,
		"list_extensions":     CategorySchema,
		"list_edge_functions": CategorySchema,
		"list_policies":       CategorySchema,

		"get_logs":     CategoryLog,
		"get_advisors": CategoryLog,

		"execute_sql": CategoryData,
	})
}

// CategoryOf returns the category for a tool name. The second return is
// false for names outside the registry; such names must never reach the
// model regardless of opt-in level.
func (t *Taxonomy) CategoryOf(name string) (Category, bool) {
	cat, ok := t.categories[name]
	return cat, ok
}

// Known reports whether name is in the closed registry.
func (t *Taxonomy) Known(name string) bool {
	_, ok := t.categories[name]
	return ok
}

// MinimumLevel returns the lowest opt-in level that permits a category.
// The second return is false when the category has no minimum (UI tools
// are always allowed).
func MinimumLevel(c Category) (optin.Level, bool) {
	lvl, ok := categoryMinimums[c]
	return lvl, ok
}

// Allowed reports whether a tool of category c is permitted at level.
// Categories outside {UI, Schema, Log, Data} are never permitted: a
// zero-valued category in a mis-built table must deny, not expose.
func Allowed(c Category, level optin.Level) bool {
	if !validCategory(c) {
		return false
	}
	min, ok := MinimumLevel(c)
	if !ok {
		return true
	}
	return optin.AtLeast(level, min)
}

func validCategory(c Category) bool {
	switch c {
	case CategoryUI, CategorySchema, CategoryLog, CategoryData:
		return true
	default:
		return false
	}
}

// Names returns all registered tool names in sorted order.
func (t *Taxonomy) Names() []string {
	names := make([]string, 0, len(t.categories))
	for name := range t.categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NamesInCategory returns the registered tool names of one category,
// sorted. Used by the sanitizer-coverage check.
func (t *Taxonomy) NamesInCategory(c Category) []string {
	var names []string
	for name, cat := range t.categories {
		if cat == c {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
