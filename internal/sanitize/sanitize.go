// Package sanitize rewrites previously captured tool outputs so that a
// replayed conversation only exposes what the organization's *current*
// opt-in level permits. A result fetched while row sharing was enabled
// must not leak after the organization opts back out.
//
// Every sanitizer is a pure function of (record, current level). It
// never consults when the record was produced, and it never writes
// back to stored history: a redacted view is always a derived copy.
package sanitize

import (
	"fmt"

	"github.com/dbforge/assistant-gate/internal/chat"
	"github.com/dbforge/assistant-gate/internal/optin"
	"github.com/dbforge/assistant-gate/internal/taxonomy"
)

// Func rewrites one tool invocation record for the given current
// level. Implementations must leave State untouched and must return a
// copy when the output changes.
type Func func(rec chat.ToolInvocationRecord, level optin.Level) chat.ToolInvocationRecord

// Registry maps tool names to their output sanitizers. Only tools
// whose output can carry sensitive rows need an entry; absence means
// the output passes through unchanged.
type Registry struct {
	funcs map[string]Func
}

// NewRegistry builds a registry from a name→sanitizer table.
func NewRegistry(funcs map[string]Func) *Registry {
	m := make(map[string]Func, len(funcs))
	for name, fn := range funcs {
		m[name] = fn
	}
	return &Registry{funcs: m}
}

// Default returns the registry for the dashboard assistant's tool set.
// It panics if any DATA-category tool lacks a sanitizer: an unregistered
// row-bearing tool is a latent data leak, caught at process start
// rather than at replay time.
func Default(tax *taxonomy.Taxonomy) *Registry {
	r := NewRegistry(map[string]Func{
		"execute_sql": SQLResultSanitizer,
	})
	if err := r.CheckCoverage(tax); err != nil {
		panic(err)
	}
	return r
}

// CheckCoverage verifies that every DATA-category tool in the taxonomy
// has a registered sanitizer.
func (r *Registry) CheckCoverage(tax *taxonomy.Taxonomy) error {
	for _, name := range tax.NamesInCategory(taxonomy.CategoryData) {
		if _, ok := r.funcs[name]; !ok {
			return fmt.Errorf("CheckCoverage: data tool %q has no output sanitizer", name)
		}
	}
	return nil
}

// SanitizePart returns the given message part as it may be shown at
// the current opt-in level. Non-tool parts, and tool parts with no
// registered sanitizer, pass through unchanged. The input part is
// never modified.
func (r *Registry) SanitizePart(part chat.Part, level optin.Level) chat.Part {
	if part.Type != chat.PartTypeToolInvocation || part.Invocation == nil {
		return part
	}
	fn, ok := r.funcs[part.Invocation.ToolName]
	if !ok {
		return part
	}
	rec := fn(*part.Invocation, level)
	out := part
	out.Invocation = &rec
	return out
}

// SanitizeMessage applies SanitizePart to every part of an assistant
// message. Non-assistant messages pass through unchanged.
func (r *Registry) SanitizeMessage(msg chat.Message, level optin.Level) chat.Message {
	if msg.Role != chat.RoleAssistant {
		return msg
	}
	changed := false
	parts := make([]chat.Part, len(msg.Parts))
	for i, p := range msg.Parts {
		parts[i] = r.SanitizePart(p, level)
		if !changed && parts[i].Invocation != p.Invocation {
			changed = true
		}
	}
	if !changed {
		return msg
	}
	out := msg
	out.Parts = parts
	return out
}
