package toolset

import (
	"context"

	"github.com/dbforge/assistant-gate/internal/optin"
	"github.com/dbforge/assistant-gate/internal/taxonomy"
)

// DeniedSentinel is the fixed payload a stubbed tool returns instead of
// executing. Callers and tests match on it verbatim.
const DeniedSentinel = "This capability is disabled at your organization's current AI data-sharing " +
	"opt-in level. An organization owner can raise the level under Organization Settings > AI. " +
	"Continue with the rest of your plan without this tool."

// stubNotice is appended to a stubbed tool's description so the model
// knows the tool exists but is gated.
const stubNotice = " (Unavailable at the organization's current AI opt-in level; " +
	"calling this tool returns a notice instead of running.)"

// Filter returns a policy-gated copy of the tool mapping for the given
// opt-in level:
//
//   - names outside the taxonomy are dropped unconditionally; an
//     unknown name is invalid, not "insufficiently permitted"
//   - known tools whose category minimum is satisfied are kept as-is,
//     real execute behavior included
//   - known tools at an insufficient level are replaced by a stub that
//     performs no work and returns DeniedSentinel
//
// The input mapping is never modified.
func Filter(tools map[string]*Descriptor, tax *taxonomy.Taxonomy, level optin.Level) map[string]*Descriptor {
	out := make(map[string]*Descriptor, len(tools))
	for name, desc := range tools {
		cat, ok := tax.CategoryOf(name)
		if !ok {
			continue
		}
		if taxonomy.Allowed(cat, level) {
			out[name] = desc
			continue
		}
		out[name] = stub(desc)
	}
	return out
}

// stub replaces a descriptor's execute behavior with a fixed denial.
// The declared shape stays intact so the model can still plan around
// the tool's existence.
func stub(desc *Descriptor) *Descriptor {
	cp := desc.clone()
	cp.Description = desc.Description + stubNotice
	cp.ArgumentSchema = nil // denial ignores arguments
	cp.Execute = func(_ context.Context, _ string) (string, error) {
		return DeniedSentinel, nil
	}
	return cp
}
