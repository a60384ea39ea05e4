package toolset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dbforge/assistant-gate/internal/taxonomy"
)

// Violation records one unknown tool name found during validation.
type Violation struct {
	ToolName string
	Message  string
}

// ValidationError aggregates every unknown name in a tool mapping. Any
// validation failure is fatal for the request: an unknown tool name at
// this boundary means taxonomy drift or a compromised upstream tool
// provider, and partial delivery could mask which capability was
// rejected.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	names := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		names[i] = v.ToolName
	}
	return fmt.Sprintf("tool set validation failed: unknown tools: %s", strings.Join(names, ", "))
}

// Validate checks every key of a tool mapping against the closed
// taxonomy. The empty set and any proper subset of the registry are
// valid, since not every provider supplies every tool. On failure it returns
// a *ValidationError with one violation per unknown key.
func Validate(tools map[string]*Descriptor, tax *taxonomy.Taxonomy) error {
	var violations []Violation
	for name := range tools {
		if tax.Known(name) {
			continue
		}
		violations = append(violations, Violation{
			ToolName: name,
			Message:  fmt.Sprintf("tool %q is not in the registry", name),
		})
	}
	if len(violations) == 0 {
		return nil
	}
	sort.Slice(violations, func(i, j int) bool {
		return violations[i].ToolName < violations[j].ToolName
	})
	return &ValidationError{Violations: violations}
}
