// Package toolset assembles the per-request tool mapping handed to the
// model: descriptors for every available tool, policy-gated so that a
// tool the organization has not opted into never executes real logic,
// and validated so that a name outside the closed taxonomy never
// reaches the model at all.
package toolset

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ExecuteFunc runs the tool's real logic. It may block on network or
// database I/O; the filter wraps it without changing its execution model.
type ExecuteFunc func(ctx context.Context, argsJSON string) (string, error)

// Descriptor describes one tool offered to the model for a single
// request. Descriptors are built fresh per request and never cached,
// because the opt-in level can change between requests.
type Descriptor struct {
	Name        string
	Description string

	// ArgumentSchema is an optional JSON Schema for the tool's
	// arguments. When set, Invoke validates arguments before Execute.
	ArgumentSchema map[string]any

	Execute ExecuteFunc
}

// Invoke validates the arguments against ArgumentSchema (when present)
// and then runs Execute.
func (d *Descriptor) Invoke(ctx context.Context, argsJSON string) (string, error) {
	if d.Execute == nil {
		return "", fmt.Errorf("Invoke: tool %s has no execute handler", d.Name)
	}
	if d.ArgumentSchema != nil {
		if err := validateArguments(argsJSON, d.ArgumentSchema); err != nil {
			return "", fmt.Errorf("Invoke: %s: %w", d.Name, err)
		}
	}
	return d.Execute(ctx, argsJSON)
}

// clone returns a shallow copy. Execute handlers are shared; the
// schema map is read-only by convention.
func (d *Descriptor) clone() *Descriptor {
	cp := *d
	return &cp
}

func validateArguments(argsJSON string, schema map[string]any) error {
	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("invalid argument schema: %w", err)
	}
	var schemaObj any
	if err := json.Unmarshal(schemaBytes, &schemaObj); err != nil {
		return fmt.Errorf("argument schema unmarshal: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", schemaObj); err != nil {
		return fmt.Errorf("argument schema compile: %w", err)
	}
	sch, err := c.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("argument schema compile: %w", err)
	}

	var args any
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	if err := sch.Validate(args); err != nil {
		return fmt.Errorf("argument validation failed: %w", err)
	}
	return nil
}
