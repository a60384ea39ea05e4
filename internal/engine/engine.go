// Package engine is the assistant tool-access policy engine: it
// assembles the policy-gated tool set for a conversation turn and
// prepares replayed history so that stored tool outputs reflect the
// organization's current opt-in level, not the level in effect when
// they were captured.
package engine

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dbforge/assistant-gate/internal/chat"
	"github.com/dbforge/assistant-gate/internal/history"
	"github.com/dbforge/assistant-gate/internal/optin"
	"github.com/dbforge/assistant-gate/internal/sanitize"
	"github.com/dbforge/assistant-gate/internal/storage"
	"github.com/dbforge/assistant-gate/internal/taxonomy"
	"github.com/dbforge/assistant-gate/internal/toolset"
)

// Tool decision outcomes recorded per requested tool.
const (
	OutcomeAllowed = "allowed"
	OutcomeStubbed = "stubbed"
	OutcomeDropped = "dropped"
)

// Decision describes the policy outcome for one requested tool.
type Decision struct {
	Name     string `json:"name"`
	Outcome  string `json:"outcome"`
	Category string `json:"category,omitempty"`
	// Notice carries the fixed denial payload for stubbed tools.
	Notice string `json:"notice,omitempty"`
}

// Config wires an Engine.
type Config struct {
	Taxonomy   *taxonomy.Taxonomy
	Sanitizers *sanitize.Registry
	Writer     storage.EventWriter // optional
	History    history.Options
	Logger     *zap.Logger
}

// Engine holds the static policy tables and collaborators. All methods
// are pure transforms over their inputs; the engine itself carries no
// cross-request state, so one instance serves concurrent requests at
// different opt-in levels.
type Engine struct {
	tax        *taxonomy.Taxonomy
	sanitizers *sanitize.Registry
	writer     storage.EventWriter
	histOpts   history.Options
	logger     *zap.Logger
}

// New creates an Engine. A nil Logger is replaced with a no-op logger
// and a nil Sanitizers with an empty registry (everything passes
// through unchanged).
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sanitizers := cfg.Sanitizers
	if sanitizers == nil {
		sanitizers = sanitize.NewRegistry(nil)
	}
	return &Engine{
		tax:        cfg.Taxonomy,
		sanitizers: sanitizers,
		writer:     cfg.Writer,
		histOpts:   cfg.History,
		logger:     logger,
	}
}

// GetAllowedTools validates the raw tool mapping against the closed
// registry and returns the policy-gated set for the given level.
//
// Validation runs on the raw set, before filtering: a provider that
// supplies a name outside the registry is a fatal assembly failure
// (*toolset.ValidationError) and no tools are delivered for the turn.
// The filter's own unknown-name drop remains as defense in depth, but
// it must never be the only thing standing between an injected tool
// and the model.
func (e *Engine) GetAllowedTools(ctx context.Context, orgID string, raw map[string]*toolset.Descriptor, level optin.Level) (map[string]*toolset.Descriptor, error) {
	start := time.Now()

	if err := toolset.Validate(raw, e.tax); err != nil {
		e.logger.Warn("tool set validation failed",
			zap.String("org_id", orgID),
			zap.Error(err),
		)
		e.writeEvent(orgID, level, nil, err, time.Since(start))
		return nil, err
	}

	filtered := toolset.Filter(raw, e.tax, level)
	decisions := e.decide(raw, level)
	e.writeEvent(orgID, level, decisions, nil, time.Since(start))
	return filtered, nil
}

// Decide returns the per-tool policy outcome for a raw tool mapping
// without constructing executable descriptors. Same validation
// semantics as GetAllowedTools.
func (e *Engine) Decide(ctx context.Context, orgID string, raw map[string]*toolset.Descriptor, level optin.Level) ([]Decision, error) {
	start := time.Now()

	if err := toolset.Validate(raw, e.tax); err != nil {
		e.writeEvent(orgID, level, nil, err, time.Since(start))
		return nil, err
	}

	decisions := e.decide(raw, level)
	e.writeEvent(orgID, level, decisions, nil, time.Since(start))
	return decisions, nil
}

func (e *Engine) decide(raw map[string]*toolset.Descriptor, level optin.Level) []Decision {
	decisions := make([]Decision, 0, len(raw))
	for name := range raw {
		cat, known := e.tax.CategoryOf(name)
		switch {
		case !known:
			decisions = append(decisions, Decision{Name: name, Outcome: OutcomeDropped})
		case taxonomy.Allowed(cat, level):
			decisions = append(decisions, Decision{Name: name, Outcome: OutcomeAllowed, Category: cat.String()})
		default:
			decisions = append(decisions, Decision{
				Name:     name,
				Outcome:  OutcomeStubbed,
				Category: cat.String(),
				Notice:   toolset.DeniedSentinel,
			})
		}
	}
	sort.Slice(decisions, func(i, j int) bool { return decisions[i].Name < decisions[j].Name })
	return decisions
}

// PrepareHistory bounds and cleans replayed conversation history and
// sanitizes every tool-bearing part of the retained assistant messages
// for the current level. Call it at every site that replays history:
// the next model turn and the feedback pipeline each apply it
// independently; it is not safe to assume it ran once upstream.
func (e *Engine) PrepareHistory(messages []chat.Message, level optin.Level) []chat.Message {
	prepared := history.Prepare(messages, e.histOpts)
	for i, msg := range prepared {
		prepared[i] = e.sanitizers.SanitizeMessage(msg, level)
	}
	return prepared
}

// SanitizeMessagePart rewrites a single message part for the current
// level. Non-tool parts and tools without a registered sanitizer pass
// through unchanged.
func (e *Engine) SanitizeMessagePart(part chat.Part, level optin.Level) chat.Part {
	return e.sanitizers.SanitizePart(part, level)
}

func (e *Engine) writeEvent(orgID string, level optin.Level, decisions []Decision, verr error, elapsed time.Duration) {
	if e.writer == nil {
		return
	}

	event := &storage.ToolDecisionEvent{
		RequestID:  uuid.New().String(),
		OrgID:      orgID,
		Timestamp:  time.Now(),
		OptInLevel: string(level),
		LatencyMs:  float32(float64(elapsed) / float64(time.Millisecond)),
		Source:     "engine",
	}

	if verr != nil {
		event.Rejected = true
		event.RejectReason = verr.Error()
	} else {
		event.ToolNames = make([]string, len(decisions))
		event.ToolOutcomes = make([]string, len(decisions))
		event.ToolCategories = make([]string, len(decisions))
		for i, d := range decisions {
			event.ToolNames[i] = d.Name
			event.ToolOutcomes[i] = d.Outcome
			event.ToolCategories[i] = d.Category
		}
	}

	e.writer.Write(event)
}
