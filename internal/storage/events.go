package storage

import "time"

// EventWriter is the interface for writing tool decision events.
// Write() must NEVER block the caller.
type EventWriter interface {
	Write(event *ToolDecisionEvent)
	Close()
}

// ToolDecisionEvent records one tool-set assembly: which tools were
// requested, what the policy decided for each, and under which opt-in
// level. One row per request, parallel arrays per tool.
type ToolDecisionEvent struct {
	RequestID      string
	OrgID          string
	Timestamp      time.Time
	OptInLevel     string
	ToolNames      []string
	ToolOutcomes   []string // "allowed", "stubbed", "dropped"
	ToolCategories []string
	Rejected       bool   // tool-set validation failed, no tools delivered
	RejectReason   string // unknown tool names, when rejected
	LatencyMs      float32
	Source         string
}
