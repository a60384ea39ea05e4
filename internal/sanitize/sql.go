package sanitize

import (
	"encoding/json"

	"github.com/dbforge/assistant-gate/internal/chat"
	"github.com/dbforge/assistant-gate/internal/optin"
	"github.com/dbforge/assistant-gate/internal/taxonomy"
)

// RedactedSentinel replaces a SQL row set when the current opt-in
// level does not permit row data. It tells the model the result
// existed and that it should carry on without re-deriving the data.
const RedactedSentinel = "Query results have been removed because the organization's current AI " +
	"data-sharing opt-in level does not include row data. The query ran successfully; continue " +
	"with your existing plan and do not attempt to reconstruct or re-derive the removed rows."

// SQLResultSanitizer redacts row-set outputs of the SQL execution tool
// below the DATA minimum. Scalar outputs (a status string, a row
// count) are not row data and pass through at any level.
func SQLResultSanitizer(rec chat.ToolInvocationRecord, level optin.Level) chat.ToolInvocationRecord {
	min, ok := taxonomy.MinimumLevel(taxonomy.CategoryData)
	if !ok || optin.AtLeast(level, min) {
		return rec
	}
	if !isRowSet(rec.Output) {
		return rec
	}

	out := rec
	sentinel, _ := json.Marshal(RedactedSentinel)
	out.Output = sentinel
	return out
}

// isRowSet reports whether a captured output is a sequence of rows
// rather than a scalar status.
func isRowSet(output json.RawMessage) bool {
	if len(output) == 0 {
		return false
	}
	var rows []json.RawMessage
	return json.Unmarshal(output, &rows) == nil
}
