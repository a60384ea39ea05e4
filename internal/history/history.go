// Package history bounds the conversation replayed to the model and
// strips transient generation artifacts from stored assistant turns.
package history

import (
	"github.com/dbforge/assistant-gate/internal/chat"
)

// DefaultWindowSize is the number of trailing messages retained.
const DefaultWindowSize = 7

// Options configures Prepare.
//
// TrimLeadingCallerRole enables a soft parity preference: when the
// retained window opens on the caller's own role, leading messages
// are dropped until the window starts on the other party's turn (or
// one message remains). This keeps the alternating turn structure
// sane for some models but shortens the window, so it is off by
// default.
type Options struct {
	WindowSize            int
	CallerRole            string
	TrimLeadingCallerRole bool
}

func (o Options) withDefaults() Options {
	if o.WindowSize <= 0 {
		o.WindowSize = DefaultWindowSize
	}
	if o.CallerRole == "" {
		o.CallerRole = chat.RoleUser
	}
	return o
}

// Prepare returns the trailing window of messages with ephemeral
// generation artifacts removed from assistant turns. The input slice
// and its messages are never modified; messages that need cleaning
// are replaced by cleaned copies. Prepare is idempotent.
func Prepare(messages []chat.Message, opts Options) []chat.Message {
	opts = opts.withDefaults()

	window := messages
	if len(window) > opts.WindowSize {
		window = window[len(window)-opts.WindowSize:]
	}
	for opts.TrimLeadingCallerRole && len(window) > 1 && window[0].Role == opts.CallerRole {
		window = window[1:]
	}

	out := make([]chat.Message, len(window))
	for i, msg := range window {
		out[i] = clean(msg)
	}
	return out
}

// clean strips the ephemeral results bag from assistant messages.
// Non-assistant messages pass through intact: their fields are not
// model-authored data-collection artifacts.
func clean(msg chat.Message) chat.Message {
	if msg.Role != chat.RoleAssistant || msg.Results == nil {
		return msg
	}
	cp := msg.Clone()
	cp.Results = nil
	return cp
}
