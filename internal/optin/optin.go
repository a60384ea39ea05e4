// Package optin defines the organization-wide AI data-sharing opt-in
// levels and their total order. Every permission comparison in the
// policy engine goes through Rank/AtLeast; levels are never compared
// as strings.
package optin

// Level is an organization's AI opt-in level.
type Level string

const (
	LevelDisabled         Level = "disabled"
	LevelSchema           Level = "schema"
	LevelSchemaAndLog     Level = "schema_and_log"
	LevelSchemaAndLogData Level = "schema_and_log_and_data"
)

// levelRanks assigns each valid level its ordinal position.
var levelRanks = map[Level]int{
	LevelDisabled:         0,
	LevelSchema:           1,
	LevelSchemaAndLog:     2,
	LevelSchemaAndLogData: 3,
}

// Rank returns the ordinal position of a level. An unrecognized level
// ranks below every valid level, so malformed caller input degrades to
// the most restrictive behavior instead of failing.
func Rank(l Level) int {
	if r, ok := levelRanks[l]; ok {
		return r
	}
	return -1
}

// AtLeast reports whether current satisfies a requirement of required.
func AtLeast(current, required Level) bool {
	return Rank(current) >= Rank(required)
}

// Valid reports whether l is one of the four recognized levels.
func Valid(l Level) bool {
	_, ok := levelRanks[l]
	return ok
}

// Parse converts a raw settings string into a Level. Unrecognized
// input maps to LevelDisabled.
func Parse(s string) Level {
	l := Level(s)
	if Valid(l) {
		return l
	}
	return LevelDisabled
}
