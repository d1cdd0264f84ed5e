//go:generate go run golang.org/x/tools/cmd/stringer -type=Level -linecomment=true

package log

import (
	"strings"
)

// Level parametrizes supported log verbosity levels.
type Level int

const (
	// Debug messages trace individual datagrams and state transitions.
	Debug Level = iota // DEBUG
	// Info messages convey session lifecycle events.
	Info // INFO
	// Warn messages describe ignored traffic, protocol violations, and other divergences from
	// the ideal code path that do not stop the process.
	Warn // WARN
	// Error messages indicate transport failures and behavior that should be corrected.
	Error // ERROR
)

// knownLevels lists every Level in increasing order of severity.
var knownLevels = []Level{Debug, Info, Warn, Error}

// ParseLevel looks up a Level constant by its stringified (case-insensitive) representation. The
// Error level is returned alongside false when the input is not recognized.
func ParseLevel(level string) (Level, bool) {
	for _, knownLevel := range knownLevels {
		if strings.EqualFold(strings.TrimSpace(level), knownLevel.String()) {
			return knownLevel, true
		}
	}

	return Error, false
}

// Enables indicates whether the current log level enables logging at another level.
//
// For example,
//	Debug enables Debug, Info, Warn, and Error
//	Info enables Warn and Error, but not Debug
//	Error enables Error, but not Debug, Info, or Warn
func (l Level) Enables(other Level) bool {
	return l <= other
}
