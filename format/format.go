// Package format turns raw Jenkins fields into Slack-friendly text.
package format

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// DefaultTimestampLayout is used when no layout is configured.
const DefaultTimestampLayout = "2006-01-02 15:04:05 MST"

// Result maps a Jenkins build result to a label with a status glyph.
// Unknown values, including the empty result of a running build, map to "Unknown".
func Result(result string) string {
	switch result {
	case "SUCCESS":
		return "✅ Success"
	case "FAILURE":
		return "❌ Failure"
	case "ABORTED":
		return "🛑 Aborted"
	case "UNSTABLE":
		return "⚠️ Unstable"
	default:
		return "❓ Unknown"
	}
}

// Duration renders milliseconds as whole seconds, truncated toward zero.
func Duration(ms int64) string {
	return fmt.Sprintf("%d seconds", ms/1000)
}

// Timestamper renders epoch milliseconds in a fixed location and layout.
type Timestamper struct {
	loc    *time.Location
	layout string
}

// NewTimestamper returns a Timestamper. A nil loc means UTC; an empty layout
// means DefaultTimestampLayout.
func NewTimestamper(loc *time.Location, layout string) *Timestamper {
	if loc == nil {
		loc = time.UTC
	}
	if layout == "" {
		layout = DefaultTimestampLayout
	}
	return &Timestamper{loc: loc, layout: layout}
}

// LoadTimestamper resolves an IANA timezone name ("" means UTC).
func LoadTimestamper(timezone, layout string) (*Timestamper, error) {
	if timezone == "" {
		return NewTimestamper(time.UTC, layout), nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", timezone, err)
	}
	return NewTimestamper(loc, layout), nil
}

// Format renders ms since the Unix epoch.
func (t *Timestamper) Format(ms int64) string {
	return time.UnixMilli(ms).In(t.loc).Format(t.layout)
}
