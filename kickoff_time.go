package probax

import (
	"strings"
	"time"
	_ "time/tzdata"
)

// KickoffTime is a wrapper around time.Time for the kickoff formats
// returned by the backend: full RFC3339, RFC3339 without seconds, and the
// naive "YYYY-MM-DDThh:mm:ss" local wall-clock time of
// results.local.kickoff_local.
type KickoffTime struct {
	time.Time
}

var kickoffLayouts = []string{
	time.RFC3339,             // 2006-01-02T15:04:05Z07:00
	"2006-01-02T15:04Z07:00", // no seconds
	"2006-01-02T15:04:05",    // naive local
	"2006-01-02T15:04",       // naive local, no seconds
}

// ParseKickoff parses s with every known layout. Naive layouts are
// interpreted in loc; a nil loc means UTC.
func ParseKickoff(s string, loc *time.Location) (KickoffTime, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.UTC
	}

	var parseErr error
	for _, layout := range kickoffLayouts {
		parsed, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return KickoffTime{Time: parsed}, nil
		}
		parseErr = err
	}
	return KickoffTime{}, parseErr
}

// LocalKickoffDisplay formats the stadium-local kickoff for display, e.g.
// "Mon 25 Aug 2025, 20:45 (Europe/Rome)". When the value cannot be parsed it
// is returned as received.
func LocalKickoffDisplay(kickoffLocal, timezone string) string {
	kickoffLocal = strings.TrimSpace(kickoffLocal)
	if kickoffLocal == "" {
		return ""
	}

	loc := time.UTC
	if timezone != "" {
		if l, err := time.LoadLocation(timezone); err == nil {
			loc = l
		}
	}

	t, err := ParseKickoff(kickoffLocal, loc)
	if err != nil {
		return kickoffLocal
	}

	out := t.Format("Mon 2 Jan 2006, 15:04")
	if timezone != "" {
		out += " (" + timezone + ")"
	}
	return out
}
