package probax

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Debouncer holds the quiescence window and the minimum query length of
// the team inputs. The timers themselves are owned by the session workflow,
// one per field.
type Debouncer struct {
	Window    time.Duration `json:"window"`
	MinLength int           `json:"minLength"`
}

func NewDebouncer(window time.Duration, minLength int) Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	if minLength <= 0 {
		minLength = MinQueryLength
	}
	return Debouncer{Window: window, MinLength: minLength}
}

// Normalize trims the raw input.
func (d Debouncer) Normalize(text string) string {
	return strings.TrimSpace(text)
}

// Gate reports whether text is long enough to trigger a lookup.
func (d Debouncer) Gate(text string) bool {
	minLength := d.MinLength
	if minLength <= 0 {
		minLength = MinQueryLength
	}
	return utf8.RuneCountInString(d.Normalize(text)) >= minLength
}
