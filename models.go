package probax

import (
	"errors"
	"strings"
)

// Field identifies one of the two team inputs of a session
type Field string

const (
	FieldHome Field = "home"
	FieldAway Field = "away"
)

func (f Field) Valid() bool {
	return f == FieldHome || f == FieldAway
}

// ErrInvalidMatchRequest is returned when a match request is missing a team
// or names the same team twice.
var ErrInvalidMatchRequest = errors.New("select two different teams")

// TeamCandidate is one suggestion returned by the team lookup routes
type TeamCandidate struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
	League  string `json:"league,omitempty"`
}

// Key is the identity used for de-duplication: the id when present, else the name.
func (c TeamCandidate) Key() string {
	if id := strings.TrimSpace(c.ID); id != "" {
		return id
	}
	return strings.ToLower(strings.TrimSpace(c.Name))
}

// MatchRequest pairs the two teams selected by the user
type MatchRequest struct {
	Home *TeamCandidate `json:"home"`
	Away *TeamCandidate `json:"away"`
}

// Validate checks the precondition of the prediction fetcher. It is the
// caller's job to run it; the fetcher never does.
func (r MatchRequest) Validate() error {
	if r.Home == nil || r.Away == nil {
		return ErrInvalidMatchRequest
	}
	if r.Home.Key() == "" || r.Away.Key() == "" || r.Home.Key() == r.Away.Key() {
		return ErrInvalidMatchRequest
	}
	return nil
}

// Probabilities are the 1X2 outcome probabilities. They are not normalized:
// the backend may return values that do not sum to 1.
type Probabilities struct {
	Home float64 `json:"home"`
	Draw float64 `json:"draw"`
	Away float64 `json:"away"`
}

// PredictionMeta carries the fixture context needed for weather enrichment
type PredictionMeta struct {
	Venue      string `json:"venue,omitempty"`
	Country    string `json:"country,omitempty"`
	KickoffUTC string `json:"kickoffUtcIso,omitempty"`
}

// Complete reports whether venue, country and kickoff are all present.
func (m *PredictionMeta) Complete() bool {
	if m == nil {
		return false
	}
	return strings.TrimSpace(m.Venue) != "" &&
		strings.TrimSpace(m.Country) != "" &&
		strings.TrimSpace(m.KickoffUTC) != ""
}

// PredictionResult is the canonical prediction, whatever route produced it
type PredictionResult struct {
	Home          string          `json:"home"`
	Away          string          `json:"away"`
	Probabilities Probabilities   `json:"outcomeProbabilities"`
	Meta          *PredictionMeta `json:"meta,omitempty"`
	Note          string          `json:"note,omitempty"`
	Route         string          `json:"route,omitempty"`
}

// RiskFlags are the flags precomputed by the weather service
type RiskFlags struct {
	RainRisk *float64 `json:"rain_risk,omitempty"`
	WindRisk *bool    `json:"wind_risk,omitempty"`
	HeatRisk *bool    `json:"heat_risk,omitempty"`
}

type WeatherSummary struct {
	KickoffISO  string     `json:"kickoff_iso"`
	AvgTemp     *float64   `json:"avg_temp,omitempty"`
	AvgHumidity *float64   `json:"avg_humidity,omitempty"`
	TotalPrecip *float64   `json:"total_precip,omitempty"`
	AvgWind     *float64   `json:"avg_wind,omitempty"`
	RiskFlags   *RiskFlags `json:"flags,omitempty"`
	PitchNotes  []string   `json:"pitch_notes,omitempty"`
}

// RiskBadges are the display badges derived on the client side. Calm is the
// "no risk" badge: set only when no flag is raised at all, so a rain_risk
// at or below the threshold shows neither the rain badge nor Calm.
type RiskBadges struct {
	Rain bool `json:"rain"`
	Wind bool `json:"wind"`
	Heat bool `json:"heat"`
	Calm bool `json:"none"`
}

// None reports that the "no risk" badge is shown.
func (b RiskBadges) None() bool {
	return b.Calm
}

const (
	SummarySourceLocal = "local"
	SummarySourceUTC   = "utc"
)

// WeatherContext is the summary chosen for display plus its derived badges
type WeatherContext struct {
	Summary      WeatherSummary `json:"summary"`
	Source       string         `json:"source"`
	Timezone     string         `json:"timezone,omitempty"`
	KickoffLocal string         `json:"kickoffLocal,omitempty"`
	Display      string         `json:"display,omitempty"`
	Badges       RiskBadges     `json:"badges"`
}

// EnrichedResult is built once per successful prediction. Weather stays nil
// when enrichment was skipped or failed.
type EnrichedResult struct {
	Prediction   PredictionResult `json:"prediction"`
	Weather      *WeatherContext  `json:"weather,omitempty"`
	LocalKickoff string           `json:"localKickoff,omitempty"`
}
