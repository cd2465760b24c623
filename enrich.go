package probax

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
)

// RainRiskThreshold is the rain_risk above which the rain badge is shown.
const RainRiskThreshold = 0.2

// weatherResponse is the body of the weather-context endpoint
type weatherResponse struct {
	Results *weatherResults `json:"results"`
}

type weatherResults struct {
	UTC   *weatherResult `json:"utc"`
	Local *weatherResult `json:"local"`
}

type weatherResult struct {
	Timezone         string          `json:"timezone"`
	UTCOffsetSeconds int             `json:"utc_offset_seconds"`
	KickoffLocal     string          `json:"kickoff_local"`
	Summary          *WeatherSummary `json:"summary"`
}

// ContextEnricher adds weather context to a prediction. It is best effort:
// failures never reach the caller.
type ContextEnricher struct {
	backend *Backend
	path    string
	logger  *slog.Logger
}

func NewContextEnricher(backend *Backend, cfg Config) *ContextEnricher {
	return &ContextEnricher{
		backend: backend,
		path:    cfg.Routes.Weather,
		logger:  backend.logger,
	}
}

// Enrich returns the weather context for the prediction's venue and
// kickoff, or nil when the meta is incomplete or anything fails.
func (e *ContextEnricher) Enrich(ctx context.Context, result PredictionResult) *WeatherContext {
	if !result.Meta.Complete() {
		return nil
	}

	params := url.Values{}
	params.Set("stadium", result.Meta.Venue)
	params.Set("country", result.Meta.Country)
	params.Set("kickoff_iso", result.Meta.KickoffUTC)
	params.Set("tz_mode", "both")

	body, err := e.backend.Do(ctx, Call{
		Capability: CapabilityWeather,
		Method:     http.MethodGet,
		Path:       e.path,
		Query:      params,
	})
	if err != nil {
		e.backend.metrics.observeDegraded(CapabilityWeather)
		e.logger.Warn("Weather context unavailable", "venue", result.Meta.Venue, "error", err)
		return nil
	}

	var resp weatherResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		e.backend.metrics.observeDegraded(CapabilityWeather)
		e.logger.Warn("Weather context malformed", "venue", result.Meta.Venue, "error", err)
		return nil
	}

	return chooseWeather(resp.Results)
}

// chooseWeather prefers the local summary, then the UTC one.
func chooseWeather(results *weatherResults) *WeatherContext {
	if results == nil {
		return nil
	}

	if r := results.Local; r != nil && r.Summary != nil {
		return &WeatherContext{
			Summary:      *r.Summary,
			Source:       SummarySourceLocal,
			Timezone:     r.Timezone,
			KickoffLocal: r.KickoffLocal,
			Display:      LocalKickoffDisplay(r.KickoffLocal, r.Timezone),
			Badges:       DeriveBadges(r.Summary),
		}
	}
	if r := results.UTC; r != nil && r.Summary != nil {
		return &WeatherContext{
			Summary:  *r.Summary,
			Source:   SummarySourceUTC,
			Timezone: r.Timezone,
			Badges:   DeriveBadges(r.Summary),
		}
	}
	return nil
}

// DeriveBadges computes the display badges: rain above RainRiskThreshold,
// wind and heat mirroring the backend flags, and Calm when rain_risk is
// zero or missing and neither wind nor heat is flagged.
func DeriveBadges(s *WeatherSummary) RiskBadges {
	if s == nil || s.RiskFlags == nil {
		return RiskBadges{Calm: true}
	}
	f := s.RiskFlags
	b := RiskBadges{
		Rain: f.RainRisk != nil && *f.RainRisk > RainRiskThreshold,
		Wind: f.WindRisk != nil && *f.WindRisk,
		Heat: f.HeatRisk != nil && *f.HeatRisk,
	}
	b.Calm = (f.RainRisk == nil || *f.RainRisk == 0) && !b.Wind && !b.Heat
	return b
}

// BuildEnrichedResult assembles the display model from a prediction and its
// optional weather context.
func BuildEnrichedResult(prediction PredictionResult, weather *WeatherContext) EnrichedResult {
	out := EnrichedResult{Prediction: prediction, Weather: weather}
	if weather != nil {
		out.LocalKickoff = weather.Display
	}
	return out
}
