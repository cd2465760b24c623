package probax

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const weatherPath = "/api/v1/weather/global"

func sanSiroResult() PredictionResult {
	return PredictionResult{
		Home:          "Inter",
		Away:          "AC Milan",
		Probabilities: Probabilities{Home: 0.45, Draw: 0.3, Away: 0.25},
		Meta:          &PredictionMeta{Venue: "San Siro", Country: "Italy", KickoffUTC: "2025-08-25T18:45:00Z"},
	}
}

func TestContextEnricher_Enrich_LocalSummary(t *testing.T) {
	fb := newFakeBackend(t)
	fb.respond(http.MethodGet, weatherPath, http.StatusOK, `{"results": {"local": {
		"timezone": "Europe/Rome",
		"utc_offset_seconds": 7200,
		"kickoff_local": "2025-08-25T20:45:00",
		"summary": {"kickoff_iso": "2025-08-25T20:45:00", "avg_temp": 24.5, "total_precip": 3.2,
			"flags": {"rain_risk": 0.5, "wind_risk": false, "heat_risk": false},
			"pitch_notes": ["Wet surface expected"]}
	}}}`)

	weather := fb.service().Enricher.Enrich(context.Background(), sanSiroResult())
	require.NotNil(t, weather)

	assert.Equal(t, SummarySourceLocal, weather.Source)
	assert.Equal(t, "Europe/Rome", weather.Timezone)
	assert.Equal(t, RiskBadges{Rain: true}, weather.Badges)
	assert.Equal(t, "Mon 25 Aug 2025, 20:45 (Europe/Rome)", weather.Display)
	assert.Equal(t, []string{"Wet surface expected"}, weather.Summary.PitchNotes)
	require.NotNil(t, weather.Summary.AvgTemp)
	assert.Equal(t, 24.5, *weather.Summary.AvgTemp)

	calls := fb.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "San Siro", calls[0].Query.Get("stadium"))
	assert.Equal(t, "Italy", calls[0].Query.Get("country"))
	assert.Equal(t, "2025-08-25T18:45:00Z", calls[0].Query.Get("kickoff_iso"))
	assert.Equal(t, "both", calls[0].Query.Get("tz_mode"))
}

func TestContextEnricher_Enrich_WindOnly(t *testing.T) {
	fb := newFakeBackend(t)
	fb.respond(http.MethodGet, weatherPath, http.StatusOK, `{"results": {
		"utc": {"summary": {"kickoff_iso": "2025-08-25T18:45:00Z", "flags": {"rain_risk": 0.9, "wind_risk": false}}},
		"local": {"timezone": "Europe/Rome", "kickoff_local": "2025-08-25T20:45:00",
			"summary": {"kickoff_iso": "2025-08-25T20:45:00", "flags": {"rain_risk": 0.1, "wind_risk": true}}}
	}}`)

	weather := fb.service().Enricher.Enrich(context.Background(), sanSiroResult())
	require.NotNil(t, weather)

	assert.Equal(t, SummarySourceLocal, weather.Source)
	assert.Equal(t, RiskBadges{Wind: true}, weather.Badges)
}

func TestContextEnricher_Enrich_UTCFallback(t *testing.T) {
	fb := newFakeBackend(t)
	fb.respond(http.MethodGet, weatherPath, http.StatusOK, `{"results": {
		"utc": {"timezone": "UTC", "summary": {"kickoff_iso": "2025-08-25T18:45:00Z", "flags": {"heat_risk": true}}},
		"local": {"timezone": "Europe/Rome"}
	}}`)

	weather := fb.service().Enricher.Enrich(context.Background(), sanSiroResult())
	require.NotNil(t, weather)

	assert.Equal(t, SummarySourceUTC, weather.Source)
	assert.Equal(t, RiskBadges{Heat: true}, weather.Badges)
	assert.Empty(t, weather.Display)
}

func TestContextEnricher_Enrich_IncompleteMetaMakesNoRequest(t *testing.T) {
	fb := newFakeBackend(t)
	enricher := fb.service().Enricher

	noKickoff := sanSiroResult()
	noKickoff.Meta = &PredictionMeta{Venue: "San Siro", Country: "Italy"}
	assert.Nil(t, enricher.Enrich(context.Background(), noKickoff))

	noMeta := sanSiroResult()
	noMeta.Meta = nil
	assert.Nil(t, enricher.Enrich(context.Background(), noMeta))

	assert.Empty(t, fb.calls())
}

func TestContextEnricher_Enrich_FailuresAreSwallowed(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"detail": "provider down"}`},
		{name: "detail on success status", status: http.StatusOK, body: `{"detail": "stadium not found"}`},
		{name: "no results", status: http.StatusOK, body: `{}`},
		{name: "results without summaries", status: http.StatusOK, body: `{"results": {"utc": {}, "local": {}}}`},
		{name: "wrong shape", status: http.StatusOK, body: `{"results": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := newFakeBackend(t)
			fb.respond(http.MethodGet, weatherPath, tt.status, tt.body)

			assert.Nil(t, fb.service().Enricher.Enrich(context.Background(), sanSiroResult()))
			assert.Len(t, fb.calls(), 1)
		})
	}
}

func TestDeriveBadges(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	b := func(v bool) *bool { return &v }

	tests := []struct {
		name     string
		summary  *WeatherSummary
		expected RiskBadges
	}{
		{name: "nil summary", summary: nil, expected: RiskBadges{Calm: true}},
		{name: "no flags", summary: &WeatherSummary{}, expected: RiskBadges{Calm: true}},
		{name: "zero rain", summary: &WeatherSummary{RiskFlags: &RiskFlags{RainRisk: f(0)}}, expected: RiskBadges{Calm: true}},
		{name: "rain at threshold shows no badge at all", summary: &WeatherSummary{RiskFlags: &RiskFlags{RainRisk: f(0.2)}}},
		{name: "light rain shows no badge at all", summary: &WeatherSummary{RiskFlags: &RiskFlags{RainRisk: f(0.1)}}},
		{name: "rain above threshold", summary: &WeatherSummary{RiskFlags: &RiskFlags{RainRisk: f(0.21)}}, expected: RiskBadges{Rain: true}},
		{name: "all flags", summary: &WeatherSummary{RiskFlags: &RiskFlags{RainRisk: f(1), WindRisk: b(true), HeatRisk: b(true)}}, expected: RiskBadges{Rain: true, Wind: true, Heat: true}},
		{name: "false flags", summary: &WeatherSummary{RiskFlags: &RiskFlags{WindRisk: b(false), HeatRisk: b(false)}}, expected: RiskBadges{Calm: true}},
		{name: "wind only", summary: &WeatherSummary{RiskFlags: &RiskFlags{WindRisk: b(true)}}, expected: RiskBadges{Wind: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DeriveBadges(tt.summary))
		})
	}
}

func TestBuildEnrichedResult(t *testing.T) {
	prediction := sanSiroResult()

	bare := BuildEnrichedResult(prediction, nil)
	assert.Equal(t, prediction, bare.Prediction)
	assert.Nil(t, bare.Weather)
	assert.Empty(t, bare.LocalKickoff)

	weather := &WeatherContext{Source: SummarySourceLocal, Display: "Mon 25 Aug 2025, 20:45 (Europe/Rome)"}
	enriched := BuildEnrichedResult(prediction, weather)
	assert.Same(t, weather, enriched.Weather)
	assert.Equal(t, weather.Display, enriched.LocalKickoff)
}

func TestService_PredictMatch(t *testing.T) {
	fb := newFakeBackend(t)
	fb.respond(http.MethodPost, "/api/v1/match/aggregate", http.StatusOK, sanSiroPrediction)
	fb.respond(http.MethodGet, weatherPath, http.StatusOK, `{"results": {"local": {"timezone": "Europe/Rome",
		"kickoff_local": "2025-08-25T20:45:00", "summary": {"kickoff_iso": "2025-08-25T20:45:00", "flags": {"rain_risk": 0.5}}}}}`)

	result, err := fb.service().PredictMatch(context.Background(), interMilan())
	require.NoError(t, err)

	assert.Equal(t, Probabilities{Home: 0.45, Draw: 0.3, Away: 0.25}, result.Prediction.Probabilities)
	require.NotNil(t, result.Weather)
	assert.True(t, result.Weather.Badges.Rain)
	assert.Equal(t, "Mon 25 Aug 2025, 20:45 (Europe/Rome)", result.LocalKickoff)
	assert.Equal(t, []string{"POST /api/v1/match/aggregate", "GET " + weatherPath}, fb.routes())
}

func TestService_PredictMatch_WeatherFailureKeepsPrediction(t *testing.T) {
	fb := newFakeBackend(t)
	fb.respond(http.MethodPost, "/api/v1/match/aggregate", http.StatusOK, sanSiroPrediction)
	fb.respond(http.MethodGet, weatherPath, http.StatusServiceUnavailable, `{}`)

	result, err := fb.service().PredictMatch(context.Background(), interMilan())
	require.NoError(t, err)
	assert.Nil(t, result.Weather)
	assert.Equal(t, 0.45, result.Prediction.Probabilities.Home)
}

func TestService_PredictMatch_SameTeamIsRejected(t *testing.T) {
	fb := newFakeBackend(t)

	inter := &TeamCandidate{ID: "108", Name: "Inter"}
	_, err := fb.service().PredictMatch(context.Background(), MatchRequest{Home: inter, Away: inter})

	assert.ErrorIs(t, err, ErrInvalidMatchRequest)
	assert.Empty(t, fb.calls())
}
