package probax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePrediction(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected PredictionResult
	}{
		{
			name: "flat probabilities with meta",
			body: `{"p_home": 0.45, "p_draw": 0.3, "p_away": 0.25,
				"meta": {"stadium": "San Siro", "country": "Italy", "kickoff_iso_utc": "2025-08-25T18:45:00Z"}}`,
			expected: PredictionResult{
				Home:          "Inter",
				Away:          "AC Milan",
				Probabilities: Probabilities{Home: 0.45, Draw: 0.3, Away: 0.25},
				Meta:          &PredictionMeta{Venue: "San Siro", Country: "Italy", KickoffUTC: "2025-08-25T18:45:00Z"},
			},
		},
		{
			name: "flat probabilities without meta",
			body: `{"home": "Internazionale", "away": {"name": "Milan"}, "p_home": 0.5, "p_away": 0.2, "note": "fallback model"}`,
			expected: PredictionResult{
				Home:          "Internazionale",
				Away:          "Milan",
				Probabilities: Probabilities{Home: 0.5, Away: 0.2},
				Note:          "fallback model",
			},
		},
		{
			name: "markets with word keys",
			body: `{"match": {"home": "Inter", "away": "Milan", "country": "Italy", "venue": "Giuseppe Meazza", "kickoff_iso": "2025-08-25T18:45:00Z"},
				"predictions": [{"market": "1X2", "probabilities": {"Home": 0.5, "Draw": 0.28, "Away": 0.22}}]}`,
			expected: PredictionResult{
				Home:          "Inter",
				Away:          "Milan",
				Probabilities: Probabilities{Home: 0.5, Draw: 0.28, Away: 0.22},
				Meta:          &PredictionMeta{Venue: "Giuseppe Meazza", Country: "Italy", KickoffUTC: "2025-08-25T18:45:00Z"},
			},
		},
		{
			name: "markets with 1/X/2 keys picks the 1X2 market",
			body: `{"predictions": [
					{"market": "over_under_2_5", "probabilities": {"Over": 0.6, "Under": 0.4}},
					{"market": "1x2", "probabilities": {"1": 0.4, "X": 0.35, "2": 0.25}}
				], "warnings": ["stale odds", "low liquidity"]}`,
			expected: PredictionResult{
				Home:          "Inter",
				Away:          "AC Milan",
				Probabilities: Probabilities{Home: 0.4, Draw: 0.35, Away: 0.25},
				Note:          "stale odds",
			},
		},
		{
			name: "first market when none is labelled 1X2",
			body: `{"predictions": [{"market": "result", "probabilities": {"Home": 0.7, "Draw": 0.2, "Away": 0.1}}]}`,
			expected: PredictionResult{
				Home:          "Inter",
				Away:          "AC Milan",
				Probabilities: Probabilities{Home: 0.7, Draw: 0.2, Away: 0.1},
			},
		},
		{
			name: "probabilities are not normalized",
			body: `{"p_home": 0.5, "p_draw": 0.5, "p_away": 0.5}`,
			expected: PredictionResult{
				Home:          "Inter",
				Away:          "AC Milan",
				Probabilities: Probabilities{Home: 0.5, Draw: 0.5, Away: 0.5},
			},
		},
		{
			name: "meta falls back to the weather block",
			body: `{"p_home": 0.4, "p_draw": 0.3, "p_away": 0.3,
				"meta": {"country": "England"},
				"weather": {"stadium": "Anfield", "kickoff_iso": "2025-09-01T15:00:00Z"}}`,
			expected: PredictionResult{
				Home:          "Inter",
				Away:          "AC Milan",
				Probabilities: Probabilities{Home: 0.4, Draw: 0.3, Away: 0.3},
				Meta:          &PredictionMeta{Venue: "Anfield", Country: "England", KickoffUTC: "2025-09-01T15:00:00Z"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NormalizePrediction([]byte(tt.body), "Inter", "AC Milan")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestNormalizePrediction_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not an object", body: `[0.4, 0.3, 0.3]`},
		{name: "no probabilities", body: `{"meta": {"stadium": "San Siro"}}`},
		{name: "empty predictions", body: `{"predictions": []}`},
		{name: "predictions not a list", body: `{"predictions": {"1X2": {}}}`},
		{name: "probability not a number", body: `{"p_home": "high"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizePrediction([]byte(tt.body), "Inter", "AC Milan")
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestPredictionVariant_String(t *testing.T) {
	assert.Equal(t, "flat", variantFlat.String())
	assert.Equal(t, "markets", variantMarkets.String())
	assert.Equal(t, "unknown", variantUnknown.String())
}
