package probax

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// predictionVariant tags the response shapes the prediction routes return.
type predictionVariant int

const (
	variantUnknown predictionVariant = iota
	// {p_home, p_draw, p_away, meta}
	variantFlat
	// {match, predictions: [{market, probabilities}]}
	variantMarkets
)

func (v predictionVariant) String() string {
	switch v {
	case variantFlat:
		return "flat"
	case variantMarkets:
		return "markets"
	}
	return "unknown"
}

// Probability keys, checked in order.
var (
	homeKeys = []string{"Home", "1"}
	drawKeys = []string{"Draw", "X"}
	awayKeys = []string{"Away", "2"}
)

type predictionEnvelope struct {
	PHome       *float64        `json:"p_home"`
	PDraw       *float64        `json:"p_draw"`
	PAway       *float64        `json:"p_away"`
	Predictions json.RawMessage `json:"predictions"`
	Home        json.RawMessage `json:"home"`
	Away        json.RawMessage `json:"away"`
	Match       *matchBlock     `json:"match"`
	Meta        *metaBlock      `json:"meta"`
	Weather     *weatherBlock   `json:"weather"`
	Note        string          `json:"note"`
	Warnings    []string        `json:"warnings"`
}

type marketPrediction struct {
	Market        string             `json:"market"`
	Probabilities map[string]float64 `json:"probabilities"`
}

type matchBlock struct {
	Home       string `json:"home"`
	Away       string `json:"away"`
	Country    string `json:"country"`
	Venue      string `json:"venue"`
	KickoffISO string `json:"kickoff_iso"`
}

type metaBlock struct {
	Stadium       string `json:"stadium"`
	Venue         string `json:"venue"`
	Country       string `json:"country"`
	KickoffISOUTC string `json:"kickoff_iso_utc"`
	KickoffISO    string `json:"kickoff_iso"`
}

type weatherBlock struct {
	Stadium    string `json:"stadium"`
	KickoffISO string `json:"kickoff_iso"`
}

func (e *predictionEnvelope) variant() predictionVariant {
	if len(e.Predictions) > 0 && !bytes.Equal(bytes.TrimSpace(e.Predictions), []byte("null")) {
		return variantMarkets
	}
	if e.PHome != nil || e.PDraw != nil || e.PAway != nil {
		return variantFlat
	}
	return variantUnknown
}

// NormalizePrediction reduces any known prediction body to a
// PredictionResult. home and away are the display names sent with the
// request, used when the body does not name the teams.
func NormalizePrediction(body []byte, home, away string) (PredictionResult, error) {
	var env predictionEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return PredictionResult{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	result := PredictionResult{
		Home: firstNonEmpty(teamName(env.Home), matchField(env.Match, func(m *matchBlock) string { return m.Home }), home),
		Away: firstNonEmpty(teamName(env.Away), matchField(env.Match, func(m *matchBlock) string { return m.Away }), away),
		Meta: env.meta(),
		Note: strings.TrimSpace(env.Note),
	}
	if result.Note == "" && len(env.Warnings) > 0 {
		result.Note = strings.TrimSpace(env.Warnings[0])
	}

	switch env.variant() {
	case variantFlat:
		result.Probabilities = Probabilities{
			Home: deref(env.PHome),
			Draw: deref(env.PDraw),
			Away: deref(env.PAway),
		}
	case variantMarkets:
		var markets []marketPrediction
		if err := json.Unmarshal(env.Predictions, &markets); err != nil {
			return PredictionResult{}, fmt.Errorf("%w: predictions: %w", ErrMalformedResponse, err)
		}
		market, ok := outcomeMarket(markets)
		if !ok {
			return PredictionResult{}, fmt.Errorf("%w: empty predictions", ErrMalformedResponse)
		}
		result.Probabilities = Probabilities{
			Home: pick(market.Probabilities, homeKeys),
			Draw: pick(market.Probabilities, drawKeys),
			Away: pick(market.Probabilities, awayKeys),
		}
	default:
		return PredictionResult{}, fmt.Errorf("%w: no probabilities in body", ErrMalformedResponse)
	}

	return result, nil
}

// outcomeMarket returns the 1X2 market, or the first market when none is
// labelled that way.
func outcomeMarket(markets []marketPrediction) (marketPrediction, bool) {
	if len(markets) == 0 {
		return marketPrediction{}, false
	}
	for _, m := range markets {
		if strings.EqualFold(strings.TrimSpace(m.Market), "1X2") {
			return m, true
		}
	}
	return markets[0], true
}

func (e *predictionEnvelope) meta() *PredictionMeta {
	var m PredictionMeta
	if e.Meta != nil {
		m.Venue = firstNonEmpty(e.Meta.Stadium, e.Meta.Venue)
		m.Country = e.Meta.Country
		m.KickoffUTC = firstNonEmpty(e.Meta.KickoffISOUTC, e.Meta.KickoffISO)
	}
	if e.Match != nil {
		m.Venue = firstNonEmpty(m.Venue, e.Match.Venue)
		m.Country = firstNonEmpty(m.Country, e.Match.Country)
		m.KickoffUTC = firstNonEmpty(m.KickoffUTC, e.Match.KickoffISO)
	}
	if e.Weather != nil {
		m.Venue = firstNonEmpty(m.Venue, e.Weather.Stadium)
		m.KickoffUTC = firstNonEmpty(m.KickoffUTC, e.Weather.KickoffISO)
	}
	if m.Venue == "" && m.Country == "" && m.KickoffUTC == "" {
		return nil
	}
	return &m
}

func pick(probs map[string]float64, keys []string) float64 {
	for _, k := range keys {
		if v, ok := probs[k]; ok {
			return v
		}
	}
	return 0
}

// teamName reads a team given either as a string or as {"name": ...}.
func teamName(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.Name)
	}
	return ""
}

func matchField(m *matchBlock, get func(*matchBlock) string) string {
	if m == nil {
		return ""
	}
	return get(m)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
