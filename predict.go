package probax

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// ErrBackendUnavailable is returned when every prediction tier failed.
var ErrBackendUnavailable = errors.New("prediction service unavailable, please try again later")

// PredictionFetcher obtains outcome probabilities, walking the prediction
// tiers in priority order and stopping at the first success.
type PredictionFetcher struct {
	backend *Backend
	tiers   []PredictTier
	logger  *slog.Logger
}

func NewPredictionFetcher(backend *Backend, cfg Config) *PredictionFetcher {
	return &PredictionFetcher{
		backend: backend,
		tiers:   cfg.Routes.Predict,
		logger:  backend.logger,
	}
}

type predictByIDs struct {
	HomeID string `json:"homeId"`
	AwayID string `json:"awayId"`
}

type predictByNames struct {
	Home string `json:"home"`
	Away string `json:"away"`
}

// Predict expects a request that already passed MatchRequest.Validate.
// A failing tier is never retried; the next one is attempted instead.
func (f *PredictionFetcher) Predict(ctx context.Context, req MatchRequest) (PredictionResult, error) {
	if req.Home == nil || req.Away == nil {
		return PredictionResult{}, ErrInvalidMatchRequest
	}
	homeName, awayName := req.Home.Name, req.Away.Name

	var lastErr error
	for _, tier := range f.tiers {
		call, ok := tierCall(tier, req)
		if !ok {
			f.logger.Debug("Skipping prediction tier without team ids", "path", tier.Path)
			continue
		}

		body, err := f.backend.Do(ctx, call)
		if err == nil {
			var result PredictionResult
			result, err = NormalizePrediction(body, homeName, awayName)
			if err == nil {
				result.Route = call.Method + " " + call.Path
				f.logger.Info("Prediction fetched", "route", result.Route, "home", result.Home, "away", result.Away)
				return result, nil
			}
		}

		lastErr = err
		f.logger.Warn("Prediction tier failed, trying next", "method", call.Method, "path", call.Path, "error", err)
		if ctx.Err() != nil {
			break
		}
	}

	f.backend.metrics.observeDegraded(CapabilityPredict)
	if lastErr == nil {
		return PredictionResult{}, ErrBackendUnavailable
	}
	return PredictionResult{}, fmt.Errorf("%w: %w", ErrBackendUnavailable, lastErr)
}

func tierCall(tier PredictTier, req MatchRequest) (Call, bool) {
	call := Call{
		Capability: CapabilityPredict,
		Method:     tier.Method,
		Path:       tier.Path,
	}
	if call.Method == "" {
		call.Method = http.MethodPost
	}

	switch tier.Body {
	case PredictByIDs:
		if req.Home.ID == "" || req.Away.ID == "" {
			return Call{}, false
		}
		if call.Method == http.MethodGet {
			call.Query = url.Values{"homeId": {req.Home.ID}, "awayId": {req.Away.ID}}
		} else {
			call.Body = predictByIDs{HomeID: req.Home.ID, AwayID: req.Away.ID}
		}
	default:
		if call.Method == http.MethodGet {
			call.Query = url.Values{"home": {req.Home.Name}, "away": {req.Away.Name}}
		} else {
			call.Body = predictByNames{Home: req.Home.Name, Away: req.Away.Name}
		}
	}
	return call, true
}
