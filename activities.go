package probax

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
)

// Application error types returned by the prediction activity and workflow.
const (
	BackendUnavailableErrorType  = "BackendUnavailable"
	InvalidMatchRequestErrorType = "InvalidMatchRequest"
)

// Activities exposes the service to Temporal workflows.
type Activities struct {
	Service *Service
}

func NewActivities(service *Service) *Activities {
	return &Activities{Service: service}
}

// ResolveTeams never fails: lookups degrade to an empty list.
func (a *Activities) ResolveTeams(ctx context.Context, query string) ([]TeamCandidate, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Resolving teams", "query", query)

	candidates := a.Service.Resolver.Resolve(ctx, query)
	logger.Info("Resolved teams", "query", query, "count", len(candidates))
	return candidates, nil
}

func (a *Activities) SuggestTeams(ctx context.Context, limit int) ([]TeamCandidate, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Fetching default team suggestions", "limit", limit)

	return a.Service.Resolver.SuggestDefault(ctx, limit), nil
}

func (a *Activities) Predict(ctx context.Context, req MatchRequest) (PredictionResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Fetching prediction", "home", req.Home, "away", req.Away)

	result, err := a.Service.Predictor.Predict(ctx, req)
	if err != nil {
		errType := BackendUnavailableErrorType
		if errors.Is(err, ErrInvalidMatchRequest) {
			errType = InvalidMatchRequestErrorType
		}
		return PredictionResult{}, temporal.NewNonRetryableApplicationError(err.Error(), errType, err)
	}
	return result, nil
}

// Enrich never fails: a nil context means the prediction is shown without
// weather.
func (a *Activities) Enrich(ctx context.Context, prediction PredictionResult) (*WeatherContext, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Fetching weather context", "meta", prediction.Meta)

	return a.Service.Enricher.Enrich(ctx, prediction), nil
}
