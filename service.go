package probax

import (
	"context"
	"log/slog"
)

// Service bundles the team resolver, prediction fetcher and context
// enricher built on one backend.
type Service struct {
	Config    Config
	Backend   *Backend
	Resolver  *TeamResolver
	Predictor *PredictionFetcher
	Enricher  *ContextEnricher
}

func NewService(cfg Config, opts ...BackendOption) *Service {
	backend := NewBackend(cfg, opts...)
	return &Service{
		Config:    cfg,
		Backend:   backend,
		Resolver:  NewTeamResolver(backend, cfg),
		Predictor: NewPredictionFetcher(backend, cfg),
		Enricher:  NewContextEnricher(backend, cfg),
	}
}

// PredictMatch validates the request, fetches the prediction and, when the
// prediction carries complete meta, the weather context.
func (s *Service) PredictMatch(ctx context.Context, req MatchRequest) (EnrichedResult, error) {
	if err := req.Validate(); err != nil {
		return EnrichedResult{}, err
	}

	prediction, err := s.Predictor.Predict(ctx, req)
	if err != nil {
		return EnrichedResult{}, err
	}

	weather := s.Enricher.Enrich(ctx, prediction)
	if weather == nil && prediction.Meta.Complete() {
		s.logger().Info("Continuing without weather context", "home", prediction.Home, "away", prediction.Away)
	}
	return BuildEnrichedResult(prediction, weather), nil
}

func (s *Service) logger() *slog.Logger {
	return s.Backend.logger
}
