package probax

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// activityOptions allows a single attempt per activity: the fallback is
// across routes inside the activity, never a retry of the same route.
func activityOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: 45 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
}

// PredictMatchWorkflow fetches the prediction for two selected teams and,
// when the prediction carries venue, country and kickoff, its weather context.
func PredictMatchWorkflow(ctx workflow.Context, req MatchRequest) (EnrichedResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting Predict Match Workflow.")

	if err := req.Validate(); err != nil {
		return EnrichedResult{}, temporal.NewNonRetryableApplicationError(err.Error(), InvalidMatchRequestErrorType, err)
	}

	ctx = workflow.WithActivityOptions(ctx, activityOptions())

	result, err := predictAndEnrich(ctx, req, nil)
	if err != nil {
		logger.Error("Prediction failed", "error", err)
		return EnrichedResult{}, err
	}

	logger.Info("Predict Match Workflow completed.", "route", result.Prediction.Route, "weather", result.Weather != nil)
	return result, nil
}

// predictAndEnrich runs the prediction and then, strictly after it, the
// enrichment. publish, when set, receives the bare prediction as soon as it
// is available.
func predictAndEnrich(ctx workflow.Context, req MatchRequest, publish func(EnrichedResult)) (EnrichedResult, error) {
	logger := workflow.GetLogger(ctx)
	var a *Activities

	var prediction PredictionResult
	if err := workflow.ExecuteActivity(ctx, a.Predict, req).Get(ctx, &prediction); err != nil {
		return EnrichedResult{}, err
	}

	result := BuildEnrichedResult(prediction, nil)
	if publish != nil {
		publish(result)
	}

	if !prediction.Meta.Complete() {
		logger.Info("Skipping weather enrichment, incomplete meta", "home", prediction.Home, "away", prediction.Away)
		return result, nil
	}

	var weather *WeatherContext
	if err := workflow.ExecuteActivity(ctx, a.Enrich, prediction).Get(ctx, &weather); err != nil {
		logger.Warn("Weather enrichment failed", "error", err)
		return result, nil
	}
	return BuildEnrichedResult(prediction, weather), nil
}

// userMessage maps any prediction failure to the single message shown to
// the user.
func userMessage(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) && appErr.Type() == InvalidMatchRequestErrorType {
		return ErrInvalidMatchRequest.Error()
	}
	if errors.Is(err, ErrInvalidMatchRequest) {
		return ErrInvalidMatchRequest.Error()
	}
	return ErrBackendUnavailable.Error()
}
