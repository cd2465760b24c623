package probax

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
)

func newPredictEnv() *testsuite.TestWorkflowEnvironment {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(PredictMatchWorkflow)
	env.RegisterActivity(&Activities{})
	return env
}

func TestPredictMatchWorkflow(t *testing.T) {
	env := newPredictEnv()
	var a *Activities

	weather := &WeatherContext{
		Source:  SummarySourceLocal,
		Display: "Mon 25 Aug 2025, 20:45 (Europe/Rome)",
		Badges:  RiskBadges{Rain: true},
	}
	env.OnActivity(a.Predict, mock.Anything, interMilan()).Return(sanSiroResult(), nil).Once()
	env.OnActivity(a.Enrich, mock.Anything, sanSiroResult()).Return(weather, nil).Once()

	env.ExecuteWorkflow(PredictMatchWorkflow, interMilan())

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result EnrichedResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, sanSiroResult(), result.Prediction)
	require.NotNil(t, result.Weather)
	assert.True(t, result.Weather.Badges.Rain)
	assert.Equal(t, weather.Display, result.LocalKickoff)

	env.AssertExpectations(t)
}

func TestPredictMatchWorkflow_IncompleteMetaSkipsEnrichment(t *testing.T) {
	env := newPredictEnv()
	var a *Activities

	prediction := sanSiroResult()
	prediction.Meta = &PredictionMeta{Venue: "San Siro", Country: "Italy"}
	env.OnActivity(a.Predict, mock.Anything, mock.Anything).Return(prediction, nil).Once()

	env.ExecuteWorkflow(PredictMatchWorkflow, interMilan())

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result EnrichedResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Nil(t, result.Weather)
	assert.Empty(t, result.LocalKickoff)

	env.AssertExpectations(t)
	env.AssertNotCalled(t, "Enrich", mock.Anything, mock.Anything)
}

func TestPredictMatchWorkflow_EnrichmentErrorKeepsPrediction(t *testing.T) {
	env := newPredictEnv()
	var a *Activities

	env.OnActivity(a.Predict, mock.Anything, mock.Anything).Return(sanSiroResult(), nil).Once()
	env.OnActivity(a.Enrich, mock.Anything, mock.Anything).Return(nil, errors.New("worker lost")).Once()

	env.ExecuteWorkflow(PredictMatchWorkflow, interMilan())

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result EnrichedResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, 0.45, result.Prediction.Probabilities.Home)
	assert.Nil(t, result.Weather)
}

func TestPredictMatchWorkflow_BackendUnavailable(t *testing.T) {
	env := newPredictEnv()
	var a *Activities

	env.OnActivity(a.Predict, mock.Anything, mock.Anything).Return(PredictionResult{},
		temporal.NewNonRetryableApplicationError(ErrBackendUnavailable.Error(), BackendUnavailableErrorType, nil)).Once()

	env.ExecuteWorkflow(PredictMatchWorkflow, interMilan())

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, BackendUnavailableErrorType, appErr.Type())
	assert.Equal(t, ErrBackendUnavailable.Error(), userMessage(err))

	env.AssertNumberOfCalls(t, "Predict", 1)
	env.AssertNotCalled(t, "Enrich", mock.Anything, mock.Anything)
}

func TestPredictMatchWorkflow_SameTeam(t *testing.T) {
	env := newPredictEnv()

	inter := &TeamCandidate{ID: "108", Name: "Inter"}
	env.ExecuteWorkflow(PredictMatchWorkflow, MatchRequest{Home: inter, Away: &TeamCandidate{ID: "108", Name: "Internazionale"}})

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, InvalidMatchRequestErrorType, appErr.Type())
	assert.Equal(t, ErrInvalidMatchRequest.Error(), userMessage(err))

	env.AssertNotCalled(t, "Predict", mock.Anything, mock.Anything)
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, ErrInvalidMatchRequest.Error(), userMessage(ErrInvalidMatchRequest))
	assert.Equal(t, ErrBackendUnavailable.Error(), userMessage(errors.New("activity timeout")))
	assert.Equal(t, ErrInvalidMatchRequest.Error(),
		userMessage(temporal.NewNonRetryableApplicationError("bad", InvalidMatchRequestErrorType, nil)))
}
