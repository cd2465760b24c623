package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	probax "probax-client"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
)

const sessionPrefix = "session-"

type Handlers struct {
	temporalClient client.Client
	service        *probax.Service
	taskQueue      string
	sessionParams  probax.SessionParams
	logger         *slog.Logger
}

// NewHandlers builds the handlers. temporalClient may be nil: the direct
// endpoints keep working and the session endpoints answer 503.
func NewHandlers(temporalClient client.Client, service *probax.Service) *Handlers {
	return &Handlers{
		temporalClient: temporalClient,
		service:        service,
		taskQueue:      probax.TaskQueue(),
		sessionParams: probax.SessionParams{
			DebounceWindow: service.Config.DebounceWindow,
			SuggestLimit:   service.Config.SuggestLimit,
		},
		logger: slog.Default(),
	}
}

// SessionSummary is a running session as listed by GET /api/sessions
type SessionSummary struct {
	SessionID  string `json:"sessionId"`
	WorkflowID string `json:"workflowId"`
	RunID      string `json:"runId"`
	Status     string `json:"status"`
}

func (h *Handlers) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/teams/suggest", h.SuggestTeams)
		r.Get("/teams/search", h.SearchTeams)
		r.Post("/predict", h.Predict)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", h.ListSessions)
			r.Post("/", h.StartSession)

			r.Route("/{sessionId}", func(r chi.Router) {
				r.Get("/", h.GetSession)
				r.Delete("/", h.CloseSession)
				r.Post("/input", h.SessionInput)
				r.Post("/select", h.SessionSelect)
				r.Post("/predict", h.SessionPredict)
			})
		})
	})

	return r
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"backend":  h.service.Backend.BaseURL(),
		"temporal": h.temporalClient != nil,
	})
}

// SuggestTeams returns the unfiltered suggestion list
func (h *Handlers) SuggestTeams(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = h.service.Config.SuggestLimit
	}
	respondJSON(w, http.StatusOK, h.service.Resolver.SuggestDefault(r.Context(), limit))
}

// SearchTeams resolves free text; short queries return an empty list
func (h *Handlers) SearchTeams(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.service.Resolver.Resolve(r.Context(), r.URL.Query().Get("q")))
}

// Predict runs a one-shot prediction, through Temporal when connected
func (h *Handlers) Predict(w http.ResponseWriter, r *http.Request) {
	var req probax.MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	var (
		result probax.EnrichedResult
		err    error
	)
	if h.temporalClient == nil {
		result, err = h.service.PredictMatch(r.Context(), req)
	} else {
		result, err = h.predictWithWorkflow(r.Context(), req)
	}
	if err != nil {
		h.logger.Error("Prediction failed", "error", err)
		respondError(w, http.StatusBadGateway, probax.ErrBackendUnavailable.Error(), nil)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *Handlers) predictWithWorkflow(ctx context.Context, req probax.MatchRequest) (probax.EnrichedResult, error) {
	options := client.StartWorkflowOptions{
		ID:        "predict-" + uuid.NewString(),
		TaskQueue: h.taskQueue,
	}
	we, err := h.temporalClient.ExecuteWorkflow(ctx, options, probax.PredictMatchWorkflow, req)
	if err != nil {
		return probax.EnrichedResult{}, err
	}

	var result probax.EnrichedResult
	err = we.Get(ctx, &result)
	return result, err
}

// StartSession starts a MatchSessionWorkflow for one browser session
func (h *Handlers) StartSession(w http.ResponseWriter, r *http.Request) {
	if !h.requireTemporal(w) {
		return
	}

	sessionID := uuid.NewString()
	options := client.StartWorkflowOptions{
		ID:        sessionPrefix + sessionID,
		TaskQueue: h.taskQueue,
	}

	we, err := h.temporalClient.ExecuteWorkflow(r.Context(), options, probax.MatchSessionWorkflow, h.sessionParams)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to start session", err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"sessionId":  sessionID,
		"workflowId": we.GetID(),
		"runId":      we.GetRunID(),
	})
}

// ListSessions returns the running session workflows
func (h *Handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := []SessionSummary{}
	if h.temporalClient == nil {
		respondJSON(w, http.StatusOK, sessions)
		return
	}

	listRequest := &workflowservice.ListWorkflowExecutionsRequest{
		Query: "WorkflowId STARTS_WITH '" + sessionPrefix + "' AND ExecutionStatus = 'Running'",
	}
	resp, err := h.temporalClient.ListWorkflow(r.Context(), listRequest)
	if err != nil {
		// Listing is informational, an empty list is fine
		h.logger.Warn("Failed to list sessions", "error", err)
		respondJSON(w, http.StatusOK, sessions)
		return
	}

	for _, execution := range resp.Executions {
		workflowID := execution.Execution.WorkflowId
		sessions = append(sessions, SessionSummary{
			SessionID:  strings.TrimPrefix(workflowID, sessionPrefix),
			WorkflowID: workflowID,
			RunID:      execution.Execution.RunId,
			Status:     execution.Status.String(),
		})
	}
	respondJSON(w, http.StatusOK, sessions)
}

// GetSession returns the current session snapshot
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	if !h.requireTemporal(w) {
		return
	}

	value, err := h.temporalClient.QueryWorkflow(r.Context(), workflowID(r), "", probax.QuerySessionState)
	if err != nil {
		respondError(w, http.StatusNotFound, "Session not found", err)
		return
	}

	var state probax.SessionState
	if err := value.Get(&state); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to read session state", err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (h *Handlers) SessionInput(w http.ResponseWriter, r *http.Request) {
	var sig probax.InputSignal
	if err := json.NewDecoder(r.Body).Decode(&sig); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if !sig.Field.Valid() {
		respondError(w, http.StatusBadRequest, "field must be home or away", nil)
		return
	}
	h.signal(w, r, probax.SignalInput, sig)
}

func (h *Handlers) SessionSelect(w http.ResponseWriter, r *http.Request) {
	var sig probax.SelectSignal
	if err := json.NewDecoder(r.Body).Decode(&sig); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if !sig.Field.Valid() || sig.Candidate.Name == "" {
		respondError(w, http.StatusBadRequest, "field and candidate name are required", nil)
		return
	}
	h.signal(w, r, probax.SignalSelect, sig)
}

func (h *Handlers) SessionPredict(w http.ResponseWriter, r *http.Request) {
	h.signal(w, r, probax.SignalPredict, nil)
}

func (h *Handlers) CloseSession(w http.ResponseWriter, r *http.Request) {
	h.signal(w, r, probax.SignalClose, nil)
}

func (h *Handlers) signal(w http.ResponseWriter, r *http.Request, name string, arg any) {
	if !h.requireTemporal(w) {
		return
	}

	err := h.temporalClient.SignalWorkflow(r.Context(), workflowID(r), "", name, arg)
	if err != nil {
		respondError(w, http.StatusNotFound, "Session not found", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handlers) requireTemporal(w http.ResponseWriter) bool {
	if h.temporalClient == nil {
		respondError(w, http.StatusServiceUnavailable, "Sessions need a Temporal server", errors.New("temporal client not connected"))
		return false
	}
	return true
}

func workflowID(r *http.Request) string {
	return sessionPrefix + chi.URLParam(r, "sessionId")
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]string{
		"error": message,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}
