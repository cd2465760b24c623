package probax

import (
	"errors"
	"time"

	"go.temporal.io/sdk/log"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const DefaultIdleTimeout = 30 * time.Minute

// SessionParams configures a MatchSessionWorkflow. Zero values take defaults.
type SessionParams struct {
	DebounceWindow time.Duration `json:"debounceWindow"`
	MinQueryLength int           `json:"minQueryLength"`
	SuggestLimit   int           `json:"suggestLimit"`
	IdleTimeout    time.Duration `json:"idleTimeout"`
}

func (p SessionParams) withDefaults() SessionParams {
	if p.DebounceWindow <= 0 {
		p.DebounceWindow = DefaultDebounceWindow
	}
	if p.MinQueryLength <= 0 {
		p.MinQueryLength = MinQueryLength
	}
	if p.SuggestLimit <= 0 {
		p.SuggestLimit = DefaultSuggestLimit
	}
	if p.IdleTimeout <= 0 {
		p.IdleTimeout = DefaultIdleTimeout
	}
	return p
}

type InputSignal struct {
	Field Field  `json:"field"`
	Text  string `json:"text"`
}

type SelectSignal struct {
	Field     Field         `json:"field"`
	Candidate TeamCandidate `json:"candidate"`
}

// FieldState is the visible state of one team input
type FieldState struct {
	Text       string          `json:"text"`
	Candidates []TeamCandidate `json:"candidates"`
	Selected   *TeamCandidate  `json:"selected,omitempty"`
	Resolved   bool            `json:"resolved"`
	Typed      bool            `json:"typed"`
	Pending    bool            `json:"pending"`
	LookupSeq  int64           `json:"lookupSeq"`
	Lookups    int             `json:"lookups"`
}

// SessionState is the snapshot returned by the sessionState query
type SessionState struct {
	Home       FieldState      `json:"home"`
	Away       FieldState      `json:"away"`
	Loading    bool            `json:"loading"`
	CanPredict bool            `json:"canPredict"`
	Result     *EnrichedResult `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// fieldTimer is the scheduled-but-not-fired lookup of one field.
type fieldTimer struct {
	seq    int64
	query  string
	future workflow.Future
	cancel workflow.CancelFunc
}

// pendingLookup is a team lookup in flight, tagged with the field sequence
// it was started for.
type pendingLookup struct {
	field  Field
	seq    int64
	query  string
	future workflow.Future
}

type matchSession struct {
	params     SessionParams
	debouncer  Debouncer
	state      SessionState
	timers     map[Field]*fieldTimer
	lookups    []pendingLookup
	suggest    workflow.Future
	idle       workflow.Future
	lastSignal time.Time
	predictSeq int64
	closed     bool
	logger     log.Logger
}

var sessionFields = []Field{FieldHome, FieldAway}

// MatchSessionWorkflow is one user's prediction session. It debounces team
// input per field, discards stale lookups, and runs prediction then weather
// enrichment. It ends on the close signal or after IdleTimeout without input.
func MatchSessionWorkflow(ctx workflow.Context, params SessionParams) (SessionState, error) {
	params = params.withDefaults()
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting Match Session Workflow", "debounceWindow", params.DebounceWindow)

	s := &matchSession{
		params:    params,
		debouncer: NewDebouncer(params.DebounceWindow, params.MinQueryLength),
		state: SessionState{
			Home: FieldState{Candidates: []TeamCandidate{}},
			Away: FieldState{Candidates: []TeamCandidate{}},
		},
		timers:     make(map[Field]*fieldTimer),
		lastSignal: workflow.Now(ctx),
		logger:     logger,
	}

	err := workflow.SetQueryHandler(ctx, QuerySessionState, func() (SessionState, error) {
		return s.snapshot(), nil
	})
	if err != nil {
		logger.Error("Failed to set query handler", "error", err)
		return SessionState{}, err
	}

	ctx = workflow.WithActivityOptions(ctx, activityOptions())

	var a *Activities
	s.suggest = workflow.ExecuteActivity(ctx, a.SuggestTeams, params.SuggestLimit)
	s.idle = workflow.NewTimer(ctx, params.IdleTimeout)

	inputCh := workflow.GetSignalChannel(ctx, SignalInput)
	selectCh := workflow.GetSignalChannel(ctx, SignalSelect)
	predictCh := workflow.GetSignalChannel(ctx, SignalPredict)
	closeCh := workflow.GetSignalChannel(ctx, SignalClose)

	for !s.closed {
		selector := workflow.NewSelector(ctx)

		selector.AddReceive(inputCh, func(c workflow.ReceiveChannel, more bool) {
			var sig InputSignal
			c.Receive(ctx, &sig)
			s.touch(ctx)
			s.onInput(ctx, sig)
		})
		selector.AddReceive(selectCh, func(c workflow.ReceiveChannel, more bool) {
			var sig SelectSignal
			c.Receive(ctx, &sig)
			s.touch(ctx)
			s.onSelect(sig)
		})
		selector.AddReceive(predictCh, func(c workflow.ReceiveChannel, more bool) {
			c.Receive(ctx, nil)
			s.touch(ctx)
			s.onPredict(ctx)
		})
		selector.AddReceive(closeCh, func(c workflow.ReceiveChannel, more bool) {
			c.Receive(ctx, nil)
			logger.Info("Session closed by client")
			s.closed = true
		})

		if s.suggest != nil {
			selector.AddFuture(s.suggest, func(f workflow.Future) {
				s.onSuggestions(ctx, f)
			})
		}

		// Fixed field order keeps the selector deterministic on replay.
		for _, field := range sessionFields {
			if t, ok := s.timers[field]; ok {
				field, t := field, t
				selector.AddFuture(t.future, func(f workflow.Future) {
					s.onTimerFired(ctx, field, t, f)
				})
			}
		}

		for _, l := range s.lookups {
			l := l
			selector.AddFuture(l.future, func(f workflow.Future) {
				s.onLookupDone(ctx, l, f)
			})
		}

		selector.AddFuture(s.idle, func(f workflow.Future) {
			s.onIdleTimer(ctx)
		})

		selector.Select(ctx)
	}

	for _, field := range sessionFields {
		s.cancelTimer(field)
	}

	logger.Info("Match Session Workflow completed.")
	return s.snapshot(), nil
}

func (s *matchSession) field(f Field) *FieldState {
	if f == FieldAway {
		return &s.state.Away
	}
	return &s.state.Home
}

func (s *matchSession) touch(ctx workflow.Context) {
	s.lastSignal = workflow.Now(ctx)
}

// onInput handles a keystroke: any edit un-resolves the field and supersedes
// in-flight lookups, then the lookup is rescheduled or, below the minimum
// length, the candidates are cleared without a request.
func (s *matchSession) onInput(ctx workflow.Context, sig InputSignal) {
	if !sig.Field.Valid() {
		s.logger.Warn("Ignoring input for unknown field", "field", sig.Field)
		return
	}

	fs := s.field(sig.Field)
	fs.Text = sig.Text
	fs.Typed = true
	fs.Selected = nil
	fs.Resolved = false

	s.cancelTimer(sig.Field)
	fs.LookupSeq++

	if !s.debouncer.Gate(sig.Text) {
		fs.Candidates = []TeamCandidate{}
		fs.Pending = false
		return
	}

	timerCtx, cancel := workflow.WithCancel(ctx)
	s.timers[sig.Field] = &fieldTimer{
		seq:    fs.LookupSeq,
		query:  s.debouncer.Normalize(sig.Text),
		future: workflow.NewTimer(timerCtx, s.debouncer.Window),
		cancel: cancel,
	}
	fs.Pending = true
}

func (s *matchSession) cancelTimer(field Field) {
	if t, ok := s.timers[field]; ok {
		t.cancel()
		delete(s.timers, field)
	}
}

func (s *matchSession) onTimerFired(ctx workflow.Context, field Field, t *fieldTimer, f workflow.Future) {
	delete(s.timers, field)
	if err := f.Get(ctx, nil); err != nil {
		var canceled *temporal.CanceledError
		if errors.As(err, &canceled) {
			return
		}
		s.logger.Warn("Debounce timer failed", "field", field, "error", err)
		return
	}

	fs := s.field(field)
	if t.seq != fs.LookupSeq {
		return
	}

	var a *Activities
	fs.Lookups++
	s.lookups = append(s.lookups, pendingLookup{
		field:  field,
		seq:    t.seq,
		query:  t.query,
		future: workflow.ExecuteActivity(ctx, a.ResolveTeams, t.query),
	})
	s.logger.Info("Team lookup started", "field", field, "query", t.query, "seq", t.seq)
}

// onLookupDone applies a lookup result only if no newer input superseded it.
func (s *matchSession) onLookupDone(ctx workflow.Context, l pendingLookup, f workflow.Future) {
	s.removeLookup(l)

	var candidates []TeamCandidate
	err := f.Get(ctx, &candidates)

	fs := s.field(l.field)
	if l.seq != fs.LookupSeq {
		s.logger.Info("Discarding stale team lookup", "field", l.field, "query", l.query, "seq", l.seq, "current", fs.LookupSeq)
		return
	}

	fs.Pending = false
	if err != nil {
		s.logger.Warn("Team lookup failed", "field", l.field, "query", l.query, "error", err)
		candidates = nil
	}
	if candidates == nil {
		candidates = []TeamCandidate{}
	}
	fs.Candidates = candidates
}

func (s *matchSession) removeLookup(l pendingLookup) {
	for i := range s.lookups {
		if s.lookups[i].field == l.field && s.lookups[i].seq == l.seq {
			s.lookups = append(s.lookups[:i], s.lookups[i+1:]...)
			return
		}
	}
}

// onSuggestions seeds the fields nobody has typed into yet.
func (s *matchSession) onSuggestions(ctx workflow.Context, f workflow.Future) {
	s.suggest = nil

	var candidates []TeamCandidate
	if err := f.Get(ctx, &candidates); err != nil {
		s.logger.Warn("Default suggestions failed", "error", err)
		return
	}

	for _, field := range sessionFields {
		fs := s.field(field)
		if fs.Typed || fs.Resolved {
			continue
		}
		fs.Candidates = append([]TeamCandidate{}, candidates...)
	}
}

func (s *matchSession) onSelect(sig SelectSignal) {
	if !sig.Field.Valid() || sig.Candidate.Name == "" {
		s.logger.Warn("Ignoring invalid selection", "field", sig.Field)
		return
	}

	s.cancelTimer(sig.Field)

	fs := s.field(sig.Field)
	candidate := sig.Candidate
	fs.LookupSeq++
	fs.Selected = &candidate
	fs.Text = candidate.Name
	fs.Resolved = true
	fs.Pending = false
	fs.Candidates = []TeamCandidate{}
}

func (s *matchSession) request() MatchRequest {
	return MatchRequest{Home: s.state.Home.Selected, Away: s.state.Away.Selected}
}

// onPredict starts the prediction pipeline in a coroutine so that input keeps
// being served while it runs.
func (s *matchSession) onPredict(ctx workflow.Context) {
	if s.state.Loading {
		s.logger.Info("Prediction already in flight")
		return
	}

	req := s.request()
	if err := req.Validate(); err != nil {
		s.state.Error = err.Error()
		return
	}

	s.predictSeq++
	seq := s.predictSeq
	s.state.Result = nil
	s.state.Error = ""
	s.state.Loading = true

	workflow.Go(ctx, func(gctx workflow.Context) {
		result, err := predictAndEnrich(gctx, req, func(r EnrichedResult) {
			if seq != s.predictSeq {
				return
			}
			s.state.Loading = false
			s.state.Result = &r
		})
		if seq != s.predictSeq {
			s.logger.Info("Discarding superseded prediction", "seq", seq)
			return
		}

		s.state.Loading = false
		if err != nil {
			s.logger.Error("Prediction failed", "error", err)
			s.state.Result = nil
			s.state.Error = userMessage(err)
			return
		}
		s.state.Result = &result
	})
}

func (s *matchSession) onIdleTimer(ctx workflow.Context) {
	idleFor := workflow.Now(ctx).Sub(s.lastSignal)
	if idleFor >= s.params.IdleTimeout {
		s.logger.Info("Session idle, closing", "idleFor", idleFor)
		s.closed = true
		return
	}
	s.idle = workflow.NewTimer(ctx, s.params.IdleTimeout-idleFor)
}

func (s *matchSession) snapshot() SessionState {
	out := s.state
	out.CanPredict = !s.state.Loading && s.request().Validate() == nil
	return out
}
