package probax

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// TeamResolver turns free text into team candidates. Lookups are a
// non-critical enhancement: every failure degrades to an empty list.
type TeamResolver struct {
	backend     *Backend
	routes      Routes
	gate        Debouncer
	searchLimit int
	logger      *slog.Logger
}

func NewTeamResolver(backend *Backend, cfg Config) *TeamResolver {
	limit := cfg.SearchLimit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return &TeamResolver{
		backend:     backend,
		routes:      cfg.Routes,
		gate:        NewDebouncer(cfg.DebounceWindow, MinQueryLength),
		searchLimit: limit,
		logger:      backend.logger,
	}
}

// Resolve looks up teams matching query, trying the search routes in order.
// Queries shorter than the minimum length return an empty list without any
// request.
func (r *TeamResolver) Resolve(ctx context.Context, query string) []TeamCandidate {
	q := r.gate.Normalize(query)
	if !r.gate.Gate(q) {
		return []TeamCandidate{}
	}

	for i, path := range r.routes.Search {
		params := url.Values{}
		params.Set("q", q)
		// The primary route takes an explicit limit; the legacy routes only q.
		if i == 0 {
			params.Set("limit", strconv.Itoa(r.searchLimit))
		}

		candidates, err := r.fetch(ctx, CapabilitySearch, path, params)
		if err != nil {
			r.logger.Debug("Team search route failed, trying next", "path", path, "query", q, "error", err)
			continue
		}
		return candidates
	}

	r.backend.metrics.observeDegraded(CapabilitySearch)
	r.logger.Warn("All team search routes failed", "query", q)
	return []TeamCandidate{}
}

// SuggestDefault fetches the unfiltered suggestion list used to seed both
// inputs before any typing.
func (r *TeamResolver) SuggestDefault(ctx context.Context, limit int) []TeamCandidate {
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	candidates, err := r.fetch(ctx, CapabilitySuggest, r.routes.Suggest, params)
	if err != nil {
		r.backend.metrics.observeDegraded(CapabilitySuggest)
		r.logger.Warn("Default team suggestions unavailable", "error", err)
		return []TeamCandidate{}
	}
	return candidates
}

func (r *TeamResolver) fetch(ctx context.Context, capability, path string, params url.Values) ([]TeamCandidate, error) {
	body, err := r.backend.Do(ctx, Call{
		Capability: capability,
		Method:     http.MethodGet,
		Path:       path,
		Query:      params,
	})
	if err != nil {
		return nil, err
	}
	candidates, err := decodeCandidates(body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	return candidates, nil
}

// decodeCandidates accepts a bare list or an object wrapping the list under
// one of the keys used by the different backend versions.
func decodeCandidates(body []byte) ([]TeamCandidate, error) {
	var list []TeamCandidate
	if err := json.Unmarshal(body, &list); err == nil {
		return dedupeCandidates(list), nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	for _, key := range []string{"teams", "results", "items", "data"} {
		raw, ok := wrapped[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformedResponse, key, err)
		}
		return dedupeCandidates(list), nil
	}
	return nil, fmt.Errorf("%w: no team list in body", ErrMalformedResponse)
}

// dedupeCandidates drops nameless entries and keeps the first candidate of
// each identity.
func dedupeCandidates(in []TeamCandidate) []TeamCandidate {
	out := make([]TeamCandidate, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, c := range in {
		c.Name = strings.TrimSpace(c.Name)
		c.ID = strings.TrimSpace(c.ID)
		if c.Name == "" {
			continue
		}
		key := c.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

// UnmarshalJSON accepts numeric ids as well as string ids.
func (c *TeamCandidate) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID      json.RawMessage `json:"id"`
		Name    string          `json:"name"`
		Country string          `json:"country"`
		League  string          `json:"league"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*c = TeamCandidate{Name: raw.Name, Country: raw.Country, League: raw.League}
	id := strings.TrimSpace(string(raw.ID))
	if id == "" || id == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw.ID, &s); err == nil {
		c.ID = s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw.ID, &n); err != nil {
		return fmt.Errorf("team id: %w", err)
	}
	c.ID = n.String()
	return nil
}
