package fetch

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/avivkl/matchboard/internal/matchsvc"
)

// MatchFetcher fetches the match list for a selected subject. Its dependency
// set is {subject, minScore}: changing either triggers a full refetch that
// replaces prior results. With no subject selected the fetcher holds an empty
// list and performs no request.
type MatchFetcher struct {
	mu        sync.Mutex
	client    *matchsvc.Client
	kind      matchsvc.SubjectKind
	subjectID string
	minScore  float64

	fetcher *Fetcher[[]*matchsvc.Match]
}

func NewMatchFetcher(logger *zap.Logger, client *matchsvc.Client, minScore float64) *MatchFetcher {
	m := &MatchFetcher{
		client:   client,
		minScore: minScore,
	}
	m.fetcher = New(logger, m.produce)
	m.fetcher.Reset([]*matchsvc.Match{})

	return m
}

// SetSubject selects the entity to match against. An empty id deselects:
// state resets to an empty list without fetching, and any in-flight response
// is invalidated. Unchanged values do not refetch.
func (m *MatchFetcher) SetSubject(ctx context.Context, kind matchsvc.SubjectKind, id string) <-chan State[[]*matchsvc.Match] {
	m.mu.Lock()
	if m.kind == kind && m.subjectID == id {
		m.mu.Unlock()
		return m.settled()
	}
	m.kind = kind
	m.subjectID = id
	m.mu.Unlock()

	return m.apply(ctx)
}

// SetMinScore updates the score threshold. A changed value refetches the full
// list server-side; an equal value is a no-op.
func (m *MatchFetcher) SetMinScore(ctx context.Context, minScore float64) <-chan State[[]*matchsvc.Match] {
	m.mu.Lock()
	if m.minScore == minScore {
		m.mu.Unlock()
		return m.settled()
	}
	m.minScore = minScore
	m.mu.Unlock()

	return m.apply(ctx)
}

// Refetch re-runs the current query, replacing prior results.
func (m *MatchFetcher) Refetch(ctx context.Context) <-chan State[[]*matchsvc.Match] {
	return m.apply(ctx)
}

func (m *MatchFetcher) State() State[[]*matchsvc.Match] {
	return m.fetcher.State()
}

// LastError exposes the typed failure behind the current error message, so a
// deleted subject (NotFound) can be rendered distinctly from an outage.
func (m *MatchFetcher) LastError() error {
	return m.fetcher.LastError()
}

func (m *MatchFetcher) OnChange(fn func(State[[]*matchsvc.Match])) {
	m.fetcher.OnChange(fn)
}

func (m *MatchFetcher) Close() {
	m.fetcher.Close()
}

func (m *MatchFetcher) apply(ctx context.Context) <-chan State[[]*matchsvc.Match] {
	m.mu.Lock()
	id := m.subjectID
	m.mu.Unlock()

	if id == "" {
		m.fetcher.Reset([]*matchsvc.Match{})
		return m.settled()
	}

	return m.fetcher.Refetch(ctx)
}

func (m *MatchFetcher) produce(context.Context) ([]*matchsvc.Match, error) {
	m.mu.Lock()
	kind := m.kind
	id := m.subjectID
	minScore := m.minScore
	m.mu.Unlock()

	var matches *matchsvc.Matches
	var err error
	switch kind {
	case matchsvc.SubjectCandidate:
		matches, err = m.client.MatchesForCandidate(id, minScore, 0)
	case matchsvc.SubjectJob:
		matches, err = m.client.MatchesForJob(id, minScore)
	default:
		return nil, fmt.Errorf("unknown subject kind: %q", kind)
	}
	if err != nil {
		return nil, err
	}

	return matches.Items, nil
}

// settled returns an already-resolved channel carrying the current state.
func (m *MatchFetcher) settled() <-chan State[[]*matchsvc.Match] {
	done := make(chan State[[]*matchsvc.Match], 1)
	done <- m.fetcher.State()
	close(done)
	return done
}
