package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/seriouslysahid/CodeRed-sub001/internal/cache"
	"github.com/seriouslysahid/CodeRed-sub001/internal/model"
)

var testNow = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func nullLogger() (logrus.FieldLogger, *test.Hook) {
	logger, hook := test.NewNullLogger()
	return logger, hook
}

type memLearnerRepo struct {
	mu       sync.Mutex
	learners map[string]*model.Learner
	saveErr  error
}

func newMemLearnerRepo(learners ...*model.Learner) *memLearnerRepo {
	r := &memLearnerRepo{learners: make(map[string]*model.Learner)}
	for _, l := range learners {
		r.learners[l.ID] = l
	}
	return r
}

func (r *memLearnerRepo) Upsert(_ context.Context, learner *model.Learner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *learner
	r.learners[learner.ID] = &cp
	return nil
}

func (r *memLearnerRepo) GetByID(_ context.Context, id string) (*model.Learner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.learners[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (r *memLearnerRepo) List(_ context.Context, _ int) ([]*model.Learner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Learner, 0, len(r.learners))
	for _, l := range r.learners {
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memLearnerRepo) SaveAssessment(_ context.Context, id string, a model.RiskAssessment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	l, ok := r.learners[id]
	if !ok {
		return errors.New("no such learner")
	}
	l.Risk = &a
	return nil
}

type memOutcomeRepo struct {
	mu        sync.Mutex
	outcomes  []*model.GenerationOutcome
	recordErr error
}

func (r *memOutcomeRepo) Record(_ context.Context, o *model.GenerationOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recordErr != nil {
		return r.recordErr
	}
	r.outcomes = append(r.outcomes, o)
	return nil
}

func (r *memOutcomeRepo) ListByLearner(_ context.Context, learnerID string, limit int) ([]*model.GenerationOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.GenerationOutcome
	for i := len(r.outcomes) - 1; i >= 0; i-- {
		if r.outcomes[i].LearnerID == learnerID {
			out = append(out, r.outcomes[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type memBoard struct {
	scores map[string]float64
}

func newMemBoard() *memBoard { return &memBoard{scores: make(map[string]float64)} }

func (b *memBoard) UpdateScore(_ context.Context, id string, score float64) error {
	b.scores[id] = score
	return nil
}

func (b *memBoard) GetTop(_ context.Context, limit int) ([]cache.RiskBoardEntry, error) {
	var out []cache.RiskBoardEntry
	for id, s := range b.scores {
		out = append(out, cache.RiskBoardEntry{LearnerID: id, Score: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []model.RiskUpdate
}

func (b *recordingBroadcaster) BroadcastToDashboards(msgType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if msgType == MsgRiskUpdated {
		b.messages = append(b.messages, payload.(model.RiskUpdate))
	}
}

// stubGenerator returns scripted results in order, repeating the last one
type stubGenerator struct {
	mu      sync.Mutex
	results []stubResult
	calls   int
}

type stubResult struct {
	text string
	err  error
}

func (g *stubGenerator) Name() string { return "stub" }

func (g *stubGenerator) Generate(_ context.Context, _ string, _ *model.Learner) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.calls
	if i >= len(g.results) {
		i = len(g.results) - 1
	}
	g.calls++
	return g.results[i].text, g.results[i].err
}

func (g *stubGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type panickyGenerator struct{}

func (panickyGenerator) Name() string { return "panicky" }

func (panickyGenerator) Generate(context.Context, string, *model.Learner) (string, error) {
	panic("provider SDK bug")
}
