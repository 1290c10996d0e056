package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/seriouslysahid/CodeRed-sub001/internal/cache"
	"github.com/seriouslysahid/CodeRed-sub001/internal/model"
	"github.com/seriouslysahid/CodeRed-sub001/internal/observability"
	"github.com/seriouslysahid/CodeRed-sub001/internal/repository"
	"github.com/seriouslysahid/CodeRed-sub001/internal/risk"
)

var ErrLearnerNotFound = errors.New("learner not found")

// ReevaluationSummary reports a batch re-evaluation
type ReevaluationSummary struct {
	Evaluated int                     `json:"evaluated"`
	Changed   int                     `json:"changed"`
	ByLabel   map[model.RiskLabel]int `json:"byLabel"`
}

// RiskService scores learners and keeps stored assessments, the risk board
// and connected dashboards up to date.
type RiskService struct {
	engine      *risk.Engine
	learners    repository.LearnerRepo
	board       cache.RiskBoardCache
	broadcaster Broadcaster
	metrics     *observability.Metrics
	log         logrus.FieldLogger
}

// NewRiskService creates a new risk service. board may be nil.
func NewRiskService(engine *risk.Engine, learners repository.LearnerRepo, board cache.RiskBoardCache, log logrus.FieldLogger) *RiskService {
	return &RiskService{
		engine:   engine,
		learners: learners,
		board:    board,
		log:      log,
	}
}

// SetBroadcaster sets the WebSocket broadcaster
func (s *RiskService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetMetrics sets the metrics sink
func (s *RiskService) SetMetrics(m *observability.Metrics) {
	s.metrics = m
}

// Assess scores one set of signals without storing anything
func (s *RiskService) Assess(signals model.LearnerSignals) (model.RiskAssessment, error) {
	a, err := s.engine.Assess(signals)
	if err != nil {
		return model.RiskAssessment{}, err
	}
	s.metrics.ObserveAssessment(string(a.Label))
	return a, nil
}

// BatchAssess scores a list of signals, all-or-nothing
func (s *RiskService) BatchAssess(list []model.LearnerSignals) ([]model.BatchItem, error) {
	items, err := s.engine.BatchAssess(list)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		s.metrics.ObserveAssessment(string(item.Label))
	}
	return items, nil
}

// Ingest scores fresh signals for a learner and stores the result. Unknown
// learners are created with just their ID.
func (s *RiskService) Ingest(ctx context.Context, learnerID string, signals model.LearnerSignals) (*model.Learner, error) {
	a, err := s.Assess(signals)
	if err != nil {
		return nil, err
	}

	learner, err := s.learners.GetByID(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	if learner == nil {
		learner = &model.Learner{ID: learnerID}
	}

	previous := labelOf(learner.Risk)
	learner.Signals = signals
	learner.Risk = &a
	learner.UpdatedAt = a.AssessedAt

	if err := s.learners.Upsert(ctx, learner); err != nil {
		return nil, err
	}
	s.publish(ctx, learner.ID, a, previous)
	return learner, nil
}

// Reevaluate rescores every stored learner against the current weights.
// Scoring is all-or-nothing: one unscorable learner aborts before anything
// is written.
func (s *RiskService) Reevaluate(ctx context.Context) (*ReevaluationSummary, error) {
	learners, err := s.learners.List(ctx, 0)
	if err != nil {
		return nil, err
	}

	signals := make([]model.LearnerSignals, len(learners))
	for i, l := range learners {
		signals[i] = l.Signals
	}
	assessments, err := s.engine.AssessAll(signals)
	if err != nil {
		return nil, fmt.Errorf("reevaluate: %w", err)
	}

	summary := &ReevaluationSummary{ByLabel: make(map[model.RiskLabel]int)}
	for i, l := range learners {
		a := assessments[i]
		previous := labelOf(l.Risk)
		if err := s.learners.SaveAssessment(ctx, l.ID, a); err != nil {
			return summary, fmt.Errorf("reevaluate: save learner %s: %w", l.ID, err)
		}
		s.metrics.ObserveAssessment(string(a.Label))
		summary.Evaluated++
		summary.ByLabel[a.Label]++
		if previous != a.Label {
			summary.Changed++
		}
		s.publish(ctx, l.ID, a, previous)
	}

	s.log.WithFields(logrus.Fields{
		"evaluated": summary.Evaluated,
		"changed":   summary.Changed,
	}).Info("Risk re-evaluation complete")
	return summary, nil
}

// Board returns the highest-risk learners
func (s *RiskService) Board(ctx context.Context, limit int) ([]cache.RiskBoardEntry, error) {
	if s.board == nil {
		return []cache.RiskBoardEntry{}, nil
	}
	return s.board.GetTop(ctx, limit)
}

func (s *RiskService) publish(ctx context.Context, learnerID string, a model.RiskAssessment, previous model.RiskLabel) {
	if s.board != nil {
		if err := s.board.UpdateScore(ctx, learnerID, a.Score); err != nil {
			s.log.WithError(err).WithField("learner_id", learnerID).Warn("Failed to update risk board")
		}
	}
	if s.broadcaster != nil && previous != a.Label {
		s.broadcaster.BroadcastToDashboards(MsgRiskUpdated, model.RiskUpdate{
			LearnerID:     learnerID,
			Score:         a.Score,
			Label:         a.Label,
			PreviousLabel: previous,
			AssessedAt:    a.AssessedAt,
		})
	}
}

func labelOf(a *model.RiskAssessment) model.RiskLabel {
	if a == nil {
		return ""
	}
	return a.Label
}
