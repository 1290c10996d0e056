package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/seriouslysahid/CodeRed-sub001/internal/model"
	"github.com/seriouslysahid/CodeRed-sub001/internal/repository"
)

const defaultHistoryLimit = 20

// MessageService generates outreach messages for stored learners and keeps
// an audit trail of every outcome.
type MessageService struct {
	learners   repository.LearnerRepo
	generation *GenerationService
	outcomes   repository.OutcomeRepo
	log        logrus.FieldLogger
}

// NewMessageService creates a new message service
func NewMessageService(learners repository.LearnerRepo, generation *GenerationService, outcomes repository.OutcomeRepo, log logrus.FieldLogger) *MessageService {
	return &MessageService{
		learners:   learners,
		generation: generation,
		outcomes:   outcomes,
		log:        log,
	}
}

// Generate produces a message for the learner. A failure to record the
// outcome is logged and does not fail the call.
func (s *MessageService) Generate(ctx context.Context, learnerID string) (*model.GenerationOutcome, error) {
	learner, err := s.learners.GetByID(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	if learner == nil {
		return nil, ErrLearnerNotFound
	}

	outcome := s.generation.Generate(ctx, learner)

	if err := s.outcomes.Record(ctx, &outcome); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"learner_id": learnerID,
			"outcome_id": outcome.ID,
		}).Warn("Failed to record generation outcome")
	}
	return &outcome, nil
}

// History returns the learner's most recent outcomes, newest first
func (s *MessageService) History(ctx context.Context, learnerID string, limit int) ([]*model.GenerationOutcome, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	outcomes, err := s.outcomes.ListByLearner(ctx, learnerID, limit)
	if err != nil {
		return nil, err
	}
	if outcomes == nil {
		outcomes = []*model.GenerationOutcome{}
	}
	return outcomes, nil
}
