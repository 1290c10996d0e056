package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seriouslysahid/CodeRed-sub001/internal/model"
)

func newMessageFixture(t *testing.T, gen Generator, learners ...*model.Learner) (*MessageService, *memOutcomeRepo) {
	t.Helper()
	f := newGenerationFixture(t, gen)
	outcomes := &memOutcomeRepo{}
	log, _ := nullLogger()
	return NewMessageService(newMemLearnerRepo(learners...), f.svc, outcomes, log), outcomes
}

func TestMessageService_GenerateRecordsOutcome(t *testing.T) {
	gen := &stubGenerator{results: []stubResult{{text: "hi there"}}}
	svc, outcomes := newMessageFixture(t, gen, testLearner())

	out, err := svc.Generate(context.Background(), "learner-1")

	require.NoError(t, err)
	assert.Equal(t, "hi there", out.Text)
	require.Len(t, outcomes.outcomes, 1)
	assert.Equal(t, out.ID, outcomes.outcomes[0].ID)
}

func TestMessageService_UnknownLearner(t *testing.T) {
	svc, _ := newMessageFixture(t, &stubGenerator{results: []stubResult{{text: "x"}}})

	_, err := svc.Generate(context.Background(), "ghost")

	assert.ErrorIs(t, err, ErrLearnerNotFound)
}

func TestMessageService_RecordFailureDoesNotFailCall(t *testing.T) {
	gen := &stubGenerator{results: []stubResult{{text: "hi"}}}
	f := newGenerationFixture(t, gen)
	outcomes := &memOutcomeRepo{recordErr: errors.New("disk full")}
	log, hook := nullLogger()
	svc := NewMessageService(newMemLearnerRepo(testLearner()), f.svc, outcomes, log)

	out, err := svc.Generate(context.Background(), "learner-1")

	require.NoError(t, err)
	assert.Equal(t, "hi", out.Text)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Failed to record generation outcome", hook.LastEntry().Message)
}

func TestMessageService_History(t *testing.T) {
	gen := &stubGenerator{results: []stubResult{{text: "one"}, {text: "two"}, {text: "three"}}}
	svc, _ := newMessageFixture(t, gen, testLearner())
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := svc.Generate(ctx, "learner-1")
		require.NoError(t, err)
	}

	history, err := svc.History(ctx, "learner-1", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "three", history[0].Text)

	empty, err := svc.History(ctx, "nobody", 0)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
