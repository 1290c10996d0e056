package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/seriouslysahid/CodeRed-sub001/internal/clock"
	"github.com/seriouslysahid/CodeRed-sub001/internal/config"
	"github.com/seriouslysahid/CodeRed-sub001/internal/model"
	"github.com/seriouslysahid/CodeRed-sub001/internal/repository"
	"github.com/seriouslysahid/CodeRed-sub001/internal/risk"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer client.Disconnect(ctx)

	repo := repository.NewLearnerRepo(client.Database(cfg.MongoDatabase))
	engine := risk.NewEngine(risk.StaticWeights(cfg.Risk.Weights), clock.Real{})
	now := time.Now().UTC()
	learners := demoLearners(now)

	for _, l := range learners {
		a, err := engine.Assess(l.Signals)
		if err != nil {
			logrus.WithError(err).WithField("learner_id", l.ID).Fatal("Failed to score demo learner")
		}
		l.Risk = &a
		l.UpdatedAt = now
		if err := repo.Upsert(ctx, l); err != nil {
			logrus.WithError(err).WithField("learner_id", l.ID).Fatal("Failed to insert learner")
		}
		fmt.Printf("%-10s %-8s score=%.2f label=%s\n", l.ID, l.Name, a.Score, a.Label)
	}

	fmt.Printf("Successfully seeded %d learners into %s\n", len(learners), cfg.MongoDatabase)
}

func demoLearners(now time.Time) []*model.Learner {
	daysAgo := func(d int) model.Timestamp { return model.At(now.AddDate(0, 0, -d)) }
	return []*model.Learner{
		{
			ID:     "learner-1",
			Name:   "Asha",
			Course: "Data Structures",
			Signals: model.LearnerSignals{
				CompletionPct: 92, QuizAvg: 88, MissedSessions: 0, LastLogin: daysAgo(1),
			},
		},
		{
			ID:     "learner-2",
			Name:   "Ben",
			Course: "Data Structures",
			Signals: model.LearnerSignals{
				CompletionPct: 55, QuizAvg: 61, MissedSessions: 2, LastLogin: daysAgo(6),
			},
		},
		{
			ID:     "learner-3",
			Name:   "Chidi",
			Course: "Intro to Statistics",
			Signals: model.LearnerSignals{
				CompletionPct: 18, QuizAvg: 34, MissedSessions: 7, LastLogin: daysAgo(24),
			},
		},
		{
			ID:     "learner-4",
			Name:   "Dana",
			Course: "Intro to Statistics",
			Signals: model.LearnerSignals{
				CompletionPct: 71, QuizAvg: 45, MissedSessions: 4, LastLogin: daysAgo(3),
			},
		},
		{
			ID:     "learner-5",
			Course: "Web Foundations",
			Signals: model.LearnerSignals{
				CompletionPct: 3, QuizAvg: 0, MissedSessions: 12, LastLogin: daysAgo(45),
			},
		},
	}
}
