package repository

import (
	"context"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/seriouslysahid/CodeRed-sub001/internal/model"
)

// OutcomeRepo records generation outcomes for audit
type OutcomeRepo interface {
	Record(ctx context.Context, outcome *model.GenerationOutcome) error
	ListByLearner(ctx context.Context, learnerID string, limit int) ([]*model.GenerationOutcome, error)
}

type outcomeRepo struct {
	collection *mongo.Collection
}

// NewOutcomeRepo creates a MongoDB-backed outcome repository with indexes
func NewOutcomeRepo(db *mongo.Database) OutcomeRepo {
	repo := &outcomeRepo{
		collection: db.Collection("generation_outcomes"),
	}
	createIndex(context.Background(), repo.collection, bson.D{
		{Key: "learnerId", Value: 1},
		{Key: "generatedAt", Value: -1},
	}, false)
	createIndex(context.Background(), repo.collection, bson.D{{Key: "provenance", Value: 1}}, false)
	return repo
}

func (r *outcomeRepo) Record(ctx context.Context, outcome *model.GenerationOutcome) error {
	_, err := r.collection.InsertOne(ctx, outcome)
	return err
}

// ListByLearner returns the newest outcomes first; limit <= 0 returns all
func (r *outcomeRepo) ListByLearner(ctx context.Context, learnerID string, limit int) ([]*model.GenerationOutcome, error) {
	opts := options.Find().SetSort(bson.D{{Key: "generatedAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, bson.M{"learnerId": learnerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var outcomes []*model.GenerationOutcome
	if err := cursor.All(ctx, &outcomes); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func createIndex(ctx context.Context, coll *mongo.Collection, keys bson.D, unique bool) {
	opts := options.Index().SetUnique(unique)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys, Options: opts})
	if err != nil {
		log.Printf("Warning: failed to create index on %s: %v", coll.Name(), err)
	}
}
