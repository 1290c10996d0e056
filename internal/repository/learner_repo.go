package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/seriouslysahid/CodeRed-sub001/internal/model"
)

// LearnerRepo handles MongoDB operations for learner profiles
type LearnerRepo interface {
	Upsert(ctx context.Context, learner *model.Learner) error
	GetByID(ctx context.Context, id string) (*model.Learner, error)
	List(ctx context.Context, limit int) ([]*model.Learner, error)
	SaveAssessment(ctx context.Context, id string, assessment model.RiskAssessment) error
}

type learnerRepo struct {
	collection *mongo.Collection
}

// NewLearnerRepo creates a new learner repository with indexes
func NewLearnerRepo(db *mongo.Database) LearnerRepo {
	repo := &learnerRepo{
		collection: db.Collection("learners"),
	}
	createIndex(context.Background(), repo.collection, bson.D{{Key: "risk.score", Value: -1}}, false)
	return repo
}

func (r *learnerRepo) Upsert(ctx context.Context, learner *model.Learner) error {
	if learner.UpdatedAt.IsZero() {
		learner.UpdatedAt = time.Now()
	}
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": learner.ID}, learner, opts)
	return err
}

func (r *learnerRepo) GetByID(ctx context.Context, id string) (*model.Learner, error) {
	var learner model.Learner
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&learner)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &learner, nil
}

// List returns learners in ID order; limit <= 0 returns all
func (r *learnerRepo) List(ctx context.Context, limit int) ([]*model.Learner, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var learners []*model.Learner
	if err := cursor.All(ctx, &learners); err != nil {
		return nil, err
	}
	return learners, nil
}

func (r *learnerRepo) SaveAssessment(ctx context.Context, id string, assessment model.RiskAssessment) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"risk":      assessment,
			"updatedAt": assessment.AssessedAt,
		}},
	)
	return err
}
