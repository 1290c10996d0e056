package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const riskBoardKey = "risk:board"

// RiskBoardCache handles the Redis ZSET ranking learners by risk score
type RiskBoardCache interface {
	UpdateScore(ctx context.Context, learnerID string, score float64) error
	GetTop(ctx context.Context, limit int) ([]RiskBoardEntry, error)
}

// RiskBoardEntry represents a single risk board entry
type RiskBoardEntry struct {
	LearnerID string  `json:"learnerId"`
	Score     float64 `json:"score"`
	Rank      int     `json:"rank"`
}

type riskBoardCache struct {
	client *redis.Client
}

// NewRiskBoardCache creates a new risk board cache
func NewRiskBoardCache(client *redis.Client) RiskBoardCache {
	return &riskBoardCache{
		client: client,
	}
}

func (c *riskBoardCache) UpdateScore(ctx context.Context, learnerID string, score float64) error {
	return c.client.ZAdd(ctx, riskBoardKey, redis.Z{
		Score:  score,
		Member: learnerID,
	}).Err()
}

// GetTop returns the highest-risk learners first
func (c *riskBoardCache) GetTop(ctx context.Context, limit int) ([]RiskBoardEntry, error) {
	results, err := c.client.ZRevRangeWithScores(ctx, riskBoardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]RiskBoardEntry, len(results))
	for i, z := range results {
		member, _ := z.Member.(string)
		entries[i] = RiskBoardEntry{
			LearnerID: member,
			Score:     z.Score,
			Rank:      i + 1,
		}
	}
	return entries, nil
}
