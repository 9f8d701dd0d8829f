package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/aigroupchat/voicechat-be/types"
)

type StatsRepo interface {
	RecordProcessingStat(ctx context.Context, stat *types.ProcessingStat) error
	ListProcessingStats(ctx context.Context, ownerID string) ([]*types.ProcessingStat, error)
}

type statsRepo struct {
	collection *mongo.Collection
}

func NewStatsRepo(collection *mongo.Collection) StatsRepo {
	return &statsRepo{
		collection: collection,
	}
}

func (r *statsRepo) RecordProcessingStat(ctx context.Context, stat *types.ProcessingStat) error {
	if stat.ID == "" {
		stat.ID = uuid.NewString()
	}
	if stat.CreatedAt.IsZero() {
		stat.CreatedAt = time.Now().UTC()
	}
	_, err := r.collection.InsertOne(ctx, stat)
	return err
}

func (r *statsRepo) ListProcessingStats(ctx context.Context, ownerID string) ([]*types.ProcessingStat, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var stats []*types.ProcessingStat
	for cursor.Next(ctx) {
		var stat types.ProcessingStat
		if err := cursor.Decode(&stat); err != nil {
			return nil, err
		}
		stats = append(stats, &stat)
	}
	return stats, cursor.Err()
}
