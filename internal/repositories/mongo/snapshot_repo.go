package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yoockh/skillradar/internal/models"
)

type SnapshotRepository interface {
	Insert(ctx context.Context, s *models.EvaluationSnapshot) error
	ListByEvaluation(ctx context.Context, evaluationID string, limit int64) ([]models.EvaluationSnapshot, error)
	LatestByWorker(ctx context.Context, workerID string, limit int64) ([]models.EvaluationSnapshot, error)
}

type snapshotRepo struct {
	col *mongo.Collection
}

func NewSnapshotRepo(db *mongo.Database) SnapshotRepository {
	return &snapshotRepo{col: db.Collection("evaluation_snapshots")}
}

func (r *snapshotRepo) Insert(ctx context.Context, s *models.EvaluationSnapshot) error {
	if s.TakenAt.IsZero() {
		s.TakenAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, s)
	return err
}

func (r *snapshotRepo) ListByEvaluation(ctx context.Context, evaluationID string, limit int64) ([]models.EvaluationSnapshot, error) {
	return r.find(ctx, bson.M{"evaluation_id": evaluationID}, limit)
}

func (r *snapshotRepo) LatestByWorker(ctx context.Context, workerID string, limit int64) ([]models.EvaluationSnapshot, error) {
	return r.find(ctx, bson.M{"worker_id": workerID}, limit)
}

func (r *snapshotRepo) find(ctx context.Context, filter bson.M, limit int64) ([]models.EvaluationSnapshot, error) {
	if limit <= 0 {
		limit = 50
	}

	cur, err := r.col.Find(ctx, filter,
		options.Find().
			SetSort(bson.D{{Key: "taken_at", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.EvaluationSnapshot{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
