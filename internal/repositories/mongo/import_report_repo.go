package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yoockh/skillradar/internal/models"
	"github.com/yoockh/skillradar/internal/utils"
)

type ImportReportRepository interface {
	Insert(ctx context.Context, r *models.ImportReport) error
	Get(ctx context.Context, id string) (*models.ImportReport, error)
	ListByActor(ctx context.Context, actorID string, limit int64) ([]models.ImportReport, error)
}

type importReportRepo struct {
	col *mongo.Collection
}

func NewImportReportRepo(db *mongo.Database) ImportReportRepository {
	return &importReportRepo{col: db.Collection("import_reports")}
}

func (r *importReportRepo) Insert(ctx context.Context, rep *models.ImportReport) error {
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = time.Now().UTC()
	}
	res, err := r.col.InsertOne(ctx, rep)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		rep.ID = id
	}
	return nil
}

func (r *importReportRepo) Get(ctx context.Context, id string) (*models.ImportReport, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, utils.ErrNotFound
	}
	var rep models.ImportReport
	err = r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&rep)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &rep, err
}

func (r *importReportRepo) ListByActor(ctx context.Context, actorID string, limit int64) ([]models.ImportReport, error) {
	if limit <= 0 {
		limit = 20
	}

	cur, err := r.col.Find(ctx,
		bson.M{"actor_id": actorID},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetProjection(bson.M{"results": 0}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.ImportReport{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
