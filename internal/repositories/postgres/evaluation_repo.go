package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yoockh/skillradar/internal/models"
	"github.com/yoockh/skillradar/internal/utils"
)

type EvaluationRepository interface {
	Create(ctx context.Context, e *models.Evaluation) error
	// Get loads an evaluation without its results.
	Get(ctx context.Context, id string) (*models.Evaluation, error)
	GetWithResults(ctx context.Context, id string) (*models.Evaluation, error)
	FindContinuous(ctx context.Context, workerID string, jobProfileID *string) (*models.Evaluation, error)
	ListByWorker(ctx context.Context, workerID string) ([]models.Evaluation, error)
	// ReplaceResult swaps the answers of one competency and bumps the
	// evaluation to status in a single transaction.
	ReplaceResult(ctx context.Context, res *models.EvaluationResult, status models.EvaluationStatus) error
	Complete(ctx context.Context, id string, at time.Time) error
}

type evaluationRepo struct {
	db *gorm.DB
}

func NewEvaluationRepo(db *gorm.DB) EvaluationRepository {
	return &evaluationRepo{db: db}
}

func (r *evaluationRepo) Create(ctx context.Context, e *models.Evaluation) error {
	return r.db.WithContext(ctx).Omit("Results").Create(e).Error
}

func (r *evaluationRepo) Get(ctx context.Context, id string) (*models.Evaluation, error) {
	var e models.Evaluation
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &e, err
}

func (r *evaluationRepo) GetWithResults(ctx context.Context, id string) (*models.Evaluation, error) {
	var e models.Evaluation
	err := r.db.WithContext(ctx).
		Preload("Results", func(db *gorm.DB) *gorm.DB { return db.Order("updated_at ASC") }).
		Preload("Results.Qualifiers").
		Where("id = ?", id).
		Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &e, err
}

func (r *evaluationRepo) FindContinuous(ctx context.Context, workerID string, jobProfileID *string) (*models.Evaluation, error) {
	q := r.db.WithContext(ctx).Where("worker_id = ? AND is_continuous = ?", workerID, true)
	if jobProfileID == nil {
		q = q.Where("job_profile_id IS NULL")
	} else {
		q = q.Where("job_profile_id = ?", *jobProfileID)
	}
	var e models.Evaluation
	err := q.Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &e, err
}

func (r *evaluationRepo) ListByWorker(ctx context.Context, workerID string) ([]models.Evaluation, error) {
	var rows []models.Evaluation
	err := r.db.WithContext(ctx).
		Where("worker_id = ?", workerID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// ReplaceResult swaps the answer for one competency and moves the evaluation
// to status. It returns utils.ErrConflict when the evaluation is completed.
func (r *evaluationRepo) ReplaceResult(ctx context.Context, res *models.EvaluationResult, status models.EvaluationStatus) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// the guarded update also locks the row against a concurrent Complete
		upd := tx.Model(&models.Evaluation{}).
			Where("id = ? AND status <> ?", res.EvaluationID, models.StatusCompleted).
			Updates(map[string]any{"status": status, "updated_at": res.UpdatedAt})
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return utils.ErrConflict
		}

		var old models.EvaluationResult
		err := tx.Where("evaluation_id = ? AND competency_id = ?", res.EvaluationID, res.CompetencyID).
			Take(&old).Error
		switch {
		case err == nil:
			if err := tx.Where("result_id = ?", old.ID).Delete(&models.EvaluationResultQualifier{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&old).Error; err != nil {
				return err
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		return tx.Create(res).Error
	})
}

func (r *evaluationRepo) Complete(ctx context.Context, id string, at time.Time) error {
	return updateByID(ctx, r.db, &models.Evaluation{}, id, map[string]any{
		"status":       models.StatusCompleted,
		"completed_at": at,
		"updated_at":   at,
	})
}
