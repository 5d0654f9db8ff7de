package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/yoockh/skillradar/internal/models"
	"github.com/yoockh/skillradar/internal/utils"
)

type JobProfileRepository interface {
	List(ctx context.Context) ([]models.JobProfile, error)
	// Get loads the job profile with its module, qualifier and competency links.
	Get(ctx context.Context, id string) (*models.JobProfile, error)
	Create(ctx context.Context, jp *models.JobProfile) error
	Update(ctx context.Context, id string, fields map[string]any) error
	Delete(ctx context.Context, id string) error

	ReplaceModules(ctx context.Context, id string, links []models.JobProfileModule) error
	ReplaceQualifiers(ctx context.Context, id string, links []models.JobProfileQualifier) error
	ReplaceCompetencies(ctx context.Context, id string, links []models.JobProfileCompetency) error

	Assign(ctx context.Context, a *models.WorkerJobProfile) error
	Unassign(ctx context.Context, workerID, jobProfileID string) error
	Assignments(ctx context.Context, workerID string) ([]models.WorkerJobProfile, error)
}

type jobProfileRepo struct {
	db *gorm.DB
}

func NewJobProfileRepo(db *gorm.DB) JobProfileRepository {
	return &jobProfileRepo{db: db}
}

func (r *jobProfileRepo) List(ctx context.Context) ([]models.JobProfile, error) {
	var rows []models.JobProfile
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

func (r *jobProfileRepo) Get(ctx context.Context, id string) (*models.JobProfile, error) {
	var jp models.JobProfile
	err := r.db.WithContext(ctx).
		Preload("Modules").
		Preload("Qualifiers").
		Preload("Competencies").
		Where("id = ?", id).
		Take(&jp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &jp, err
}

func (r *jobProfileRepo) Create(ctx context.Context, jp *models.JobProfile) error {
	return r.db.WithContext(ctx).Omit("Modules", "Qualifiers", "Competencies").Create(jp).Error
}

func (r *jobProfileRepo) Update(ctx context.Context, id string, fields map[string]any) error {
	return updateByID(ctx, r.db, &models.JobProfile{}, id, fields)
}

func (r *jobProfileRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, link := range []any{
			&models.JobProfileModule{},
			&models.JobProfileQualifier{},
			&models.JobProfileCompetency{},
			&models.WorkerJobProfile{},
		} {
			if err := tx.Where("job_profile_id = ?", id).Delete(link).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&models.Profile{}).
			Where("job_profile_id = ?", id).
			Update("job_profile_id", nil).Error; err != nil {
			return err
		}
		return deleteByID(ctx, tx, &models.JobProfile{}, id)
	})
}

func (r *jobProfileRepo) ReplaceModules(ctx context.Context, id string, links []models.JobProfileModule) error {
	return replaceLinks(ctx, r.db, id, &models.JobProfileModule{}, links)
}

func (r *jobProfileRepo) ReplaceQualifiers(ctx context.Context, id string, links []models.JobProfileQualifier) error {
	return replaceLinks(ctx, r.db, id, &models.JobProfileQualifier{}, links)
}

func (r *jobProfileRepo) ReplaceCompetencies(ctx context.Context, id string, links []models.JobProfileCompetency) error {
	return replaceLinks(ctx, r.db, id, &models.JobProfileCompetency{}, links)
}

func replaceLinks[T any](ctx context.Context, db *gorm.DB, jobProfileID string, model *T, links []T) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.JobProfile{}).Where("id = ?", jobProfileID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return utils.ErrNotFound
		}
		if err := tx.Where("job_profile_id = ?", jobProfileID).Delete(model).Error; err != nil {
			return err
		}
		if len(links) == 0 {
			return nil
		}
		return tx.Create(&links).Error
	})
}

func (r *jobProfileRepo) Assign(ctx context.Context, a *models.WorkerJobProfile) error {
	return r.db.WithContext(ctx).Omit("JobProfile").Create(a).Error
}

func (r *jobProfileRepo) Unassign(ctx context.Context, workerID, jobProfileID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("worker_id = ? AND job_profile_id = ?", workerID, jobProfileID).
			Delete(&models.WorkerJobProfile{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.ErrNotFound
		}
		// drop the primary pointer when it referenced the removed assignment
		return tx.Model(&models.Profile{}).
			Where("id = ? AND job_profile_id = ?", workerID, jobProfileID).
			Update("job_profile_id", nil).Error
	})
}

func (r *jobProfileRepo) Assignments(ctx context.Context, workerID string) ([]models.WorkerJobProfile, error) {
	var rows []models.WorkerJobProfile
	err := r.db.WithContext(ctx).
		Preload("JobProfile").
		Where("worker_id = ?", workerID).
		Order("assigned_at ASC").
		Find(&rows).Error
	return rows, err
}
