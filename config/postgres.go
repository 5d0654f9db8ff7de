package config

import (
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yoockh/skillradar/internal/models"
)

var PostgresDB *gorm.DB

func InitPostgres(uri string) error {
	if uri == "" {
		return errors.New("POSTGRES_URI environment variable is not set")
	}
	// TranslateError turns unique violations into gorm.ErrDuplicatedKey.
	db, err := gorm.Open(postgres.Open(uri), &gorm.Config{TranslateError: true})
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	PostgresDB = db
	return nil
}

// Migrate creates or updates the relational schema.
func Migrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("postgres is not initialised; call InitPostgres() first")
	}
	if err := db.AutoMigrate(
		&models.Location{},
		&models.JobProfile{},
		&models.Profile{},
		&models.AuthAccount{},
		&models.Module{},
		&models.Competency{},
		&models.Qualifier{},
		&models.QualifierOption{},
		&models.JobProfileModule{},
		&models.JobProfileQualifier{},
		&models.JobProfileCompetency{},
		&models.WorkerJobProfile{},
		&models.Evaluation{},
		&models.EvaluationResult{},
		&models.EvaluationResultQualifier{},
		&models.AppSetting{},
		&models.StoredFile{},
	); err != nil {
		return err
	}
	// case-insensitive uniqueness for location names and the single
	// continuous evaluation per (worker, job profile)
	stmts := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_locations_lower_name ON locations (LOWER(name))`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_continuous_evaluation ON evaluations (worker_id, COALESCE(job_profile_id, '00000000-0000-0000-0000-000000000000'::uuid)) WHERE is_continuous`,
	}
	for _, s := range stmts {
		if err := db.Exec(s).Error; err != nil {
			return err
		}
	}
	return nil
}
