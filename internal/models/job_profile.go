package models

import "time"

type JobProfile struct {
	ID          string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name        string `gorm:"column:name;type:text;uniqueIndex" json:"name"`
	Description string `gorm:"column:description;type:text" json:"description,omitempty"`

	Modules      []JobProfileModule     `gorm:"foreignKey:JobProfileID;constraint:OnDelete:CASCADE" json:"modules,omitempty"`
	Qualifiers   []JobProfileQualifier  `gorm:"foreignKey:JobProfileID;constraint:OnDelete:CASCADE" json:"qualifiers,omitempty"`
	Competencies []JobProfileCompetency `gorm:"foreignKey:JobProfileID;constraint:OnDelete:CASCADE" json:"competencies,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (JobProfile) TableName() string { return "job_profiles" }

// JobProfileModule links a module to a job profile. A nil ExpectedScore means
// the application default applies.
type JobProfileModule struct {
	JobProfileID  string   `gorm:"column:job_profile_id;type:uuid;primaryKey" json:"job_profile_id"`
	ModuleID      string   `gorm:"column:module_id;type:uuid;primaryKey" json:"module_id"`
	ExpectedScore *float64 `gorm:"column:expected_score" json:"expected_score,omitempty"`
}

func (JobProfileModule) TableName() string { return "job_profile_modules" }

type JobProfileQualifier struct {
	JobProfileID string `gorm:"column:job_profile_id;type:uuid;primaryKey" json:"job_profile_id"`
	QualifierID  string `gorm:"column:qualifier_id;type:uuid;primaryKey" json:"qualifier_id"`
}

func (JobProfileQualifier) TableName() string { return "job_profile_qualifiers" }

type JobProfileCompetency struct {
	JobProfileID  string   `gorm:"column:job_profile_id;type:uuid;primaryKey" json:"job_profile_id"`
	CompetencyID  string   `gorm:"column:competency_id;type:uuid;primaryKey" json:"competency_id"`
	Weight        *float64 `gorm:"column:weight" json:"weight,omitempty"`
	ExpectedScore *float64 `gorm:"column:expected_score" json:"expected_score,omitempty"`
}

func (JobProfileCompetency) TableName() string { return "job_profile_competencies" }

type WorkerJobProfile struct {
	WorkerID     string    `gorm:"column:worker_id;type:uuid;primaryKey" json:"worker_id"`
	JobProfileID string    `gorm:"column:job_profile_id;type:uuid;primaryKey" json:"job_profile_id"`
	AssignedBy   string    `gorm:"column:assigned_by;type:uuid" json:"assigned_by"`
	AssignedAt   time.Time `gorm:"column:assigned_at;type:timestamptz" json:"assigned_at"`

	JobProfile *JobProfile `gorm:"foreignKey:JobProfileID;references:ID" json:"job_profile,omitempty"`
}

func (WorkerJobProfile) TableName() string { return "worker_job_profiles" }
