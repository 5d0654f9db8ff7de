package models

import "time"

type EvaluationStatus string

const (
	StatusDraft      EvaluationStatus = "draft"
	StatusInProgress EvaluationStatus = "in_progress"
	StatusCompleted  EvaluationStatus = "completed"
)

// CanTransition enforces draft -> in_progress -> completed. Staying in the
// same status is always allowed.
func (s EvaluationStatus) CanTransition(to EvaluationStatus) bool {
	if s == to {
		return true
	}
	switch s {
	case StatusDraft:
		return to == StatusInProgress
	case StatusInProgress:
		return to == StatusCompleted
	default:
		return false
	}
}

type Evaluation struct {
	ID           string           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	WorkerID     string           `gorm:"column:worker_id;type:uuid;index" json:"worker_id"`
	EvaluatorID  string           `gorm:"column:evaluator_id;type:uuid;index" json:"evaluator_id"`
	JobProfileID *string          `gorm:"column:job_profile_id;type:uuid" json:"job_profile_id,omitempty"`
	Status       EvaluationStatus `gorm:"column:status;type:text;default:'draft'" json:"status"`
	IsContinuous bool             `gorm:"column:is_continuous;not null;default:false" json:"is_continuous"`
	Comment      string           `gorm:"column:comment;type:text" json:"comment,omitempty"`
	CompletedAt  *time.Time       `gorm:"column:completed_at;type:timestamptz" json:"completed_at,omitempty"`

	Results []EvaluationResult `gorm:"foreignKey:EvaluationID;constraint:OnDelete:CASCADE" json:"results,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (Evaluation) TableName() string { return "evaluations" }

// EvaluationResult is the answer sheet of one competency inside an evaluation.
type EvaluationResult struct {
	ID           string    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	EvaluationID string    `gorm:"column:evaluation_id;type:uuid;uniqueIndex:uniq_eval_competency" json:"evaluation_id"`
	CompetencyID string    `gorm:"column:competency_id;type:uuid;uniqueIndex:uniq_eval_competency" json:"competency_id"`
	EvaluatorID  string    `gorm:"column:evaluator_id;type:uuid" json:"evaluator_id"`
	Comment      string    `gorm:"column:comment;type:text" json:"comment,omitempty"`
	UpdatedAt    time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`

	Qualifiers []EvaluationResultQualifier `gorm:"foreignKey:ResultID;constraint:OnDelete:CASCADE" json:"qualifiers"`
}

func (EvaluationResult) TableName() string { return "evaluation_results" }

type EvaluationResultQualifier struct {
	ID          string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ResultID    string `gorm:"column:result_id;type:uuid;index" json:"result_id"`
	QualifierID string `gorm:"column:qualifier_id;type:uuid" json:"qualifier_id"`
	OptionID    string `gorm:"column:option_id;type:uuid" json:"option_id"`
}

func (EvaluationResultQualifier) TableName() string { return "evaluation_result_qualifiers" }
