package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ModuleScore is a computed value; it is never the source of truth.
type ModuleScore struct {
	ModuleID   string  `bson:"module_id" json:"module_id"`
	ModuleName string  `bson:"module_name" json:"module_name"`
	ParentID   *string `bson:"parent_id,omitempty" json:"parent_id,omitempty"`
	Icon       string  `bson:"icon,omitempty" json:"icon,omitempty"`
	Color      string  `bson:"color,omitempty" json:"color,omitempty"`
	SortOrder  int     `bson:"sort_order" json:"sort_order"`

	Score    float64 `bson:"score" json:"score"`
	Expected float64 `bson:"expected" json:"expected"`
	Gap      float64 `bson:"gap" json:"gap"`
	Meets    bool    `bson:"meets" json:"meets_expectation"`

	Answered int `bson:"answered" json:"answered_competencies"`
	Total    int `bson:"total" json:"total_competencies"`

	// raw sums, kept so callers can roll modules up without re-reading answers
	Points    float64 `bson:"points" json:"-"`
	MaxPoints float64 `bson:"max_points" json:"-"`
}

type EvaluationScores struct {
	EvaluationID string        `json:"evaluation_id"`
	Overall      float64       `json:"overall"`
	Modules      []ModuleScore `json:"modules"`
}

// EvaluationSnapshot is an immutable copy of the scores at save time.
type EvaluationSnapshot struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EvaluationID string             `bson:"evaluation_id" json:"evaluation_id"`
	WorkerID     string             `bson:"worker_id" json:"worker_id"`
	JobProfileID string             `bson:"job_profile_id,omitempty" json:"job_profile_id,omitempty"`
	Status       string             `bson:"status" json:"status"`
	Overall      float64            `bson:"overall" json:"overall"`
	Modules      []ModuleScore      `bson:"modules" json:"modules"`
	TakenBy      string             `bson:"taken_by,omitempty" json:"taken_by,omitempty"`
	TakenAt      time.Time          `bson:"taken_at" json:"taken_at"`
}

// ScoresChannel is the pub/sub channel live score updates are published on.
func ScoresChannel(evaluationID string) string {
	return "evaluation:" + evaluationID + ":scores"
}

// ScoresMessage is the frame pushed to websocket subscribers.
type ScoresMessage struct {
	Type   string            `json:"type"`
	Scores *EvaluationScores `json:"scores"`
}
