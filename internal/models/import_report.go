package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ImportKind string

const (
	ImportUsers     ImportKind = "users"
	ImportLocations ImportKind = "locations"
)

// ImportRowResult is the outcome of one input row. RowIndex is the zero-based
// position of the row in the submitted batch.
type ImportRowResult struct {
	RowIndex   int    `bson:"row_index" json:"row_index"`
	Success    bool   `bson:"success" json:"success"`
	Key        string `bson:"key,omitempty" json:"key,omitempty"`
	ResourceID string `bson:"resource_id,omitempty" json:"resource_id,omitempty"`
	Error      string `bson:"error,omitempty" json:"error,omitempty"`
	Warning    string `bson:"warning,omitempty" json:"warning,omitempty"`
}

type ImportSummary struct {
	Total   int `bson:"total" json:"total"`
	Created int `bson:"created" json:"created"`
	Failed  int `bson:"failed" json:"failed"`
}

type ImportReport struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Kind      ImportKind         `bson:"kind" json:"kind"`
	ActorID   string             `bson:"actor_id" json:"actor_id"`
	DryRun    bool               `bson:"dry_run" json:"dry_run"`
	Summary   ImportSummary      `bson:"summary" json:"summary"`
	Results   []ImportRowResult  `bson:"results" json:"results"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
