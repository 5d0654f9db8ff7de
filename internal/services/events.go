package services

import (
	"context"

	"github.com/sirupsen/logrus"
)

// EvaluationEvents is notified after answers are saved or an evaluation is
// completed. Implementations must not block the request for long.
type EvaluationEvents interface {
	EvaluationSaved(ctx context.Context, evaluationID, actorID string) error
}

// InlineEvents takes the snapshot on the request path. It is used when no
// Redis stream is available for the snapshot workers.
type InlineEvents struct {
	Snapshots SnapshotService
	Log       *logrus.Logger
}

func (e InlineEvents) EvaluationSaved(ctx context.Context, evaluationID, actorID string) error {
	if e.Snapshots == nil {
		return nil
	}
	_, err := e.Snapshots.Take(ctx, evaluationID, actorID)
	return err
}
