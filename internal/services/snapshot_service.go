package services

import (
	"context"
	"time"

	"github.com/yoockh/skillradar/internal/models"
	mongorepo "github.com/yoockh/skillradar/internal/repositories/mongo"
	pgrepo "github.com/yoockh/skillradar/internal/repositories/postgres"
	"github.com/yoockh/skillradar/internal/utils"
)

type SnapshotService interface {
	// Take recomputes the scores of an evaluation and appends a snapshot.
	Take(ctx context.Context, evaluationID, actorID string) (*models.EvaluationSnapshot, error)
	History(ctx context.Context, caller Caller, evaluationID string) ([]models.EvaluationSnapshot, error)
}

type snapshotService struct {
	repo        mongorepo.SnapshotRepository
	evaluations pgrepo.EvaluationRepository
	profiles    pgrepo.ProfileRepository
	scores      ScoreService
	now         func() time.Time
}

func NewSnapshotService(repo mongorepo.SnapshotRepository, evaluations pgrepo.EvaluationRepository, profiles pgrepo.ProfileRepository, scores ScoreService) SnapshotService {
	return &snapshotService{
		repo:        repo,
		evaluations: evaluations,
		profiles:    profiles,
		scores:      scores,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *snapshotService) Take(ctx context.Context, evaluationID, actorID string) (*models.EvaluationSnapshot, error) {
	const op = "SnapshotService.Take"

	e, err := s.evaluations.Get(ctx, evaluationID)
	if err != nil {
		return nil, utils.DB(op, "failed to load evaluation", "", err)
	}
	sc, err := s.scores.Compute(ctx, evaluationID)
	if err != nil {
		return nil, err
	}

	snap := &models.EvaluationSnapshot{
		EvaluationID: e.ID,
		WorkerID:     e.WorkerID,
		JobProfileID: deref(e.JobProfileID),
		Status:       string(e.Status),
		Overall:      sc.Overall,
		Modules:      sc.Modules,
		TakenBy:      actorID,
		TakenAt:      s.now(),
	}
	if s.repo == nil {
		return snap, nil
	}
	if err := s.repo.Insert(ctx, snap); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to store snapshot", err)
	}
	return snap, nil
}

func (s *snapshotService) History(ctx context.Context, caller Caller, evaluationID string) ([]models.EvaluationSnapshot, error) {
	const op = "SnapshotService.History"

	e, err := s.evaluations.Get(ctx, evaluationID)
	if err != nil {
		return nil, utils.DB(op, "failed to load evaluation", "", err)
	}
	worker, err := s.profiles.GetByID(ctx, e.WorkerID)
	if err != nil {
		return nil, utils.DB(op, "failed to load worker", "", err)
	}
	if !caller.CanView(worker) {
		return nil, forbidden(op)
	}
	if s.repo == nil {
		return []models.EvaluationSnapshot{}, nil
	}
	rows, err := s.repo.ListByEvaluation(ctx, evaluationID, 50)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list snapshots", err)
	}
	return rows, nil
}
