package workers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/skillradar/internal/models"
	"github.com/yoockh/skillradar/internal/services"
)

const (
	DefaultStream = "evaluation:saved"
	DefaultGroup  = "snapshot-workers"

	streamMaxLen = 10000
)

// StreamEvents publishes saved evaluations to a Redis stream for the snapshot
// workers. It implements services.EvaluationEvents.
type StreamEvents struct {
	Redis  *redis.Client
	Stream string
}

func (e StreamEvents) EvaluationSaved(ctx context.Context, evaluationID, actorID string) error {
	stream := e.Stream
	if stream == "" {
		stream = DefaultStream
	}
	return e.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{
			"evaluation_id": evaluationID,
			"actor_id":      actorID,
			"ts_unix":       strconv.FormatInt(time.Now().UTC().Unix(), 10),
		},
	}).Err()
}

type publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// SnapshotWorkerPool consumes the saved-evaluation stream, appends a score
// snapshot for each event and pushes the fresh scores to websocket
// subscribers.
type SnapshotWorkerPool struct {
	Redis      *redis.Client
	Snapshots  services.SnapshotService
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string

	pub publisher
}

func (p *SnapshotWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Snapshots == nil {
		return errors.New("SnapshotWorkerPool missing dependency: Redis/Snapshots must be set")
	}
	if p.Stream == "" {
		p.Stream = DefaultStream
	}
	if p.Group == "" {
		p.Group = DefaultGroup
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 3
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}
	if p.pub == nil {
		p.pub = p.Redis
	}

	// BUSYGROUP means another instance created it already
	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err()

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *SnapshotWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			p.Logger.WithError(err).WithField("consumer", consumer).Warn("stream read failed")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func field(msg redis.XMessage, k string) string {
	v, ok := msg.Values[k]
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// handleMsg never retries: a missed snapshot only thins the history, and the
// next save produces a fresh one.
func (p *SnapshotWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	evaluationID := field(msg, "evaluation_id")
	if evaluationID == "" {
		return
	}
	actorID := field(msg, "actor_id")

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":      msg.ID,
		"evaluation_id": evaluationID,
	})

	snap, err := p.Snapshots.Take(ctx, evaluationID, actorID)
	if err != nil {
		log.WithError(err).Error("snapshot failed")
		return
	}

	payload, err := json.Marshal(models.ScoresMessage{
		Type: "scores",
		Scores: &models.EvaluationScores{
			EvaluationID: evaluationID,
			Overall:      snap.Overall,
			Modules:      snap.Modules,
		},
	})
	if err != nil {
		log.WithError(err).Error("encode scores failed")
		return
	}
	if err := p.pub.Publish(ctx, models.ScoresChannel(evaluationID), string(payload)).Err(); err != nil {
		log.WithError(err).Warn("publish scores failed")
	}
}
