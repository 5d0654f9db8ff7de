package cache

import (
	"context"
	"strconv"
	"time"
)

type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error

	// Incr bumps a counter and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)
	// Counter reads a counter. A missing key reads as 0.
	Counter(ctx context.Context, key string) (int64, error)
}

// ScoresGenKey is bumped by every write to the scoring catalogue. Score
// entries are keyed by the generation they were computed under, so one bump
// retires all of them.
const ScoresGenKey = "scores:gen"

func ScoresKey(gen int64, evaluationID string) string {
	return "scores:" + strconv.FormatInt(gen, 10) + ":" + evaluationID
}

// Nop never hits. It stands in when Redis is not configured.
type Nop struct{}

func (Nop) GetJSON(context.Context, string, any) (bool, error)        { return false, nil }
func (Nop) SetJSON(context.Context, string, any, time.Duration) error { return nil }
func (Nop) Del(context.Context, ...string) error                      { return nil }
func (Nop) Incr(context.Context, string) (int64, error)               { return 0, nil }
func (Nop) Counter(context.Context, string) (int64, error)            { return 0, nil }
