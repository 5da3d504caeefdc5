package reconcile

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/avoronkov/flare/internal/domain/model"
	"github.com/avoronkov/flare/internal/realtime"
	pgrepo "github.com/avoronkov/flare/internal/repo/postgres"
)

// Job sweeps the swipe log for reciprocal likes that never got their match
// row, for example when a match write failed right after detection. Creating
// the missing match is safe to repeat: the canonical pair id turns a second
// attempt into a no-op.
type Job struct {
	swipes   mutualLikeSource
	matches  matchWriter
	events   publisher
	scanSize int
	now      func() time.Time
	logger   *zap.Logger
}

type mutualLikeSource interface {
	ListUnmatchedMutualLikes(ctx context.Context, limit int) ([]pgrepo.MutualLikePair, error)
}

type matchWriter interface {
	Upsert(ctx context.Context, userID, otherID string, now time.Time) (model.Match, bool, error)
}

type publisher interface {
	Publish(topic string)
}

func New(swipes mutualLikeSource, matches matchWriter, events publisher, scanSize int, logger *zap.Logger) *Job {
	if scanSize <= 0 {
		scanSize = 500
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		swipes:   swipes,
		matches:  matches,
		events:   events,
		scanSize: scanSize,
		now:      time.Now,
		logger:   logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.swipes == nil || j.matches == nil {
		return nil
	}

	pairs, err := j.swipes.ListUnmatchedMutualLikes(ctx, j.scanSize)
	if err != nil {
		return fmt.Errorf("list unmatched mutual likes: %w", err)
	}

	if len(pairs) == 0 {
		return nil
	}

	created := 0
	now := j.now().UTC()
	for _, pair := range pairs {
		match, ok, err := j.matches.Upsert(ctx, pair.UserAID, pair.UserBID, now)
		if err != nil {
			return fmt.Errorf("reconcile match %s/%s: %w", pair.UserAID, pair.UserBID, err)
		}
		if !ok {
			continue
		}
		created++
		if j.events != nil {
			j.events.Publish(realtime.MatchesTopic(match.UserAID))
			j.events.Publish(realtime.MatchesTopic(match.UserBID))
		}
	}

	if created > 0 {
		j.logger.Info("reconcile recovered lost matches", zap.Int("created", created))
	}
	return nil
}
