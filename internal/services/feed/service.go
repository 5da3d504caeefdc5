package feed

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/avoronkov/flare/internal/domain/enums"
	"github.com/avoronkov/flare/internal/domain/model"
	pgrepo "github.com/avoronkov/flare/internal/repo/postgres"
)

var ErrValidation = errors.New("validation error")

type CandidateStore interface {
	Get(ctx context.Context, userID string) (model.User, error)
	ListCandidates(ctx context.Context, q pgrepo.CandidateQuery) ([]model.User, error)
}

type DecidedCache interface {
	AllDecidedTargets(ctx context.Context, userID string) (map[string]enums.Decision, error)
}

// SwipeLog is the authoritative decision history, used when the cache
// cannot answer.
type SwipeLog interface {
	ListByActor(ctx context.Context, actorID string) ([]model.Swipe, error)
}

type Config struct {
	DefaultAgeMin    int
	DefaultAgeMax    int
	DefaultBatchSize int
	MaxBatchSize     int
	CandidatePool    int
}

type Dependencies struct {
	Profiles CandidateStore
	Cache    DecidedCache
	Swipes   SwipeLog
	Logger   *zap.Logger
}

type Service struct {
	profiles CandidateStore
	cache    DecidedCache
	swipes   SwipeLog
	logger   *zap.Logger
	cfg      Config
	shuffle  func([]model.User)
}

func NewService(deps Dependencies, cfg Config) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultAgeMin <= 0 {
		cfg.DefaultAgeMin = 18
	}
	if cfg.DefaultAgeMax <= 0 {
		cfg.DefaultAgeMax = 99
	}
	if cfg.DefaultBatchSize <= 0 {
		cfg.DefaultBatchSize = 20
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 50
	}
	if cfg.CandidatePool <= 0 {
		cfg.CandidatePool = 200
	}

	return &Service{
		profiles: deps.Profiles,
		cache:    deps.Cache,
		swipes:   deps.Swipes,
		logger:   logger,
		cfg:      cfg,
		shuffle: func(users []model.User) {
			rand.Shuffle(len(users), func(i, j int) {
				users[i], users[j] = users[j], users[i]
			})
		},
	}
}

// NextBatch assembles up to batchSize profiles the viewer has not decided on
// yet. The exclusion set comes from the local cache; when the cache is
// unreachable the swipe log answers instead, so a cold cache can only widen
// the feed, never break it. Any store error returns no partial results.
func (s *Service) NextBatch(ctx context.Context, viewerID string, batchSize int) ([]model.User, error) {
	if viewerID == "" {
		return nil, ErrValidation
	}
	if s.profiles == nil {
		return nil, fmt.Errorf("feed dependencies are not configured")
	}

	if batchSize <= 0 {
		batchSize = s.cfg.DefaultBatchSize
	}
	if batchSize > s.cfg.MaxBatchSize {
		batchSize = s.cfg.MaxBatchSize
	}

	viewer, err := s.profiles.Get(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	ageMin, ageMax := viewer.AgeMin, viewer.AgeMax
	if ageMin <= 0 {
		ageMin = s.cfg.DefaultAgeMin
	}
	if ageMax <= 0 {
		ageMax = s.cfg.DefaultAgeMax
	}

	decided, err := s.decidedTargets(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.profiles.ListCandidates(ctx, pgrepo.CandidateQuery{
		ViewerID: viewerID,
		AgeMin:   ageMin,
		AgeMax:   ageMax,
		Limit:    s.cfg.CandidatePool,
	})
	if err != nil {
		return nil, err
	}

	batch := make([]model.User, 0, batchSize)
	for _, candidate := range candidates {
		if candidate.ID == viewerID {
			continue
		}
		if _, ok := decided[candidate.ID]; ok {
			continue
		}
		batch = append(batch, candidate)
	}

	s.shuffle(batch)
	if len(batch) > batchSize {
		batch = batch[:batchSize]
	}

	return batch, nil
}

func (s *Service) decidedTargets(ctx context.Context, viewerID string) (map[string]enums.Decision, error) {
	if s.cache != nil {
		decided, err := s.cache.AllDecidedTargets(ctx, viewerID)
		if err == nil {
			return decided, nil
		}
		s.logger.Warn("swipe cache read failed, falling back to swipe log",
			zap.String("viewer_id", viewerID),
			zap.Error(err),
		)
	}

	if s.swipes == nil {
		return map[string]enums.Decision{}, nil
	}

	swipes, err := s.swipes.ListByActor(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	decided := make(map[string]enums.Decision, len(swipes))
	for _, swipe := range swipes {
		decided[swipe.TargetID] = swipe.Decision
	}
	return decided, nil
}
