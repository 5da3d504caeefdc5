package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/avoronkov/flare/internal/config"
	s3infra "github.com/avoronkov/flare/internal/infra/s3"
	"github.com/avoronkov/flare/internal/jobs/reconcile"
	"github.com/avoronkov/flare/internal/realtime"
	pgrepo "github.com/avoronkov/flare/internal/repo/postgres"
	redrepo "github.com/avoronkov/flare/internal/repo/redis"
	authsvc "github.com/avoronkov/flare/internal/services/auth"
	chatsvc "github.com/avoronkov/flare/internal/services/chat"
	feedsvc "github.com/avoronkov/flare/internal/services/feed"
	matchessvc "github.com/avoronkov/flare/internal/services/matches"
	mediasvc "github.com/avoronkov/flare/internal/services/media"
	profilessvc "github.com/avoronkov/flare/internal/services/profiles"
	swipesvc "github.com/avoronkov/flare/internal/services/swipes"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	broker     *realtime.Broker
	reconciler *reconcile.Job
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	swipeCache := redrepo.NewSwipeCacheRepo(redisClient)

	swipeRepo := pgrepo.NewSwipeRepo(pool)
	matchRepo := pgrepo.NewMatchRepo(pool)
	messageRepo := pgrepo.NewMessageRepo(pool)
	profileRepo := pgrepo.NewProfileRepo(pool)

	broker := realtime.NewBroker()
	runInTx := func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		return pgrepo.WithTx(ctx, pool, fn)
	}

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	authService := authsvc.NewService(profileRepo, jwtManager)

	swipeService := swipesvc.NewService(swipesvc.Dependencies{
		SwipeStore: swipeRepo,
		MatchStore: matchRepo,
		Cache:      swipeCache,
		Events:     broker,
		Logger:     log,
	})

	feedService := feedsvc.NewService(feedsvc.Dependencies{
		Profiles: profileRepo,
		Cache:    swipeCache,
		Swipes:   swipeRepo,
		Logger:   log,
	}, feedsvc.Config{
		DefaultAgeMin:    cfg.Feed.DefaultAgeMin,
		DefaultAgeMax:    cfg.Feed.DefaultAgeMax,
		DefaultBatchSize: cfg.Feed.DefaultBatchSize,
		MaxBatchSize:     cfg.Feed.MaxBatchSize,
		CandidatePool:    cfg.Feed.CandidatePool,
	})

	matchService := matchessvc.NewService(matchessvc.Dependencies{
		Store:    matchRepo,
		Messages: messageRepo,
		Broker:   broker,
		RunInTx:  runInTx,
	})

	chatService := chatsvc.NewService(chatsvc.Dependencies{
		Matches:  matchRepo,
		Messages: messageRepo,
		Events:   broker,
		RunInTx:  runInTx,
	}, chatsvc.Config{
		MaxTextLength: cfg.Chat.MaxTextLength,
	})

	profileService := profilessvc.NewService(profilessvc.Dependencies{
		Store:  profileRepo,
		Broker: broker,
	})

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		s3Client = c
	}
	mediaStorage := mediasvc.NewS3Storage(s3Client, cfg.S3.Bucket)
	mediaService := mediasvc.NewService(profileRepo, mediaStorage)

	var reconciler *reconcile.Job
	if cfg.Reconcile.Enabled {
		reconciler = reconcile.New(swipeRepo, matchRepo, broker, cfg.Reconcile.ScanSize, log)
	}

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	RegisterRoutes(r, Dependencies{
		AuthService:    authService,
		SwipeService:   swipeService,
		FeedService:    feedService,
		MatchService:   matchService,
		ChatService:    chatService,
		ProfileService: profileService,
		MediaService:   mediaService,
		Broker:         broker,
		Logger:         log,
		Config:         cfg,
	})

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		broker:     broker,
		reconciler: reconciler,
		httpRouter: r,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))

	errCh := make(chan error, 2)
	go func() {
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()
	go func() {
		errCh <- a.runReconcileLoop(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err == nil || errors.Is(err, context.Canceled) {
				continue
			}
			return err
		}
	}
}

func (a *App) runReconcileLoop(ctx context.Context) error {
	if a.reconciler == nil {
		return nil
	}

	interval := a.cfg.Reconcile.Interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	if err := a.reconciler.Run(ctx); err != nil {
		a.logger.Warn("reconcile run failed", zap.Error(err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.reconciler.Run(ctx); err != nil {
				a.logger.Warn("reconcile run failed", zap.Error(err))
			}
		}
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
