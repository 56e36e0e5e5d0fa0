package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kikipou/Loopi-App/internal/config"
	s3infra "github.com/kikipou/Loopi-App/internal/infra/s3"
	pgrepo "github.com/kikipou/Loopi-App/internal/repo/postgres"
	redrepo "github.com/kikipou/Loopi-App/internal/repo/redis"
	authsvc "github.com/kikipou/Loopi-App/internal/services/auth"
	boardssvc "github.com/kikipou/Loopi-App/internal/services/boards"
	matchessvc "github.com/kikipou/Loopi-App/internal/services/matches"
	mediasvc "github.com/kikipou/Loopi-App/internal/services/media"
	postssvc "github.com/kikipou/Loopi-App/internal/services/posts"
	profilessvc "github.com/kikipou/Loopi-App/internal/services/profiles"
	ratesvc "github.com/kikipou/Loopi-App/internal/services/rate"
	swipersvc "github.com/kikipou/Loopi-App/internal/services/swiper"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	sessionRepo := redrepo.NewSessionRepo(redisClient)
	rateRepo := redrepo.NewRateRepo(redisClient)
	accountRepo := pgrepo.NewAccountRepo(pool)
	postRepo := pgrepo.NewPostRepo(pool)
	likeRepo := pgrepo.NewLikeRepo(pool)
	matchRepo := pgrepo.NewMatchRepo(pool)
	taskRepo := pgrepo.NewTaskRepo(pool)
	deadlineRepo := pgrepo.NewDeadlineRepo(pool)

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

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	authService := authsvc.NewService(jwtManager, sessionRepo, accountRepo, cfg.Auth.RefreshTTL)

	mediaStorage := mediasvc.NewS3Storage(s3Client, cfg.S3.Bucket)
	mediaService := mediasvc.NewService(mediaStorage, cfg.Loopi.SignedURLTTL, cfg.Loopi.MaxImageSizeBytes)

	postsService := postssvc.NewService(postRepo, mediaService, cfg.Loopi.SearchLimit, log)
	postsService.AttachImageCleanup(mediaService)

	profileService := profilessvc.NewService(accountRepo, mediaService, log)

	rateLimiter := ratesvc.NewLimiter(rateRepo, cfg.Loopi.LikeRatePerMinute, cfg.Loopi.LikeRatePer10Sec)

	runTx := func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		return pgrepo.WithTx(ctx, pool, fn)
	}
	matchesService := matchessvc.NewService(matchRepo, taskRepo, deadlineRepo, runTx, log)
	boardsService := boardssvc.NewService(taskRepo, deadlineRepo, matchesService, cfg.Loopi.DueSoonDays, log)

	swipeService := swipersvc.NewService(
		postRepo,
		likeRepo,
		matchRepo,
		mediaService,
		cfg.Loopi.SwipeQueueLimit,
		log,
	)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	RegisterRoutes(r, Dependencies{
		AuthService:    authService,
		PostsService:   postsService,
		ProfileService: profileService,
		SwipeService:   swipeService,
		RateLimiter:    rateLimiter,
		MatchesService: matchesService,
		BoardsService:  boardsService,
		MediaService:   mediaService,
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
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
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
