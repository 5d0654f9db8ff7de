package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/skillradar/config"
	"github.com/yoockh/skillradar/internal/api/handlers"
	"github.com/yoockh/skillradar/internal/api/middleware"
	"github.com/yoockh/skillradar/internal/api/routes"
	"github.com/yoockh/skillradar/internal/cache"
	"github.com/yoockh/skillradar/internal/logger"
	"github.com/yoockh/skillradar/internal/notify"
	"github.com/yoockh/skillradar/internal/providers/llm"
	mongorepo "github.com/yoockh/skillradar/internal/repositories/mongo"
	pgrepo "github.com/yoockh/skillradar/internal/repositories/postgres"
	"github.com/yoockh/skillradar/internal/services"
	"github.com/yoockh/skillradar/internal/storage"
	"github.com/yoockh/skillradar/internal/workers"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadSettings()
	if err != nil {
		logrus.Fatalf("config error: %v", err)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// PostgreSQL is the source of truth and is required
	if err := config.InitPostgres(cfg.PostgresURI); err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	if err := config.Migrate(config.PostgresDB); err != nil {
		log.Fatalf("PostgreSQL migrate error: %v", err)
	}
	log.Info("PostgreSQL connected")
	db := config.PostgresDB

	// Optional backends degrade features, never the core API
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		if err := config.InitRedis(cfg.RedisAddr); err != nil {
			log.WithError(err).Warn("Redis unavailable; cache, stream and shared rate limits disabled")
		} else {
			rdb = config.RedisClient
			log.Info("Redis connected")
		}
	}

	var (
		snapshotRepo mongorepo.SnapshotRepository
		reportRepo   mongorepo.ImportReportRepository
	)
	if cfg.MongoURI != "" {
		if err := config.InitMongo(cfg.MongoURI); err != nil {
			log.WithError(err).Warn("MongoDB unavailable; snapshots and import reports disabled")
		} else {
			if err := config.EnsureMongoIndexes(cfg.MongoDB); err != nil {
				log.WithError(err).Warn("MongoDB index creation failed")
			}
			mdb := config.MongoClient.Database(cfg.MongoDB)
			snapshotRepo = mongorepo.NewSnapshotRepo(mdb)
			reportRepo = mongorepo.NewImportReportRepo(mdb)
			log.Info("MongoDB connected")
		}
	}

	var mailer notify.Mailer = notify.LogMailer{Log: log}
	if cfg.RabbitMQURL != "" {
		mq, err := notify.NewRabbitMQ(cfg.RabbitMQURL, cfg.MailQueue)
		if err != nil {
			log.WithError(err).Warn("RabbitMQ unavailable; mail jobs are only logged")
		} else {
			defer mq.Close()
			mailer = mq
			log.Info("RabbitMQ connected")
		}
	}

	var uploader storage.Uploader
	if cfg.GCSBucket != "" {
		bucket, err := storage.NewBucket(ctx, storage.GCSConfig{
			Bucket:        cfg.GCSBucket,
			PublicURL:     cfg.GCSPublicURL,
			UniformAccess: cfg.GCSUniformAccess,
		})
		if err != nil {
			log.WithError(err).Warn("GCS unavailable; uploads disabled")
		} else {
			defer bucket.Close()
			uploader = bucket
		}
	}

	var provider llm.Provider
	if cfg.VertexProject != "" {
		gem, err := llm.NewVertexGemini(ctx, cfg.VertexProject, cfg.VertexLocation, cfg.VertexModel)
		if err != nil {
			log.WithError(err).Warn("Vertex AI unavailable; summaries disabled")
		} else {
			defer gem.Close()
			provider = gem
		}
	}

	var scoreCache cache.Cache = cache.Nop{}
	var limiter middleware.Limiter = middleware.NewMemoryLimiter()
	if rdb != nil {
		scoreCache = cache.NewRedisCache(rdb, cfg.CacheNamespace)
		limiter = middleware.NewRedisLimiter(rdb)
	}

	// Repositories
	profileRepo := pgrepo.NewProfileRepo(db)
	accountRepo := pgrepo.NewAccountRepo(db)
	locationRepo := pgrepo.NewLocationRepo(db)
	taxonomyRepo := pgrepo.NewTaxonomyRepo(db)
	qualifierRepo := pgrepo.NewQualifierRepo(db)
	jobProfileRepo := pgrepo.NewJobProfileRepo(db)
	evaluationRepo := pgrepo.NewEvaluationRepo(db)
	settingRepo := pgrepo.NewSettingRepo(db)
	fileRepo := pgrepo.NewFileRepo(db)

	// Services
	authSvc := services.NewAuthService(services.AuthConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		TokenTTL: cfg.TokenTTL,
		ResetTTL: cfg.ResetTokenTTL,
	}, profileRepo, accountRepo, mailer, log)
	userSvc := services.NewUserService(profileRepo, locationRepo, jobProfileRepo, authSvc, log)
	scoreSvc := services.NewScoreService(services.ScoreConfig{
		DefaultExpected: cfg.DefaultExpectedScore,
		CacheTTL:        cfg.ScoreCacheTTL,
	}, evaluationRepo, taxonomyRepo, qualifierRepo, jobProfileRepo, scoreCache, log)
	snapshotSvc := services.NewSnapshotService(snapshotRepo, evaluationRepo, profileRepo, scoreSvc)

	var events services.EvaluationEvents = services.InlineEvents{Snapshots: snapshotSvc, Log: log}
	if rdb != nil {
		events = workers.StreamEvents{Redis: rdb, Stream: workers.DefaultStream}
		pool := &workers.SnapshotWorkerPool{
			Redis:      rdb,
			Snapshots:  snapshotSvc,
			NumWorkers: cfg.SnapshotWorkers,
			Logger:     log,
		}
		if err := pool.Start(ctx); err != nil {
			log.Fatalf("snapshot workers: %v", err)
		}
	}

	evaluationSvc := services.NewEvaluationService(services.EvaluationDeps{
		Evaluations: evaluationRepo,
		Profiles:    profileRepo,
		Taxonomy:    taxonomyRepo,
		Qualifiers:  qualifierRepo,
		JobProfiles: jobProfileRepo,
		Scores:      scoreSvc,
		Events:      events,
		LLM:         provider,
		Log:         log,
	})

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	routes.RegisterRoutes(r, routes.Deps{
		JWTSecret: []byte(cfg.JWTSecret),
		JWTIssuer: cfg.JWTIssuer,
		Profiles:  profileRepo,
		Logger:    log,
		Limits: routes.RateLimits{
			Limiter: limiter,
			Auth:    cfg.AuthRateLimit,
			Import:  cfg.ImportRateLimit,
			Window:  cfg.RateWindow,
		},

		Auth:        handlers.NewAuthHandler(authSvc),
		Users:       handlers.NewUserHandler(userSvc),
		Imports:     handlers.NewImportHandler(services.NewImportService(profileRepo, locationRepo, reportRepo, authSvc, log)),
		Locations:   handlers.NewLocationHandler(services.NewLocationService(locationRepo)),
		Taxonomy:    handlers.NewTaxonomyHandler(services.NewTaxonomyService(taxonomyRepo, scoreSvc)),
		Qualifiers:  handlers.NewQualifierHandler(services.NewQualifierService(qualifierRepo, scoreSvc)),
		JobProfiles: handlers.NewJobProfileHandler(services.NewJobProfileService(jobProfileRepo, taxonomyRepo, qualifierRepo, scoreSvc)),
		Evaluations: handlers.NewEvaluationHandler(evaluationSvc, snapshotSvc),
		Settings:    handlers.NewSettingHandler(services.NewSettingService(settingRepo)),
		Uploads:     handlers.NewUploadHandler(services.NewUploadService(fileRepo, profileRepo, settingRepo, uploader)),
		Profile:     handlers.NewProfileHandler(userSvc),
		WS:          handlers.NewWSHandler(evaluationSvc, rdb, cfg.AllowedOrigins),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("port", cfg.Port).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}
