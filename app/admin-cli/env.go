package main

import (
	"context"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yoockh/skillradar/config"
	"github.com/yoockh/skillradar/internal/cache"
	"github.com/yoockh/skillradar/internal/logger"
	"github.com/yoockh/skillradar/internal/models"
	"github.com/yoockh/skillradar/internal/notify"
	mongorepo "github.com/yoockh/skillradar/internal/repositories/mongo"
	pgrepo "github.com/yoockh/skillradar/internal/repositories/postgres"
	"github.com/yoockh/skillradar/internal/services"
)

// cliCaller is the identity administration commands act as.
var cliCaller = services.Caller{ID: "admin-cli", Role: models.RoleSuperAdmin}

type env struct {
	cfg    *config.Settings
	log    *logrus.Logger
	db     *gorm.DB
	mailer notify.Mailer
	close  func()
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.LoadSettings()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.LogLevel, "text")

	if err := config.InitPostgres(cfg.PostgresURI); err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, log: log, db: config.PostgresDB, mailer: notify.LogMailer{Log: log}, close: func() {}}

	if cfg.RabbitMQURL != "" {
		mq, err := notify.NewRabbitMQ(cfg.RabbitMQURL, cfg.MailQueue)
		if err != nil {
			log.WithError(err).Warn("RabbitMQ unavailable; mail jobs are only logged")
		} else {
			e.mailer = mq
			e.close = func() { _ = mq.Close() }
		}
	}
	return e, nil
}

func (e *env) auth() services.AuthService {
	return services.NewAuthService(services.AuthConfig{
		Secret:   []byte(e.cfg.JWTSecret),
		Issuer:   e.cfg.JWTIssuer,
		TokenTTL: e.cfg.TokenTTL,
		ResetTTL: e.cfg.ResetTokenTTL,
	}, pgrepo.NewProfileRepo(e.db), pgrepo.NewAccountRepo(e.db), e.mailer, e.log)
}

// reports connects to MongoDB when configured; imports still run without it.
func (e *env) reports() mongorepo.ImportReportRepository {
	if e.cfg.MongoURI == "" {
		return nil
	}
	if err := config.InitMongo(e.cfg.MongoURI); err != nil {
		e.log.WithError(err).Warn("MongoDB unavailable; import report not stored")
		return nil
	}
	return mongorepo.NewImportReportRepo(config.MongoClient.Database(e.cfg.MongoDB))
}

// scores connects to Redis when configured so writes made here also retire
// the scores cached by the API. Nil without Redis.
func (e *env) scores() services.ScoreService {
	if e.cfg.RedisAddr == "" {
		return nil
	}
	if err := config.InitRedis(e.cfg.RedisAddr); err != nil {
		e.log.WithError(err).Warn("Redis unavailable; cached scores expire on their own")
		return nil
	}
	db := e.db
	return services.NewScoreService(services.ScoreConfig{
		DefaultExpected: e.cfg.DefaultExpectedScore,
		CacheTTL:        e.cfg.ScoreCacheTTL,
	}, pgrepo.NewEvaluationRepo(db), pgrepo.NewTaxonomyRepo(db), pgrepo.NewQualifierRepo(db), pgrepo.NewJobProfileRepo(db),
		cache.NewRedisCache(config.RedisClient, e.cfg.CacheNamespace), e.log)
}
