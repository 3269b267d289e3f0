package wire

import (
	"Beacon/internal/api"
	"Beacon/internal/api/config"
	"Beacon/internal/api/handler"
	"Beacon/internal/job"
	"Beacon/internal/pkg/cron"
	"Beacon/internal/pkg/kafka"
	mongodb "Beacon/internal/pkg/mongo"
	"Beacon/internal/pkg/platform"
	"Beacon/internal/pkg/redis"
	"Beacon/internal/repository"
	"Beacon/internal/service"
	"context"
	log "log/slog"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// Core 业务核心组件，HTTP 服务与运维 CLI 共用
type Core struct {
	Store           service.AnalyticsStore
	UserAnalytics   service.UserAnalyticsService
	GlobalAnalytics service.GlobalAnalyticsService
	Updater         service.AnalyticsUpdater
	PlatformSvc     service.PlatformService
	RefreshJob      *job.AnalyticsRefreshJob
	InitIndexes     func(ctx context.Context) error
}

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	*Core
	Router       *gin.Engine
	CronMgr      *cron.Manager
	KafkaManager *kafka.ConsumerManager
}

// BuildCore 依赖 redis.InitRedis 已完成
func BuildCore(db *gorm.DB, mongoDB *mongo.Database, cfg *config.Config) *Core {
	userRepo := repository.NewUserRepo(db)
	accountRepo := repository.NewConnectedAccountRepo(db)
	postRepo := mongodb.NewSocialPostRepo(mongoDB)
	metricsRepo := mongodb.NewPostMetricsRepo(mongoDB)

	cache := redis.NewCache(redis.GetRdbClient())
	locker := redis.NewLocker(redis.GetRdbClient())
	fetchers := platform.NewFetchers(cfg.Platforms, accountRepo)

	store := service.NewAnalyticsStore(metricsRepo)
	userAnalytics := service.NewUserAnalyticsService(store, postRepo, cache, cfg.Analytics.SummaryCacheTTL)
	globalAnalytics := service.NewGlobalAnalyticsService(store, postRepo, userRepo, cache, cfg.Analytics.SummaryCacheTTL)
	bulkDelay := service.ClampBulkDelay(cfg.Analytics.BulkDelay)
	if bulkDelay != cfg.Analytics.BulkDelay {
		log.Warn("analytics.bulk_delay below minimum, clamped", "configured", cfg.Analytics.BulkDelay, "effective", bulkDelay)
	}
	updater := service.NewAnalyticsUpdater(store, postRepo, fetchers, userAnalytics, bulkDelay)

	return &Core{
		Store:           store,
		UserAnalytics:   userAnalytics,
		GlobalAnalytics: globalAnalytics,
		Updater:         updater,
		PlatformSvc:     service.NewPlatformService(fetchers),
		RefreshJob:      job.NewAnalyticsRefreshJob(updater, locker, cfg.Analytics.RefreshLockTTL),
		InitIndexes: func(ctx context.Context) error {
			return mongodb.EnsureIndexes(ctx, metricsRepo, postRepo)
		},
	}
}

func BuildApplication(db *gorm.DB, mongoDB *mongo.Database, cfg *config.Config) (*ApplicationContainer, error) {
	core := BuildCore(db, mongoDB, cfg)

	handlers := &api.HandlersGroup{
		AnalyticsHandler:      handler.NewAnalyticsHandler(core.UserAnalytics, core.Updater),
		AdminAnalyticsHandler: handler.NewAdminAnalyticsHandler(core.GlobalAnalytics, core.PlatformSvc, core.RefreshJob, core.InitIndexes),
	}

	router := api.SetupRouter(handlers, redis.NewCache(redis.GetRdbClient()))

	kafkaMgr, err := kafka.NewConsumerManager(cfg, core.Updater)
	if err != nil {
		return nil, err
	}

	return &ApplicationContainer{
		Core:         core,
		Router:       router,
		CronMgr:      cron.NewCronManager(cfg.Analytics.RefreshCron, core.RefreshJob),
		KafkaManager: kafkaMgr,
	}, nil
}
