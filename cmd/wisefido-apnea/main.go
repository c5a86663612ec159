package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"wisefido-apnea/internal/analyzer"
	"wisefido-apnea/internal/config"
	"wisefido-apnea/internal/consumer"
	"wisefido-apnea/internal/database"
	"wisefido-apnea/internal/extractor"
	httpapi "wisefido-apnea/internal/http"
	"wisefido-apnea/internal/logger"
	"wisefido-apnea/internal/mqtt"
	"wisefido-apnea/internal/repository"
	"wisefido-apnea/internal/service"
	"wisefido-apnea/internal/store"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "wisefido-apnea")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := repository.EnsureSchema(db); err != nil {
		log.Fatal("Failed to ensure schema", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	kv := store.NewRedisKV(redisClient)
	seriesCache := store.NewSeriesCache(kv)
	candidateCache := store.NewCandidateCache(kv)

	jobsRepo := repository.NewPostgresJobsRepository(db)
	resultsRepo := repository.NewPostgresResultsRepository(db)
	judgmentsRepo := repository.NewPostgresJudgmentsRepository(db)
	calibrationRepo := repository.NewPostgresCalibrationRepository(db)

	extractorClient := extractor.NewClient(cfg.Extractor.BaseURL, log)
	pipeline := analyzer.New(analyzer.DefaultConfig(), log)

	svc := service.NewAnalysisService(
		jobsRepo, resultsRepo, judgmentsRepo, calibrationRepo,
		seriesCache, candidateCache,
		extractorClient, pipeline,
		cfg.Uploads.Dir, log,
	)

	router := httpapi.NewRouter(log)
	router.RegisterHealthRoute()
	router.RegisterAnalysisRoutes(
		httpapi.NewAnalysisHandler(svc, log),
		httpapi.NewCalibrationHandler(svc, log),
	)

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 体动样本 MQTT 摄入是可选组件，没配置 broker 时跳过
	var motionConsumer *consumer.MotionConsumer
	if cfg.MQTT.Broker != "" {
		mqttClient, err := mqtt.NewClient(&cfg.MQTT, log)
		if err != nil {
			log.Fatal("Failed to connect to MQTT broker", zap.Error(err))
		}
		defer mqttClient.Close()

		motionConsumer = consumer.NewMotionConsumer(&cfg.MQTT, mqttClient, seriesCache, log)
		go func() {
			if err := motionConsumer.Start(ctx); err != nil {
				log.Error("Motion consumer stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case <-errCh:
		cancel()
	}

	if motionConsumer != nil {
		motionConsumer.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}
