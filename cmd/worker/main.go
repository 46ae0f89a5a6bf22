package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/NotJohn04/commitkeeper/internal/config"
	"github.com/NotJohn04/commitkeeper/internal/database"
	"github.com/NotJohn04/commitkeeper/internal/habits"
	"github.com/NotJohn04/commitkeeper/internal/lifecycle"
	"github.com/NotJohn04/commitkeeper/internal/logger"
	"github.com/NotJohn04/commitkeeper/internal/notify"
	"github.com/NotJohn04/commitkeeper/internal/scheduler"
	"github.com/NotJohn04/commitkeeper/internal/workers"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.New("worker", debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.String("timezone", cfg.Timezone),
		zap.Int("habit_horizon_days", cfg.HabitHorizonDays),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()

	if err := db.EnsureSchema(ctx); err != nil {
		zapLogger.Fatal("failed_to_ensure_schema", zap.Error(err))
	}
	zapLogger.Info("connected_to_database")

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("invalid_redis_url", zap.Error(err))
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()

	registry := scheduler.NewRedisRegistry(redisClient)
	sched, err := scheduler.NewRabbitMQScheduler(cfg.RabbitMQURL, registry)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := sched.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_rabbitmq")

	commitmentRepo := database.NewCommitmentRepository(db)
	habitRepo := database.NewHabitRepository(db)

	var sink notify.Sink
	if cfg.ChatWebhookURL != "" {
		sink = notify.NewWebhookSink(cfg.ChatWebhookURL, zapLogger)
	} else {
		zapLogger.Warn("no_webhook_configured_prompts_go_to_log")
		sink = notify.NewLogSink(zapLogger)
	}

	engine := lifecycle.NewEngine(commitmentRepo, sched, sink, zapLogger,
		lifecycle.WithGrace(cfg.Grace()),
		lifecycle.WithTaskLead(cfg.TaskReminderLead()),
	)

	// Habit materializer turns habit definitions into concrete commitments
	// ahead of time.
	materializer := habits.NewMaterializer(
		habitRepo,
		commitmentRepo,
		engine,
		cfg.Location(),
		cfg.HabitHorizonDays,
		time.Duration(cfg.HabitSweepMinutes)*time.Minute,
		zapLogger,
	)
	go func() {
		if err := materializer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("habit_materializer_stopped_with_error", zap.Error(err))
		}
	}()

	// DLQ garbage collector keeps dead-lettered jobs from piling up.
	dlqGC := scheduler.NewGarbageCollector(sched, 1*time.Hour, 24*time.Hour, zapLogger)
	go func() {
		if err := dlqGC.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
		}
	}()

	dispatcher := workers.NewDispatcher(sched, engine, zapLogger)
	if err := dispatcher.Run(ctx, cfg.RabbitMQPrefetch); err != nil && !errors.Is(err, context.Canceled) {
		zapLogger.Fatal("dispatcher_stopped_with_error", zap.Error(err))
	}

	zapLogger.Info("worker_exited")
}
