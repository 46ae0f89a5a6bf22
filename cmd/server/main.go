package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NotJohn04/commitkeeper/internal/config"
	"github.com/NotJohn04/commitkeeper/internal/database"
	"github.com/NotJohn04/commitkeeper/internal/dialogue"
	"github.com/NotJohn04/commitkeeper/internal/handlers"
	"github.com/NotJohn04/commitkeeper/internal/intent"
	"github.com/NotJohn04/commitkeeper/internal/lifecycle"
	"github.com/NotJohn04/commitkeeper/internal/logger"
	"github.com/NotJohn04/commitkeeper/internal/middleware"
	"github.com/NotJohn04/commitkeeper/internal/notify"
	"github.com/NotJohn04/commitkeeper/internal/scheduler"
	"github.com/NotJohn04/commitkeeper/internal/services/oidc"
	"github.com/NotJohn04/commitkeeper/internal/services/resolver"
	"github.com/NotJohn04/commitkeeper/internal/telemetry"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for resolver API logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.New("api", debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("timezone", cfg.Timezone),
		zap.String("ai_model", cfg.AIModel),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// Initialize OpenTelemetry if enabled
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.Setup(context.Background(), "commitkeeper-api", cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := tp.Shutdown(shutdownCtx); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()

	if err := db.EnsureSchema(context.Background()); err != nil {
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
	zapLogger.Info("connected_to_redis")

	sched := connectScheduler(cfg, redisClient, zapLogger)
	defer func() {
		if err := sched.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	// Repositories
	commitmentRepo := database.NewCommitmentRepository(db)
	habitRepo := database.NewHabitRepository(db)

	// Lifecycle engine. The server side only creates, resolves and cancels;
	// job handling happens in the worker.
	sink := buildSink(cfg, zapLogger)
	engine := lifecycle.NewEngine(commitmentRepo, sched, sink, zapLogger,
		lifecycle.WithGrace(cfg.Grace()),
		lifecycle.WithTaskLead(cfg.TaskReminderLead()),
	)

	// Natural-language intent extraction
	extractor := intent.NewExtractor(buildResolver(cfg, zapLogger, debugMode), zapLogger)
	drafts := dialogue.NewRedisDraftStore(redisClient)
	dialogueManager := dialogue.NewManager(extractor, drafts, engine, cfg.Location(), zapLogger)

	// Auth
	jwksManager := oidc.NewJWKSManager()
	verifier := oidc.NewVerifier(jwksManager, cfg.AuthIssuer, cfg.AuthJWKSURL)

	// Handlers
	authHandler := handlers.NewAuthHandler()
	commitmentHandler := handlers.NewCommitmentHandler(dialogueManager, engine, commitmentRepo, cfg.Location())
	habitHandler := handlers.NewHabitHandler(habitRepo)
	healthHandler := handlers.NewHealthHandler(db, sched)

	r := mux.NewRouter()

	if cfg.OTELEnabled {
		r.Use(otelmux.Middleware("commitkeeper-api"))
	}
	r.Use(middleware.SecurityHeaders(!debugMode))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
	r.Use(corsHandler.Handler)

	rateLimitMW, err := middleware.RateLimit(redisClient, cfg.RateLimit)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
	}

	r.Use(middleware.BodyLimit(middleware.DefaultBodyLimit))
	r.Use(middleware.RequireJSON)
	r.Use(middleware.Deadline(middleware.DefaultHandlerTimeout))
	r.Use(middleware.Recovery(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	r.HandleFunc("/healthz", healthHandler.Health).Methods("GET")

	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	authMW := middleware.Auth(verifier, zapLogger)

	authRouter := apiRouter.PathPrefix("/auth").Subrouter()
	authRouter.Use(authMW)
	authRouter.Use(rateLimitMW)
	authRouter.HandleFunc("/me", authHandler.GetMe).Methods("GET")

	commitmentsRouter := apiRouter.PathPrefix("/commitments").Subrouter()
	commitmentsRouter.Use(authMW)
	commitmentsRouter.Use(rateLimitMW)
	commitmentHandler.RegisterRoutes(commitmentsRouter)

	habitsRouter := apiRouter.PathPrefix("/habits").Subrouter()
	habitsRouter.Use(authMW)
	habitsRouter.Use(rateLimitMW)
	habitHandler.RegisterRoutes(habitsRouter)

	// Preflight requests short-circuit in the CORS middleware; this keeps
	// unmatched OPTIONS from falling through to a 405.
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// connectScheduler dials RabbitMQ with exponential backoff. The broker often
// starts slower than this process under docker-compose.
func connectScheduler(cfg *config.Config, redisClient *redis.Client, zapLogger *zap.Logger) scheduler.Scheduler {
	const maxRetries = 10
	const initialDelay = 2 * time.Second

	registry := scheduler.NewRedisRegistry(redisClient)

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		sched, err := scheduler.NewRabbitMQScheduler(cfg.RabbitMQURL, registry)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			return sched
		}

		lastErr = err
		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}

	zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries",
		zap.Int("max_retries", maxRetries),
		zap.Error(lastErr),
	)
	return nil
}

// buildResolver assembles the temporal phrase resolver chain. The rule-based
// resolver always runs first; the model-backed one only joins when an API key
// is configured.
func buildResolver(cfg *config.Config, zapLogger *zap.Logger, debugMode bool) intent.Resolver {
	if cfg.OpenAIKey == "" {
		zapLogger.Info("model_resolver_disabled_no_api_key")
		return resolver.NewRules()
	}
	return resolver.NewChain(
		resolver.NewRules(),
		resolver.NewOpenAI(cfg.OpenAIKey, cfg.AIBaseURL, cfg.AIModel, zapLogger, debugMode),
	)
}

// buildSink picks where confirmation prompts and reminders are delivered.
func buildSink(cfg *config.Config, zapLogger *zap.Logger) notify.Sink {
	if cfg.ChatWebhookURL != "" {
		return notify.NewWebhookSink(cfg.ChatWebhookURL, zapLogger)
	}
	return notify.NewLogSink(zapLogger)
}
