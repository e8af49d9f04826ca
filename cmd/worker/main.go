// Package main is the long-running worker process: it wires the fetch
// scheduler (C2), ingestion pipeline (C3), deduplication layer (C4),
// classifier worker (C5), LLM worker (C6), rule engine (C7), and
// housekeeping sweep (C8) into one process sharing a single database
// connection pool, the way the teacher's cmd/worker wires its cron-driven
// crawl job. Every long-lived worker is started on its own goroutine and
// exposes pause/resume/status through the control HTTP surface (spec §6).
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"catchup-feed/internal/handler/http/control"
	pgRepo "catchup-feed/internal/infra/adapter/persistence/postgres"
	"catchup-feed/internal/infra/classifier"
	"catchup-feed/internal/infra/connector"
	"catchup-feed/internal/infra/db"
	"catchup-feed/internal/infra/embedding"
	"catchup-feed/internal/infra/llmprovider"
	"catchup-feed/internal/infra/notifier"
	workerPkg "catchup-feed/internal/infra/worker"
	"catchup-feed/internal/usecase/classify"
	"catchup-feed/internal/usecase/dedupe"
	"catchup-feed/internal/usecase/housekeeping"
	"catchup-feed/internal/usecase/ingest"
	"catchup-feed/internal/usecase/llm"
	"catchup-feed/internal/usecase/notify"
	"catchup-feed/internal/usecase/rules"
	"catchup-feed/internal/usecase/scheduler"
)

func main() {
	logger := initLogger()
	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthAddr := ":" + getEnvDefault("WORKER_HEALTH_PORT", "9091")
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	pipe := wirePipeline(logger, database)

	startMetricsServer(ctx, logger, pipe.notify)

	go pipe.classify.Run(ctx)
	go pipe.llm.Run(ctx)
	pipe.scheduler.Start()
	pipe.housekeeping.Start()

	controlMux := http.NewServeMux()
	control.Register(controlMux, "scheduler", pipe.scheduler)
	control.Register(controlMux, "classify", pipe.classify)
	control.Register(controlMux, "llm", pipe.llm)
	control.Register(controlMux, "housekeeping", pipe.housekeeping)
	control.RegisterFetchNow(controlMux, func(ctx context.Context) (any, error) {
		return pipe.scheduler.FetchAllNow(ctx)
	})
	controlAddr := ":" + getEnvDefault("WORKER_CONTROL_PORT", "9092")
	controlServer := &http.Server{Addr: controlAddr, Handler: controlMux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Info("control server starting", slog.String("addr", controlAddr))
		if err := controlServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("control server failed", slog.Any("error", err))
		}
	}()

	healthServer.SetReady(true)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down worker...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	_ = controlServer.Shutdown(shutdownCtx)
	if err := pipe.scheduler.Stop(shutdownCtx); err != nil {
		logger.Error("scheduler stop failed", slog.Any("error", err))
	}
	if err := pipe.classify.Stop(shutdownCtx); err != nil {
		logger.Error("classify worker stop failed", slog.Any("error", err))
	}
	if err := pipe.llm.Stop(shutdownCtx); err != nil {
		logger.Error("llm worker stop failed", slog.Any("error", err))
	}
	if err := pipe.housekeeping.Stop(shutdownCtx); err != nil {
		logger.Error("housekeeping worker stop failed", slog.Any("error", err))
	}
	if err := pipe.notify.Shutdown(shutdownCtx); err != nil {
		logger.Error("notify service shutdown failed", slog.Any("error", err))
	}
	cancel()
	logger.Info("worker stopped")
}

// pipeline holds every component cmd/worker composes; kept as one struct
// purely so main's start/stop sequencing reads as a short, linear list.
type pipeline struct {
	scheduler    *scheduler.Service
	classify     *classify.Worker
	llm          *llm.Worker
	housekeeping *housekeeping.Worker
	notify       notify.Service
}

func wirePipeline(logger *slog.Logger, database *sql.DB) pipeline {
	items := pgRepo.NewItemRepo(database)
	events := pgRepo.NewItemEventRepo(database)
	channels := pgRepo.NewChannelRepo(database)
	sources := pgRepo.NewSourceRepo(database)
	embeddings := pgRepo.NewItemEmbeddingRepo(database)
	rulesRepo := pgRepo.NewRuleRepo(database)
	stakeholders := pgRepo.NewStakeholderRepo(database)
	housekeepingRepo := pgRepo.NewHousekeepingRepo(database)

	embeddingClient := embedding.NewClient(loadEmbeddingConfig(logger))
	classifierClient := classifier.NewClient(loadClassifierConfig(logger))
	llmChain := loadLLMChain(logger)

	dedupeStage := dedupe.New(items, embeddings, embeddingClient)
	ruleEngine := rules.New(items, events, rulesRepo, stakeholders, llmChain, rules.NewMetrics())
	notifyService := loadNotifyService(logger)
	ruleEngine.Notifier = notifyService
	ruleEngine.Channels = channels
	ruleEngine.Sources = sources

	classifyQueue := classify.NewQueue(classify.DefaultQueueCapacity)
	ingestPipeline := ingest.New(items, events, dedupeStage, classifyQueue, ingest.NewMetrics())

	llmQueue := llm.NewQueue(llm.DefaultQueueCapacity)
	classifyWorker := classify.New(items, events, embeddingClient, classifierClient, classifyQueue, llmQueue, ruleEngine, classify.NewMetrics())

	sourceResolver := llm.NewSourceResolver(channels, sources)
	llmWorker := llm.New(items, events, llmChain, sourceResolver, llmQueue, ruleEngine, llm.NewMetrics())

	connectorFactory := connector.NewFactory(60*time.Second, 10<<20, true)
	schedulerSvc := scheduler.NewService(channels, connectorFactory, ingestPipeline, scheduler.DefaultConfig(), scheduler.NewMetrics())

	housekeepingWorker := housekeeping.New(items, events, embeddings, housekeepingRepo, housekeeping.NewMetrics())
	housekeepingWorker.Purger = housekeepingRepo

	return pipeline{
		scheduler:    schedulerSvc,
		classify:     classifyWorker,
		llm:          llmWorker,
		housekeeping: housekeepingWorker,
		notify:       notifyService,
	}
}

// loadNotifyService builds the stakeholder-mention alert fan-out (spec
// §4.7) from Discord/Slack webhook configuration. A channel with no
// webhook URL configured stays registered but disabled, matching the
// teacher's "always satisfy the Channel interface" pattern so the rule
// engine never needs a nil check.
func loadNotifyService(logger *slog.Logger) notify.Service {
	discordCfg := notifier.DiscordConfig{
		Enabled:    os.Getenv("DISCORD_WEBHOOK_URL") != "",
		WebhookURL: os.Getenv("DISCORD_WEBHOOK_URL"),
		Timeout:    10 * time.Second,
	}
	slackCfg := notifier.SlackConfig{
		Enabled:    os.Getenv("SLACK_WEBHOOK_URL") != "",
		WebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
		Timeout:    10 * time.Second,
	}
	if !discordCfg.Enabled && !slackCfg.Enabled {
		logger.Warn("no notification webhook configured, stakeholder mention alerts are disabled")
	}
	channels := []notify.Channel{
		notify.NewDiscordChannel(discordCfg),
		notify.NewSlackChannel(slackCfg),
	}
	return notify.NewService(channels, getEnvInt("NOTIFY_MAX_CONCURRENT", 10))
}

func initLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return logger
}

func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	if err := db.MigrateUp(database); err != nil {
		logger.Error("failed to migrate database", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// loadEmbeddingConfig loads the embed-retrieval/embed-paraphrase service
// contract (spec §6) from environment variables, defaulting to an
// OpenAI-compatible self-hosted endpoint the way the teacher's
// summarizer provider configs default.
func loadEmbeddingConfig(logger *slog.Logger) embedding.Config {
	cfg := embedding.Config{
		BaseURL:         os.Getenv("EMBEDDING_BASE_URL"),
		APIKey:          os.Getenv("EMBEDDING_API_KEY"),
		RetrievalModel:  getEnvDefault("EMBEDDING_RETRIEVAL_MODEL", "text-embedding-3-small"),
		ParaphraseModel: getEnvDefault("EMBEDDING_PARAPHRASE_MODEL", "paraphrase-multilingual-mpnet-base-v2"),
		Dimension:       getEnvInt("EMBEDDING_DIMENSION", 768),
	}
	if cfg.BaseURL == "" {
		logger.Warn("EMBEDDING_BASE_URL not set, using provider default endpoint")
	}
	return cfg
}

// loadClassifierConfig loads C5's trained-model HTTP endpoint from
// environment variables.
func loadClassifierConfig(logger *slog.Logger) classifier.Config {
	cfg := classifier.DefaultConfig()
	cfg.Endpoint = os.Getenv("CLASSIFIER_ENDPOINT")
	cfg.APIKey = os.Getenv("CLASSIFIER_API_KEY")
	if cfg.Endpoint == "" {
		logger.Warn("CLASSIFIER_ENDPOINT not set, classifier calls will fail until configured")
	}
	return cfg
}

// loadLLMChain builds the C6 provider fallback chain: a primary
// OpenAI-compatible endpoint (reference: local model endpoint per spec
// §4.6) and an optional hosted Claude fallback, tried in that order.
func loadLLMChain(logger *slog.Logger) *llmprovider.Chain {
	var providers []llmprovider.Provider

	if baseURL := os.Getenv("LLM_PRIMARY_BASE_URL"); baseURL != "" {
		providers = append(providers, llmprovider.NewOpenAI(llmprovider.OpenAIConfig{
			BaseURL: baseURL,
			APIKey:  os.Getenv("LLM_PRIMARY_API_KEY"),
			Model:   getEnvDefault("LLM_PRIMARY_MODEL", "gpt-4o-mini"),
			Timeout: 60 * time.Second,
		}))
	} else {
		logger.Warn("LLM_PRIMARY_BASE_URL not set, primary LLM provider disabled")
	}

	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		providers = append(providers, llmprovider.NewClaude(llmprovider.ClaudeConfig{
			APIKey:  apiKey,
			Model:   getEnvDefault("LLM_FALLBACK_MODEL", "claude-3-5-haiku-latest"),
			Timeout: 60 * time.Second,
		}))
	} else {
		logger.Warn("ANTHROPIC_API_KEY not set, hosted fallback LLM provider disabled")
	}

	return llmprovider.NewChain(providers...)
}
