package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/praxisnote/praxisnote/internal/agent"
	"github.com/praxisnote/praxisnote/internal/ai"
	"github.com/praxisnote/praxisnote/internal/audit"
	"github.com/praxisnote/praxisnote/internal/cache"
	"github.com/praxisnote/praxisnote/internal/config"
	"github.com/praxisnote/praxisnote/internal/db"
	"github.com/praxisnote/praxisnote/internal/embedder"
	"github.com/praxisnote/praxisnote/internal/handler"
	"github.com/praxisnote/praxisnote/internal/job"
	"github.com/praxisnote/praxisnote/internal/middleware"
	"github.com/praxisnote/praxisnote/internal/notes"
	"github.com/praxisnote/praxisnote/internal/resilience"
	"github.com/praxisnote/praxisnote/internal/retrieval"
	"github.com/praxisnote/praxisnote/internal/safety"
	"github.com/praxisnote/praxisnote/internal/schedule"
	"github.com/praxisnote/praxisnote/internal/vectorstore"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "praxisnote",
		Short: "praxisnote assistant backend",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run praxisnote assistant server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
			return runServer(cfg)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config) error {
	ctx := context.Background()
	logger := logutil.GetLogger(ctx)

	// Shared external cache; without it the pipeline runs uncached and
	// unthrottled rather than refusing to start.
	var store cache.Store
	if cfg.Redis.URL != "" {
		var err error
		store, err = cache.ConnectRedis(cfg.Redis.URL)
		if err != nil {
			logger.Warn("redis unavailable, running uncached", zap.Error(err))
			store = nil
		}
	} else {
		logger.Warn("no redis configured, running uncached")
	}

	// Vector store + note source. Without Postgres (dev mode) vectors live
	// in process and the sync job has nothing to read.
	var vectors vectorstore.Store
	var source notes.Source
	if cfg.Database.DSN != "" || cfg.Database.Host != "" {
		conn, err := db.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		if err := db.EnsureSchema(conn); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		vectors = vectorstore.NewPostgresStore(conn)
		source = notes.NewPostgresSource(conn)
	} else {
		logger.Warn("no database configured, using in-memory vector store")
		vectors = vectorstore.NewMemoryStore()
	}

	genProvider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	embedProvider, err := ai.NewEmbedProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return fmt.Errorf("init embed provider: %w", err)
	}

	wrapper := resilience.New(resilience.Config{
		MaxAttempts:   cfg.Assistant.RetryMaxAttempts,
		FailThreshold: cfg.Assistant.BreakerFailThreshold,
		Cooldown:      time.Duration(cfg.Assistant.BreakerCooldownSecs) * time.Second,
	})
	embedClient := embedder.New(embedProvider, cfg.AI.EmbedModel, wrapper, embedder.Options{
		Store:         store,
		TTL:           time.Duration(cfg.Assistant.EmbedCacheTTLSecs) * time.Second,
		LRUSize:       cfg.Assistant.EmbedLRUSize,
		MaxInputChars: cfg.AI.MaxInputChars,
	})
	engine := retrieval.NewEngine(embedClient, vectors, source, retrieval.Config{
		GeneralMaxWords:   cfg.Assistant.GeneralMaxWords,
		GeneralFloorDelta: cfg.Assistant.GeneralFloorDelta,
	})
	filter, err := safety.NewFilter(safety.FilterConfig{MaxInputChars: cfg.AI.MaxInputChars})
	if err != nil {
		return fmt.Errorf("init safety filter: %w", err)
	}
	results := cache.NewQueryCache(store, time.Duration(cfg.Assistant.ResultCacheTTLSecs)*time.Second)
	invalidator := cache.NewInvalidator(store)
	assistant := agent.New(filter, engine, ai.NewGenerator(genProvider, cfg.AI.Model), wrapper,
		results, source, audit.NewLogEmitter(), agent.Config{
			MaxResults:       cfg.Assistant.MaxResults,
			MinSimilarity:    cfg.Assistant.MinSimilarity,
			QueryTimeout:     time.Duration(cfg.Assistant.QueryTimeoutSeconds) * time.Second,
			SynthesisTimeout: time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
		})

	runner := schedule.NewRunner()
	if source != nil {
		syncJob := job.NewEmbeddingSyncJob(source, embedClient, vectors, invalidator, cfg.Assistant.EmbedSyncBatch)
		if err := runner.Schedule(syncJob, cfg.Assistant.EmbedSyncSpec); err != nil {
			return fmt.Errorf("schedule embedding sync: %w", err)
		}
	}

	deps := handler.RouterDeps{
		Assistant:  handler.NewAssistantHandler(assistant),
		Invalidate: handler.NewInvalidateHandler(invalidator),
		RateLimit:  middleware.RateLimit(store, cfg.RateLimit.PerMinute),
	}

	web, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
			group.GET("/healthz", func(c *gin.Context) {
				c.String(http.StatusOK, "ok")
			})
			group.GET("/metrics", gin.WrapH(promhttp.Handler()))
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logger.Info("http server listening", zap.Int("port", cfg.Port))

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner.Start(runCtx)
	defer runner.Stop()

	go func() {
		if err := web.Run(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	<-runCtx.Done()
	logger.Info("server stopping...")
	return nil
}
