package main

import (
	"context"
	"errors"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crm_engine/internal/config"
	"crm_engine/internal/entities"
	"crm_engine/internal/infrastructure"
	"crm_engine/internal/interfaces"
	"crm_engine/internal/interfaces/http"
	"crm_engine/internal/knowledge"
	"crm_engine/internal/llm"
	"crm_engine/internal/repository"
	"crm_engine/internal/usecases"
	logx "crm_engine/pkg/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		logx.Warn().Err(err).Msg("no .env file loaded, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to load config")
	}
	logx.Init(logx.LoggerOpts{Environment: cfg.Environment()})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	var store *repository.Store
	if cfg.DatabaseURL != "" {
		pgClient, err := infrastructure.NewPostgresClient(ctx, cfg.DatabaseURL)
		if err != nil {
			logx.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pgClient.Close()
		store = repository.NewPostgresStore(pgClient.Pool)
	} else {
		logx.Warn().Msg("DATABASE_URL not set, using in-memory store")
		store = repository.NewMemoryStore().Store()
	}

	var dedup interfaces.Deduper
	if cfg.Redis.URL != "" {
		redisClient, err := infrastructure.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logx.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		dedup = infrastructure.NewRedisDeduper(redisClient, cfg.Webhook.DedupTTL)
	} else {
		memDedup, err := infrastructure.NewMemoryDeduper(cfg.Webhook.DedupMemorySize, cfg.Webhook.DedupTTL)
		if err != nil {
			logx.Fatal().Err(err).Msg("failed to create deduper")
		}
		dedup = memDedup
	}

	// Knowledge and LLM
	loader := knowledge.StoreLoader{Repo: store.Knowledge}
	snapshots, err := knowledge.NewSnapshotCache(cfg.ConsoleCacheSize, loader)
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to create snapshot cache")
	}
	// Provider calls run without a client-side timeout.
	providers := llm.NewFactory(cfg.LLM, nil)
	orchestrator := llm.NewOrchestrator(llm.DefaultMaxRounds)

	// Channels
	channelHTTP := &nethttp.Client{Timeout: 30 * time.Second}
	waManager := infrastructure.NewWhatsAppManager(cfg.Channels.WhatsAppDeviceDir)
	tgManager := infrastructure.NewTelegramBotManager(channelHTTP)

	delivery := usecases.NewDelivery(usecases.DeliveryChannels{
		WhatsAppCloud:  infrastructure.NewWhatsAppBusinessClient(cfg.Channels.GraphURL, channelHTTP),
		Evolution:      infrastructure.NewEvolutionClient(cfg.Channels.EvolutionBaseURL, channelHTTP),
		WhatsAppDevice: waManager,
		Instagram:      infrastructure.NewMetaPageClient(cfg.Channels.GraphURL, entities.PlatformInstagram, channelHTTP),
		Messenger:      infrastructure.NewMetaPageClient(cfg.Channels.GraphURL, entities.PlatformMessenger, channelHTTP),
		Telegram:       tgManager,
	})

	responder := usecases.NewAutoResponder(store, knowledge.NewRetriever(loader), providers, orchestrator, delivery)

	// Replies run detached from the webhook request so the channel gets its ack first.
	ingestion := usecases.NewIngestionService(store, dedup, func(_ context.Context, evt usecases.IngestedEvent) {
		go responder.HandleMessage(context.WithoutCancel(ctx), evt)
	})

	waManager.OnMessage = func(orgID string, msg infrastructure.DeviceMessage) {
		if _, err := ingestion.Ingest(ctx, http.FromDeviceMessage(orgID, msg)); err != nil {
			logx.Error().Err(err).Str("org_id", orgID).Msg("failed to ingest device message")
		}
	}
	if n := waManager.RestoreSessions(ctx); n > 0 {
		logx.Info().Int("sessions", n).Msg("restored whatsapp device sessions")
	}

	console := usecases.NewConsoleService(store, snapshots, providers, orchestrator)
	knowledgeService := usecases.NewKnowledgeService(store.Knowledge, snapshots)

	// HTTP server
	if cfg.Environment().IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	http.SetupRoutes(r, http.Dependencies{
		Webhook:       cfg.Webhook,
		PublicURL:     cfg.PublicURL,
		RateLimit:     rate.Limit(cfg.RateLimitRPS),
		RateBurst:     cfg.RateLimitBurst,
		Ingestion:     ingestion,
		Console:       console,
		Knowledge:     knowledgeService,
		Organizations: store.Organizations,
		WhatsApp:      waManager,
		Telegram:      tgManager,
	}, http.NewMiddleware(cfg.JWTSecret))

	srv := &nethttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logx.Info().Str("addr", cfg.HTTPAddr).Str("env", cfg.Environment().String()).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			logx.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	logx.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logx.Error().Err(err).Msg("http server shutdown")
	}
	waManager.DisconnectAll()
}
