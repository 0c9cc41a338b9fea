package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deskmind/deskmind/internal/api/handlers"
	"github.com/deskmind/deskmind/internal/config"
	"github.com/deskmind/deskmind/internal/database"
	"github.com/deskmind/deskmind/internal/jobs"
	"github.com/deskmind/deskmind/internal/openai"
	"github.com/deskmind/deskmind/internal/repository"
	"github.com/deskmind/deskmind/internal/server"
	"github.com/deskmind/deskmind/internal/service"
	"github.com/deskmind/deskmind/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	openailib "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the deskmind API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	faqRepo := repository.NewFAQRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	queryLogRepo := repository.NewQueryLogRepository(pool)
	feedbackRepo := repository.NewFeedbackRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	stateRepo := repository.NewStateRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	var embeddingClient service.EmbeddingClient
	var answerer service.Answerer
	if cfg.HasOpenAI() {
		embeddingClient = openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			BaseURL:             cfg.OpenAIBaseURL,
			EmbeddingModel:      openailib.EmbeddingModel(cfg.EmbeddingModel),
			EmbeddingDimensions: cfg.EmbeddingDimensions,
		})
		answerer = &answererAdapter{client: openai.NewChatClient(openai.ChatConfig{
			APIKey:    cfg.OpenAIAPIKey,
			BaseURL:   cfg.OpenAIBaseURL,
			Model:     cfg.ChatModel,
			MaxTokens: cfg.AnswerMaxTokens,
		})}
	} else {
		log.Println("no OpenAI key configured: search and answering are disabled")
		embeddingClient = &noOpEmbedder{}
	}

	store := service.NewFAQStore(faqRepo, embeddingClient)
	conversationSvc := service.NewConversationService(sessionRepo, cfg.MaxSessionMessages)
	queryLogSvc := service.NewQueryLogService(queryLogRepo, feedbackRepo, txRunner)
	adminSvc := service.NewAdminService(store, auditRepo, stateRepo, txRunner, int64(cfg.ReindexThreshold))

	pipeline := service.NewPipeline(
		store,
		answerer,
		conversationSvc,
		queryLogSvc,
		service.NewPromptBuilder(cfg.MaxContextChars),
		service.PipelineConfig{
			TopK:          cfg.SearchTopK,
			Thresholds:    service.ConfidenceThresholds{High: cfg.ConfidenceHigh, Low: cfg.ConfidenceLow},
			Temperature:   cfg.AnswerTemperature,
			AnswerTimeout: cfg.AnswerTimeout,
		},
	)

	maintenance := jobs.NewMaintenanceProcessor(faqRepo, stateRepo, int64(cfg.ReindexThreshold))
	worker := jobs.NewWorker(maintenance, cfg.MaintenanceInterval)
	go worker.Start(ctx)
	log.Println("maintenance worker started")

	routerCfg := server.RouterConfig{
		ChatHandler:     handlers.NewChatHandler(pipeline, store),
		SessionHandler:  handlers.NewSessionHandler(conversationSvc),
		KBHandler:       handlers.NewKBHandler(adminSvc),
		FeedbackHandler: handlers.NewFeedbackHandler(queryLogSvc),
		LogsHandler:     handlers.NewLogsHandler(queryLogSvc),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	worker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// answererAdapter bridges the service message shape to the OpenAI chat client.
type answererAdapter struct {
	client *openai.ChatClient
}

func (a *answererAdapter) Complete(ctx context.Context, messages []service.Message, temperature float64) (string, error) {
	converted := make([]openai.ChatMessage, 0, len(messages))
	for _, m := range messages {
		converted = append(converted, openai.ChatMessage{Role: m.Role, Content: m.Content})
	}
	return a.client.Complete(ctx, converted, temperature)
}

// noOpEmbedder keeps the store constructible without an embedding
// provider; every write or search fails loudly instead of silently
// storing entries that search can never find.
type noOpEmbedder struct{}

func (e *noOpEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("embedding provider not configured: DESKMIND_OPENAI_API_KEY required")
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get migration version and status
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
