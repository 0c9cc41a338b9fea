package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/deskmind/deskmind/internal/config"
	"github.com/deskmind/deskmind/internal/database"
	"github.com/deskmind/deskmind/internal/openai"
	"github.com/deskmind/deskmind/internal/repository"
	"github.com/deskmind/deskmind/internal/service"
	openailib "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
)

// SeedCmd returns the seed command
func SeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <file>",
		Short: "Load knowledge entries from a JSON file",
		Long:  "Load knowledge entries from a JSON file into the knowledge base, embedding each entry",
		Args:  cobra.ExactArgs(1),
		RunE:  runSeed,
	}

	cmd.Flags().String("actor", "seed", "Actor recorded in the audit trail")

	return cmd
}

type seedEntry struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasOpenAI() {
		return fmt.Errorf("seeding requires an embedding provider: set DESKMIND_OPENAI_API_KEY")
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var entries []seedEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("seed file contains no entries")
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	embeddingClient := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		BaseURL:             cfg.OpenAIBaseURL,
		EmbeddingModel:      openailib.EmbeddingModel(cfg.EmbeddingModel),
		EmbeddingDimensions: cfg.EmbeddingDimensions,
	})

	store := service.NewFAQStore(repository.NewFAQRepository(pool), embeddingClient)
	adminSvc := service.NewAdminService(
		store,
		repository.NewAuditRepository(pool),
		repository.NewStateRepository(pool),
		repository.NewTxRunner(pool),
		int64(cfg.ReindexThreshold),
	)

	actor, _ := cmd.Flags().GetString("actor")

	inputs := make([]service.AddEntryInput, 0, len(entries))
	for _, e := range entries {
		inputs = append(inputs, service.AddEntryInput{ID: e.ID, Title: e.Title, Body: e.Body, Tags: e.Tags})
	}

	result := adminSvc.BulkAdd(ctx, inputs, actor)

	fmt.Printf("seeded %d entries (%d failed)\n", result.Added, result.Failed)
	for i, r := range result.Results {
		if !r.Success {
			fmt.Printf("  entry %d (%s): %s\n", i, entries[i].Title, r.Error)
		}
	}

	if result.Failed > 0 {
		return fmt.Errorf("%d entries failed to load", result.Failed)
	}
	return nil
}
