package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flowdeck/flowdeck/internal/config"
	"github.com/flowdeck/flowdeck/internal/db"
	"github.com/flowdeck/flowdeck/internal/flows"
	"github.com/flowdeck/flowdeck/internal/semantic"
	"github.com/flowdeck/flowdeck/internal/server"
)

var (
	servePort     int
	serveAllowAll bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the flowdeck API server",
	Long: `Starts the flowdeck server: REST API for flows, tags, and auth,
a websocket feed of flow updates, and semantic flow search when an
embedding API key is configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if serveAllowAll {
			cfg.Server.AllowAll = true
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		if err := os.MkdirAll(cfg.Server.DataDir, 0o755); err != nil {
			return fmt.Errorf("creating data dir: %w", err)
		}
		dbPath := filepath.Join(cfg.Server.DataDir, "flowdeck.db")
		database, err := db.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		index, err := buildIndex(cmd.Context(), cfg, database)
		if err != nil {
			return err
		}

		srv := server.New(server.Config{
			Port:     cfg.Server.Port,
			DataDir:  cfg.Server.DataDir,
			AllowAll: cfg.Server.AllowAll,
		}, database, index)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			srv.Shutdown(context.Background())
		}()

		fmt.Fprintf(os.Stderr, "flowdeck server v%s starting on port %d\n", Version, cfg.Server.Port)
		fmt.Fprintf(os.Stderr, "  Database: %s\n", dbPath)
		if index != nil {
			fmt.Fprintf(os.Stderr, "  Semantic search: enabled (%d flows indexed)\n", index.Count())
		}

		return srv.Start()
	},
}

// buildIndex creates the semantic index and seeds it with every stored
// flow. Returns nil when no embedding API key is configured.
func buildIndex(ctx context.Context, cfg *config.Config, database *db.DB) (*semantic.Index, error) {
	apiKey := cfg.Embedding.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, nil
	}

	index, err := semantic.NewIndex(semantic.NewOpenAIEmbedder(apiKey, cfg.Embedding.Model))
	if err != nil {
		return nil, fmt.Errorf("creating semantic index: %w", err)
	}

	store := flows.NewStore(database)
	summaries, err := store.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("listing flows for indexing: %w", err)
	}
	for _, s := range summaries {
		agg, err := store.GetAggregate(ctx, s.Flow.ID)
		if err != nil {
			continue
		}
		if err := index.IndexFlow(ctx, agg); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not index flow %s: %v\n", s.Flow.ID, err)
		}
	}
	return index, nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().BoolVar(&serveAllowAll, "allow-all-origins", false, "Allow all CORS origins")
	rootCmd.AddCommand(serveCmd)
}
