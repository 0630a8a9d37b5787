package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"spec-search/internal/config"
	"spec-search/internal/db"
	"spec-search/internal/embedding"
	"spec-search/internal/extract"
	"spec-search/internal/helper"
	"spec-search/internal/ingest"
	"spec-search/internal/mcp"
	"spec-search/internal/memstore"
	"spec-search/internal/models"
	"spec-search/internal/search"
	"spec-search/internal/server"
)

const (
	serverName = "ecma376-search"
	version    = "0.1.0"
)

var configPath string

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "spec-search",
		Short: "Semantic search over the ECMA-376 specification",
		Long:  "Ingestion pipeline and search server for the four parts of ECMA-376. Extract a part PDF, chunk and embed it, upload it to Postgres, then serve search over REST and JSON-RPC.",
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./configs/config.yaml", "Path to the yaml config file")

	rootCmd.AddCommand(createExtractCommand())
	rootCmd.AddCommand(createChunkCommand())
	rootCmd.AddCommand(createEmbedCommand())
	rootCmd.AddCommand(createUploadCommand())
	rootCmd.AddCommand(createFixPagesCommand())
	rootCmd.AddCommand(createInitDBCommand())
	rootCmd.AddCommand(createTruncateCommand())
	rootCmd.AddCommand(createStatsCommand())
	rootCmd.AddCommand(createServeCommand())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func loadConfig() *config.Config {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("Error loading config")
	}
	return cfg
}

func openStore(cfg *config.Config) *db.Store {
	sqldb := db.Connect(&cfg.Database)
	return db.NewStore(sqldb, &cfg.Database, cfg.Embedding.Dimensions)
}

func createExtractCommand() *cobra.Command {
	var pdfPath, outDir string
	var startPage, endPage int

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract a part PDF into markdown and section artifacts",
		Run: func(cmd *cobra.Command, args []string) {
			result, err := extract.PDF(pdfPath, startPage, endPage)
			if err != nil {
				log.Fatal().Err(err).Msg("Error extracting pdf")
			}
			if err := extract.WriteOutputs(outDir, result); err != nil {
				log.Fatal().Err(err).Msg("Error writing extraction artifacts")
			}
			log.Info().Str("out", outDir).Int("sections", len(result.Sections)).Msg("extraction complete")
		},
	}

	cmd.Flags().StringVarP(&pdfPath, "pdf", "f", "", "Path to the part PDF")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory for extraction artifacts")
	cmd.Flags().IntVar(&startPage, "start", 0, "First page to extract (default: first page)")
	cmd.Flags().IntVar(&endPage, "end", 0, "Last page to extract (default: last page)")
	cmd.MarkFlagRequired("pdf")
	cmd.MarkFlagRequired("out")

	return cmd
}

func createChunkCommand() *cobra.Command {
	var part int
	var sectionsPath, outPath string

	cmd := &cobra.Command{
		Use:   "chunk",
		Short: "Chunk an extracted sections.json into a chunks file",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			n, err := ingest.Chunk(cfg.Chunking, part, sectionsPath, outPath)
			if err != nil {
				log.Fatal().Err(err).Msg("Error chunking sections")
			}
			fmt.Printf("Wrote %d chunks to %s\n", n, outPath)
		},
	}

	cmd.Flags().IntVarP(&part, "part", "p", 0, "Part number (1-4)")
	cmd.Flags().StringVarP(&sectionsPath, "sections", "s", "", "Path to sections.json")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output chunks file")
	cmd.MarkFlagRequired("part")
	cmd.MarkFlagRequired("sections")
	cmd.MarkFlagRequired("out")

	return cmd
}

func createEmbedCommand() *cobra.Command {
	var inPath, outPath string

	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Embed a chunks file with the configured provider",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			client, err := embedding.New(cfg.Embedding)
			if err != nil {
				log.Fatal().Err(err).Msg("Error initializing embedder")
			}
			if err := ingest.Embed(context.Background(), client, inPath, outPath); err != nil {
				log.Fatal().Err(err).Msg("Error embedding chunks")
			}
			fmt.Printf("Wrote embedded chunks to %s\n", outPath)
		},
	}

	cmd.Flags().StringVarP(&inPath, "in", "i", "", "Input chunks file")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output embedded file")
	cmd.MarkFlagRequired("in")
	cmd.MarkFlagRequired("out")

	return cmd
}

func createUploadCommand() *cobra.Command {
	var part int
	var inPath string
	var truncate bool

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload an embedded file into Postgres",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			store := openStore(cfg)
			defer store.Close()

			n, err := ingest.Upload(context.Background(), store, part, inPath, truncate)
			if err != nil {
				log.Fatal().Err(err).Msg("Error uploading chunks")
			}
			fmt.Printf("Uploaded %d chunks for part %d\n", n, part)
		},
	}

	cmd.Flags().IntVarP(&part, "part", "p", 0, "Part number (1-4)")
	cmd.Flags().StringVarP(&inPath, "in", "i", "", "Input embedded file")
	cmd.Flags().BoolVar(&truncate, "truncate", false, "Empty the chunk table before uploading")
	cmd.MarkFlagRequired("part")
	cmd.MarkFlagRequired("in")

	return cmd
}

func createFixPagesCommand() *cobra.Command {
	var contentPath, embeddedPath string
	var startPage int

	cmd := &cobra.Command{
		Use:   "fix-pages",
		Short: "Repair page numbers in an embedded file from content.md",
		Long:  "Re-parses a content.md for section page positions and patches the page numbers in an embedded file in place. Avoids re-chunking and re-embedding, which costs API credits.",
		Run: func(cmd *cobra.Command, args []string) {
			updated, missing, err := ingest.FixPages(contentPath, embeddedPath, startPage)
			if err != nil {
				log.Fatal().Err(err).Msg("Error fixing page numbers")
			}
			fmt.Printf("Updated %d chunks\n", updated)
			if len(missing) > 0 {
				fmt.Printf("Warning: %d sections not found in content\n", len(missing))
			}
		},
	}

	cmd.Flags().StringVar(&contentPath, "content", "", "Path to content.md")
	cmd.Flags().StringVar(&embeddedPath, "embedded", "", "Path to the embedded file to patch")
	cmd.Flags().IntVar(&startPage, "start", 1, "Page number the content starts at")
	cmd.MarkFlagRequired("content")
	cmd.MarkFlagRequired("embedded")

	return cmd
}

func createInitDBCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the chunk table and vector indexes",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			store := openStore(cfg)
			defer store.Close()

			if err := store.Init(context.Background()); err != nil {
				log.Fatal().Err(err).Msg("Error initializing database")
			}
			fmt.Printf("Initialized schema with vector(%d)\n", cfg.Embedding.Dimensions)
		},
	}
}

func createTruncateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "truncate",
		Short: "Delete every chunk from the store",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			store := openStore(cfg)
			defer store.Close()

			if err := store.Truncate(context.Background()); err != nil {
				log.Fatal().Err(err).Msg("Error truncating chunk table")
			}
			fmt.Println("Chunk table truncated")
		},
	}
}

func createStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print chunk counts per part",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			store := openStore(cfg)
			defer store.Close()

			stats, err := store.Stats(context.Background())
			if err != nil {
				log.Fatal().Err(err).Msg("Error reading stats")
			}
			helper.PrettyPrint(stats)
		},
	}
}

func createServeCommand() *cobra.Command {
	var memoryFiles []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve search over REST and JSON-RPC",
		Long:  "Starts the HTTP server with the REST endpoints and the /mcp JSON-RPC tool surface. With --memory, embedded files are loaded into an in-memory store instead of connecting to Postgres.",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()

			client, err := embedding.New(cfg.Embedding)
			if err != nil {
				log.Fatal().Err(err).Msg("Error initializing embedder")
			}

			var store search.Store
			if len(memoryFiles) > 0 {
				store = loadMemoryStore(memoryFiles)
			} else {
				pg := openStore(cfg)
				defer pg.Close()
				store = pg
			}

			svc := search.NewService(store, client)
			rpc := mcp.NewHandler(svc, serverName, version)
			srv := server.New(&cfg.Server, svc, rpc)

			log.Info().Int("port", cfg.Server.Port).Str("provider", cfg.Embedding.Provider).
				Str("model", client.Model()).Bool("memory", len(memoryFiles) > 0).Msg("search service ready")
			if err := srv.Run(); err != nil {
				log.Fatal().Err(err).Msg("server stopped")
			}
		},
	}

	cmd.Flags().StringSliceVar(&memoryFiles, "memory", nil, "Embedded files to serve from memory instead of Postgres")

	return cmd
}

func loadMemoryStore(paths []string) *memstore.Store {
	store, err := memstore.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating in-memory store")
	}
	for _, path := range paths {
		var chunks []models.Chunk
		if err := helper.ReadJSONFile(path, &chunks); err != nil {
			log.Fatal().Err(err).Str("file", path).Msg("Error reading embedded file")
		}
		if err := store.InsertChunks(context.Background(), chunks); err != nil {
			log.Fatal().Err(err).Str("file", path).Msg("Error loading chunks into memory")
		}
		log.Info().Str("file", path).Int("chunks", len(chunks)).Msg("loaded embedded file")
	}
	return store
}
