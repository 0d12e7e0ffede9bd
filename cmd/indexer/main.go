// Command indexer builds the catalog artifacts served by the API: it embeds
// every product's passage text and writes the metadata/vectors file pair.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zoomfind/prodex/internal/config"
	"github.com/zoomfind/prodex/internal/domain"
	domcatalog "github.com/zoomfind/prodex/internal/domain/catalog"
	logpkg "github.com/zoomfind/prodex/internal/logger"
	catalogrepo "github.com/zoomfind/prodex/internal/repository/catalog"
	openaiEmb "github.com/zoomfind/prodex/internal/transport/openai"
)

const batchSize = 64

// scrapedProduct is one record of the scraper's output file.
type scrapedProduct struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Price    json.Number       `json:"price"`
	Category string            `json:"category"`
	Specs    map[string]string `json:"specs"`
}

func main() {
	_ = godotenv.Load()

	input := flag.String("input", "data/products.json", "scraped products JSON file")
	flag.Parse()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	if err := run(context.Background(), cfg, *input, logger); err != nil {
		logger.Fatal("Indexing failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, input string, logger *zap.Logger) error {
	data, err := os.ReadFile(filepath.Clean(input))
	if err != nil {
		return fmt.Errorf("read input %s: %w", input, err)
	}

	var scraped []scrapedProduct
	if err := json.Unmarshal(data, &scraped); err != nil {
		return fmt.Errorf("parse input: %w", err)
	}
	if len(scraped) == 0 {
		return fmt.Errorf("input %s holds no products", input)
	}
	logger.Info("Loaded scraped products",
		zap.String("input", input),
		zap.Int("count", len(scraped)),
	)

	var embedder domain.Embedder = openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   "openai",
		Logger:     logger,
	})
	if cfg.Embedding.PassageInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, cfg.Embedding.PassageInstruction)
	}

	texts := make([]string, len(scraped))
	for i, sp := range scraped {
		p := domcatalog.New(productID(sp, i), sp.Title, sp.Price.String(), sp.Category, sp.Specs, nil)
		texts[i] = p.EmbeddingText()
	}

	vectors, err := embedAll(ctx, embedder, texts, logger)
	if err != nil {
		return err
	}

	products := make([]domcatalog.Product, len(scraped))
	for i, sp := range scraped {
		products[i] = domcatalog.New(
			productID(sp, i), sp.Title, sp.Price.String(), sp.Category, sp.Specs, vectors[i])
	}

	if err := catalogrepo.Save(cfg.Data.MetadataFile, cfg.Data.VectorsFile, products); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}

	logger.Info("Catalog artifacts written",
		zap.String("metadata", cfg.Data.MetadataFile),
		zap.String("vectors", cfg.Data.VectorsFile),
		zap.Int("products", len(products)),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)
	return nil
}

// productID falls back to the input position for records the scraper left
// without an identifier.
func productID(sp scrapedProduct, i int) string {
	if sp.ID != "" {
		return sp.ID
	}
	return fmt.Sprintf("p%05d", i+1)
}

func embedAll(
	ctx context.Context, embedder domain.Embedder, texts []string, logger *zap.Logger,
) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		var (
			batch domain.BatchEmbeddingResult
			err   error
		)
		if be, ok := embedder.(domain.BatchEmbedder); ok {
			batch, err = be.BatchEmbed(ctx, texts[start:end])
		} else {
			batch, err = domain.BatchFallback(ctx, embedder, texts[start:end])
		}
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}

		vectors = append(vectors, batch.Embeddings...)
		logger.Info("Embedded batch",
			zap.Int("done", end),
			zap.Int("total", len(texts)),
			zap.Int("tokens", batch.TotalTokens),
		)
	}

	return vectors, nil
}
