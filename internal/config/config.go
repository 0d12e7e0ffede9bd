package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the prodex API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Cache     CacheConfig     `yaml:"cache"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Oracle    OracleConfig    `yaml:"oracle"`
	Search    SearchConfig    `yaml:"search"`
	Data      DataConfig      `yaml:"data"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AuthConfig holds API authentication settings. With no keys configured the
// API is open.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CacheConfig holds the Redis embedding-cache settings. Optional: with no
// addresses the server runs without a cache.
type CacheConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	TTLHours         int      `yaml:"ttl_hours"`
}

// EmbeddingConfig holds embedding provider settings. The provider serves an
// OpenAI-compatible embeddings API in front of a multilingual E5 model.
type EmbeddingConfig struct {
	APIKey             string `yaml:"api_key"`
	BaseURL            string `yaml:"base_url"`
	Model              string `yaml:"model"`
	Dimensions         int    `yaml:"dimensions"`
	QueryInstruction   string `yaml:"query_instruction"`
	PassageInstruction string `yaml:"passage_instruction"`
}

// OracleConfig holds category oracle (Gemini) and pre-retrieval settings.
type OracleConfig struct {
	APIKey         string  `yaml:"api_key"`
	Model          string  `yaml:"model"`
	TimeoutMS      int     `yaml:"timeout_ms"`
	TopK           int     `yaml:"top_k"` // candidates passed to the LLM
	ScoreFloor     float64 `yaml:"score_floor"`
	SemanticWeight float64 `yaml:"semantic_weight"`
	KeywordWeight  float64 `yaml:"keyword_weight"`
}

// SearchConfig holds ranking tunables. The boost magnitudes are configuration,
// not invariants.
type SearchConfig struct {
	CategoryBoost       float64 `yaml:"category_boost"`
	TermBoost           float64 `yaml:"term_boost"`
	TermBoostCap        int     `yaml:"term_boost_cap"`
	MaxResults          int     `yaml:"max_results"`
	MaxPerCategory      int     `yaml:"max_per_category"`
	MaxPerBrand         int     `yaml:"max_per_brand"`
	CandidateMultiplier int     `yaml:"candidate_multiplier"`
	MinSimilarity       float64 `yaml:"min_similarity"`
	FlatThreshold       int     `yaml:"flat_threshold"`
	IVFProbes           int     `yaml:"ivf_probes"`
	WorkerPoolSize      int     `yaml:"worker_pool_size"`
}

// DataConfig holds paths to the offline-built artifacts.
type DataConfig struct {
	CategoriesFile string `yaml:"categories_file"`
	SynonymsFile   string `yaml:"synonyms_file"`
	MetadataFile   string `yaml:"metadata_file"`
	VectorsFile    string `yaml:"vectors_file"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Cache.TTLHours <= 0 {
		c.Cache.TTLHours = 24 * 7
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "intfloat/multilingual-e5-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 384
	}
	if c.Embedding.QueryInstruction == "" {
		c.Embedding.QueryInstruction = "query: "
	}
	if c.Embedding.PassageInstruction == "" {
		c.Embedding.PassageInstruction = "passage: "
	}
	if c.Oracle.Model == "" {
		c.Oracle.Model = "gemini-2.0-flash"
	}
	if c.Oracle.TimeoutMS <= 0 {
		c.Oracle.TimeoutMS = 2500
	}
	if c.Oracle.TopK <= 0 {
		c.Oracle.TopK = 3
	}
	if c.Oracle.ScoreFloor <= 0 {
		c.Oracle.ScoreFloor = 0.2
	}
	if c.Oracle.SemanticWeight <= 0 {
		c.Oracle.SemanticWeight = 0.6
	}
	if c.Oracle.KeywordWeight <= 0 {
		c.Oracle.KeywordWeight = 0.4
	}
	if c.Search.CategoryBoost <= 0 {
		c.Search.CategoryBoost = 0.20
	}
	if c.Search.TermBoost <= 0 {
		c.Search.TermBoost = 0.10
	}
	if c.Search.TermBoostCap <= 0 {
		c.Search.TermBoostCap = 3
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = 5
	}
	if c.Search.MaxPerCategory <= 0 {
		c.Search.MaxPerCategory = 3
	}
	if c.Search.MaxPerBrand <= 0 {
		c.Search.MaxPerBrand = 2
	}
	if c.Search.CandidateMultiplier <= 0 {
		c.Search.CandidateMultiplier = 3
	}
	if c.Search.MinSimilarity <= 0 {
		c.Search.MinSimilarity = 0.2
	}
	if c.Search.FlatThreshold <= 0 {
		c.Search.FlatThreshold = 1000
	}
	if c.Search.IVFProbes <= 0 {
		c.Search.IVFProbes = 4
	}
	if c.Search.WorkerPoolSize <= 0 {
		c.Search.WorkerPoolSize = runtime.NumCPU()
	}
	if c.Data.CategoriesFile == "" {
		c.Data.CategoriesFile = "data/categories.yaml"
	}
	if c.Data.SynonymsFile == "" {
		c.Data.SynonymsFile = "data/synonyms.yaml"
	}
	if c.Data.MetadataFile == "" {
		c.Data.MetadataFile = "output/metadata.json"
	}
	if c.Data.VectorsFile == "" {
		c.Data.VectorsFile = "output/vectors.bin"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Embedding.BaseURL == "" {
		return fmt.Errorf("embedding.base_url is required")
	}
	if c.Search.TermBoostCap > 10 {
		return fmt.Errorf("search.term_boost_cap must be at most 10, got %d", c.Search.TermBoostCap)
	}
	if c.Search.CategoryBoost+float64(c.Search.TermBoostCap)*c.Search.TermBoost > 1.0 {
		return fmt.Errorf("combined maximum boost exceeds 1.0; scores would always clip")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
