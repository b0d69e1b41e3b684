package fabmatch

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/poiesic/fabmatch/ai"
	"github.com/poiesic/fabmatch/cache"
	"github.com/poiesic/fabmatch/conversation"
	"github.com/poiesic/fabmatch/ingestion"
	"github.com/poiesic/fabmatch/policy"
	"github.com/poiesic/fabmatch/search"
)

// Config is the service configuration, usually read from a TOML file:
//
//	db_path = "./data/db"
//	equipment_file = "./data/equipment.json"
//	policy_dir = "./data/policy"
//
//	[ai]
//	host = "http://localhost:11434/v1"
//	generator_model = "qwen2.5:7b"
//
//	[session]
//	ttl = "1h"
type Config struct {
	DBPath        string `toml:"db_path"`
	InMemory      bool   `toml:"in_memory"`
	EquipmentFile string `toml:"equipment_file"`
	RulesFile     string `toml:"rules_file"`
	PolicyDir     string `toml:"policy_dir"`
	PatternsFile  string `toml:"patterns_file"`

	// Watch reloads rules and policy files when they change on disk.
	Watch bool `toml:"watch"`

	AI        AIConfig        `toml:"ai"`
	Search    SearchConfig    `toml:"search"`
	Session   SessionConfig   `toml:"session"`
	Cache     CacheConfig     `toml:"cache"`
	Policy    PolicyConfig    `toml:"policy"`
	Ingestion IngestionConfig `toml:"ingestion"`
}

// AIConfig selects the model endpoints. Host, when set, is used for both
// services unless a specific host is given.
type AIConfig struct {
	Host           string  `toml:"host"`
	EmbeddingHost  string  `toml:"embedding_host"`
	GeneratorHost  string  `toml:"generator_host"`
	EmbeddingModel string  `toml:"embedding_model"`
	GeneratorModel string  `toml:"generator_model"`
	Temperature    float64 `toml:"temperature"`
	MaxTokens      int     `toml:"max_tokens"`
}

// SearchConfig tunes hybrid retrieval.
type SearchConfig struct {
	SemanticWeight float64       `toml:"semantic_weight"`
	LexicalWeight  float64       `toml:"lexical_weight"`
	MaxAttempts    int           `toml:"max_attempts"`
	RetryDelay     time.Duration `toml:"retry_delay"`
}

// SessionConfig bounds the conversation store.
type SessionConfig struct {
	TTL         time.Duration `toml:"ttl"`
	Capacity    int           `toml:"capacity"`
	JanitorSpec string        `toml:"janitor"`
}

// CacheConfig sets the lifetime of cached generations.
type CacheConfig struct {
	TTL time.Duration `toml:"ttl"`
}

// PolicyConfig controls policy table caching.
type PolicyConfig struct {
	SettingsTTL time.Duration `toml:"settings_ttl"`
}

// IngestionConfig tunes seeding and re-embedding.
type IngestionConfig struct {
	BatchSize int `toml:"batch_size"`
	Workers   int `toml:"workers"`
}

// DefaultConfig returns a configuration for a local database and a local
// OpenAI-compatible model server.
func DefaultConfig() *Config {
	def := ai.DefaultConfig()
	retry := ai.DefaultRetryPolicy
	return &Config{
		DBPath: "./data/db",
		AI: AIConfig{
			EmbeddingHost:  def.EmbeddingHost,
			GeneratorHost:  def.GeneratorHost,
			EmbeddingModel: def.EmbeddingModel,
			GeneratorModel: def.GeneratorModel,
			Temperature:    def.Temperature,
			MaxTokens:      def.MaxTokens,
		},
		Search: SearchConfig{
			SemanticWeight: search.DefaultWeights.Semantic,
			LexicalWeight:  search.DefaultWeights.Lexical,
			MaxAttempts:    retry.MaxAttempts,
			RetryDelay:     retry.BaseDelay,
		},
		Session: SessionConfig{
			TTL:         conversation.DefaultTTL,
			Capacity:    conversation.DefaultCapacity,
			JanitorSpec: conversation.DefaultJanitorSpec,
		},
		Cache:     CacheConfig{TTL: cache.DefaultTTL},
		Policy:    PolicyConfig{SettingsTTL: policy.DefaultSettingsTTL},
		Ingestion: IngestionConfig{BatchSize: ingestion.DefaultBatchSize},
	}
}

// LoadConfig reads a TOML file over DefaultConfig. An empty path returns
// the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parse %s: unknown keys %v", path, undecoded)
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.DBPath == "" && !c.InMemory {
		return ErrDBPathRequired
	}
	if err := c.weights().Validate(); err != nil {
		return err
	}
	if c.Search.MaxAttempts <= 0 {
		return ai.ErrInvalidMaxAttempts
	}
	if c.Session.TTL <= 0 || c.Cache.TTL <= 0 {
		return errors.New("config: session and cache ttl must be positive")
	}
	if c.Ingestion.BatchSize <= 0 {
		return ingestion.ErrInvalidBatchSize
	}
	return nil
}

// ModelConfig returns the ai.Config for the configured endpoints.
func (c *Config) ModelConfig() *ai.Config {
	opts := []ai.ConfigOption{
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithGeneratorModel(c.AI.GeneratorModel),
		ai.WithTemperature(c.AI.Temperature),
		ai.WithMaxTokens(c.AI.MaxTokens),
	}
	if c.AI.Host != "" {
		opts = append(opts, ai.WithHost(c.AI.Host))
	}
	if c.AI.EmbeddingHost != "" {
		opts = append(opts, ai.WithEmbeddingHost(c.AI.EmbeddingHost))
	}
	if c.AI.GeneratorHost != "" {
		opts = append(opts, ai.WithGeneratorHost(c.AI.GeneratorHost))
	}
	return ai.NewConfig(opts...)
}

func (c *Config) weights() search.Weights {
	return search.Weights{Semantic: c.Search.SemanticWeight, Lexical: c.Search.LexicalWeight}
}

func (c *Config) retryPolicy() ai.RetryPolicy {
	return ai.RetryPolicy{MaxAttempts: c.Search.MaxAttempts, BaseDelay: c.Search.RetryDelay}
}
