package model

import "time"

// Config is the complete datemine configuration
type Config struct {
	Database     DatabaseConfig     `yaml:"database" mapstructure:"database"`
	Parser       ParserConfig       `yaml:"parser" mapstructure:"parser"`
	Classifier   ClassifierConfig   `yaml:"classifier" mapstructure:"classifier"`
	Scoring      ScoringConfig      `yaml:"scoring" mapstructure:"scoring"`
	Approval     ApprovalConfig     `yaml:"approval" mapstructure:"approval"`
	Learning     LearningConfig     `yaml:"learning" mapstructure:"learning"`
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// DatabaseConfig selects the durable store
type DatabaseConfig struct {
	Driver  string `yaml:"driver" mapstructure:"driver"` // sqlite or postgres
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
	Migrate bool   `yaml:"migrate" mapstructure:"migrate"` // Run migrations on open
}

// ParserConfig tunes date recognition
type ParserConfig struct {
	MinYear     int  `yaml:"min_year" mapstructure:"min_year"` // Bare four-digit years outside [MinYear, MaxYear] are ignored
	MaxYear     int  `yaml:"max_year" mapstructure:"max_year"`
	CenturyBias bool `yaml:"century_bias" mapstructure:"century_bias"`
	// Years resolved inside [RecentFrom, RecentTo] from a two-digit token are
	// candidates for the 19xx reinterpretation.
	RecentFrom int `yaml:"recent_from" mapstructure:"recent_from"`
	RecentTo   int `yaml:"recent_to" mapstructure:"recent_to"`

	// Engine selects the date-parsing capability: rules (default) or llm
	Engine string `yaml:"engine" mapstructure:"engine"`
}

// ClassifierConfig tunes keyword classification
type ClassifierConfig struct {
	KeywordWeight float64 `yaml:"keyword_weight" mapstructure:"keyword_weight"` // Contribution of one matched keyword
}

// ScoringConfig holds the overall confidence weights
type ScoringConfig struct {
	DistanceWeight float64 `yaml:"distance_weight" mapstructure:"distance_weight"`
	PositionWeight float64 `yaml:"position_weight" mapstructure:"position_weight"`
	CategoryWeight float64 `yaml:"category_weight" mapstructure:"category_weight"`
	ParserWeight   float64 `yaml:"parser_weight" mapstructure:"parser_weight"`
}

// ApprovalConfig controls auto-approval
type ApprovalConfig struct {
	Threshold  float64    `yaml:"threshold" mapstructure:"threshold"`
	Categories []Category `yaml:"categories" mapstructure:"categories"`
}

// LearningConfig controls the adaptive keyword weights
type LearningConfig struct {
	Enabled     bool          `yaml:"enabled" mapstructure:"enabled"`
	MinModifier float64       `yaml:"min_modifier" mapstructure:"min_modifier"`
	MaxModifier float64       `yaml:"max_modifier" mapstructure:"max_modifier"`
	SnapshotTTL time.Duration `yaml:"snapshot_ttl" mapstructure:"snapshot_ttl"`
}

// HTTPConfig configures web page fetching
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig configures the fetched page cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig bounds batch processing
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitingConfig bounds per-domain fetch rate
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// LLMConfig configures the optional LLM date extractor
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, ollama or empty
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// LogConfig configures zap
type LogConfig struct {
	Mode  string `yaml:"mode" mapstructure:"mode"` // development or production
	Level string `yaml:"level" mapstructure:"level"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:  "sqlite",
			DSN:     "datemine.db",
			Migrate: true,
		},
		Parser: ParserConfig{
			Engine:      "rules",
			MinYear:     1600,
			MaxYear:     2099,
			CenturyBias: true,
			RecentFrom:  2020,
			RecentTo:    2099,
		},
		Classifier: ClassifierConfig{
			KeywordWeight: 0.25,
		},
		Scoring: ScoringConfig{
			DistanceWeight: 0.3,
			PositionWeight: 0.2,
			CategoryWeight: 0.3,
			ParserWeight:   0.2,
		},
		Approval: ApprovalConfig{
			Threshold:  0.6,
			Categories: []Category{CategoryBuildDate, CategoryOpening, CategoryDemolition},
		},
		Learning: LearningConfig{
			Enabled:     true,
			MinModifier: 0.25,
			MaxModifier: 2.0,
			SnapshotTTL: 5 * time.Minute,
		},
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "datemine/0.1",
			MaxBodyBytes:  2_000_000,
			RespectRobots: true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".datemine-cache",
			MemoryTTL: 15 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 1,
			BurstSize:         2,
		},
		LLM: LLMConfig{
			Timeout:   30,
			MaxTokens: 1000,
		},
		Log: LogConfig{
			Mode:  "development",
			Level: "info",
		},
	}
}
