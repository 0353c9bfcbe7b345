package model

import "time"

// DefaultBaseURL is used when no prediction service URL is configured
const DefaultBaseURL = "http://127.0.0.1:8000"

// Config is the complete newsguard configuration
type Config struct {
	API   APIConfig   `yaml:"api" mapstructure:"api"`
	User  UserConfig  `yaml:"user" mapstructure:"user"`
	Batch BatchConfig `yaml:"batch" mapstructure:"batch"`
	Log   LogConfig   `yaml:"log" mapstructure:"log"`
	Stub  StubConfig  `yaml:"stub" mapstructure:"stub"`
}

// APIConfig selects and configures the remote prediction service
type APIConfig struct {
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	UserAgent  string `yaml:"user_agent" mapstructure:"user_agent"`
	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// UserConfig identifies the account analyses and history are scoped to
type UserConfig struct {
	ID string `yaml:"id" mapstructure:"id"`
}

// BatchConfig controls the batch command
type BatchConfig struct {
	Workers           int     `yaml:"workers" mapstructure:"workers"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
	Retries           int     `yaml:"retries" mapstructure:"retries"` // 0 disables retries
}

// LogConfig controls structured logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // console or json
}

// StubConfig configures the local stub backend
type StubConfig struct {
	Addr     string        `yaml:"addr" mapstructure:"addr"`
	DBPath   string        `yaml:"db_path" mapstructure:"db_path"`
	StatsTTL time.Duration `yaml:"stats_ttl" mapstructure:"stats_ttl"`
	LLM      StubLLMConfig `yaml:"llm" mapstructure:"llm"`
}

// StubLLMConfig configures summary generation in the stub backend.
// Any OpenAI-compatible endpoint works (OpenAI, Groq, local gateways).
type StubLLMConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"` // "" disables summaries
	Model    string `yaml:"model" mapstructure:"model"`
	APIKey   string `yaml:"-" mapstructure:"api_key"`
	BaseURL  string `yaml:"base_url,omitempty" mapstructure:"base_url"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   DefaultBaseURL,
			UserAgent: "newsguard/0.1 (+https://github.com/ppiankov/newsguard)",
		},
		Batch: BatchConfig{
			Workers:           4,
			RequestsPerSecond: 2,
			Burst:             2,
			Retries:           0,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Stub: StubConfig{
			Addr:     "127.0.0.1:8000",
			DBPath:   "newsguard-stub.db",
			StatsTTL: 5 * time.Minute,
			LLM: StubLLMConfig{
				Model: "llama-3.3-70b-versatile",
			},
		},
	}
}
