// Package config provides configuration types and loading for keihibot.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the root configuration struct.
// Top-level groups: Paths, Model, Provider, Retry, Rules.
type Config struct {
	Paths    PathsConfig    `json:"paths"`
	Model    ModelConfig    `json:"model"`
	Provider ProviderConfig `json:"provider"`
	Retry    RetryConfig    `json:"retry"`
	Rules    RulesConfig    `json:"rules"`
}

// PathsConfig groups all filesystem path settings.
type PathsConfig struct {
	DataDir     string `json:"dataDir" envconfig:"DATA_DIR"`
	SessionsDir string `json:"sessionsDir" envconfig:"SESSIONS_DIR"`
	ReportsDir  string `json:"reportsDir" envconfig:"REPORTS_DIR"`
	LedgerPath  string `json:"ledgerPath" envconfig:"LEDGER_PATH"`
}

// ModelConfig groups model and agent-loop settings.
type ModelConfig struct {
	Name                  string  `json:"name" envconfig:"MODEL"`
	MaxTokens             int     `json:"maxTokens" envconfig:"MAX_TOKENS"`
	Temperature           float64 `json:"temperature" envconfig:"TEMPERATURE"`
	WorkerMaxIterations   int     `json:"workerMaxIterations" envconfig:"WORKER_MAX_ITERATIONS"`
	HistoryWindowMessages int     `json:"historyWindowMessages" envconfig:"HISTORY_WINDOW"`
}

// ProviderConfig contains settings for the model API endpoint.
type ProviderConfig struct {
	APIKey  string `json:"apiKey" envconfig:"API_KEY"`
	APIBase string `json:"apiBase,omitempty" envconfig:"API_BASE"`
}

// RetryConfig bounds the vendor-side retry for model calls.
type RetryConfig struct {
	MaxAttempts  int           `json:"maxAttempts" envconfig:"MAX_ATTEMPTS"`
	InitialDelay time.Duration `json:"initialDelay" envconfig:"INITIAL_DELAY"`
	MaxDelay     time.Duration `json:"maxDelay" envconfig:"MAX_DELAY"`
}

// RulesConfig carries the filing policy numbers handed to the workers as
// instruction data. They do not alter control flow outside the report tools.
type RulesConfig struct {
	AmountCeiling     float64 `json:"amountCeiling" envconfig:"AMOUNT_CEILING"`
	ApprovalThreshold float64 `json:"approvalThreshold" envconfig:"APPROVAL_THRESHOLD"`
	WindowDays        int     `json:"windowDays" envconfig:"WINDOW_DAYS"`
}

// Default returns a Config populated with defaults rooted at baseDir.
func Default(baseDir string) *Config {
	return &Config{
		Paths: PathsConfig{
			DataDir:     filepath.Join(baseDir, "data"),
			SessionsDir: filepath.Join(baseDir, "storage", "sessions"),
			ReportsDir:  filepath.Join(baseDir, "storage", "reports"),
			LedgerPath:  filepath.Join(baseDir, "storage", "ledger.db"),
		},
		Model: ModelConfig{
			Name:                  "gpt-4o",
			MaxTokens:             4096,
			Temperature:           0.7,
			WorkerMaxIterations:   7,
			HistoryWindowMessages: 30,
		},
		Provider: ProviderConfig{
			APIBase: "https://api.openai.com/v1",
		},
		Retry: RetryConfig{
			MaxAttempts:  6,
			InitialDelay: 4 * time.Second,
			MaxDelay:     240 * time.Second,
		},
		Rules: RulesConfig{
			AmountCeiling:     30000,
			ApprovalThreshold: 5000,
			WindowDays:        90,
		},
	}
}

// Load builds the configuration from defaults overlaid with KEIHIBOT_*
// environment variables.
func Load() (*Config, error) {
	baseDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg := Default(baseDir)

	if err := envconfig.Process("KEIHIBOT_PATHS", &cfg.Paths); err != nil {
		return nil, err
	}
	if err := envconfig.Process("KEIHIBOT_MODEL", &cfg.Model); err != nil {
		return nil, err
	}
	if err := envconfig.Process("KEIHIBOT_PROVIDER", &cfg.Provider); err != nil {
		return nil, err
	}
	if err := envconfig.Process("KEIHIBOT_RETRY", &cfg.Retry); err != nil {
		return nil, err
	}
	if err := envconfig.Process("KEIHIBOT_RULES", &cfg.Rules); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EnsureDirs creates the writable directories the process needs at startup.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{
		c.Paths.SessionsDir,
		c.Paths.ReportsDir,
		filepath.Dir(c.Paths.LedgerPath),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
