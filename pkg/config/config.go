package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig                 `mapstructure:"app"`
	Gateways   map[string]GatewayConfig  `mapstructure:"gateways"`
	Providers  map[string]ProviderConfig `mapstructure:"providers"`
	Planner    PlannerConfig             `mapstructure:"planner"`
	Registry   RegistryConfig            `mapstructure:"registry"`
	Data       DataConfig                `mapstructure:"data"`
	Queue      QueueConfig               `mapstructure:"queue"`
	Memory     MemoryConfig              `mapstructure:"memory"`
	HTTP       HTTPConfig                `mapstructure:"http"`
	Governance GovernanceConfig          `mapstructure:"governance"`
}

type AppConfig struct {
	Name   string `mapstructure:"name"`
	LogDir string `mapstructure:"log_dir"`
}

type GatewayConfig struct {
	Token   string `mapstructure:"token"`
	Enabled bool   `mapstructure:"enabled"`
}

type ProviderConfig struct {
	Type    string `mapstructure:"type"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
	Enabled bool   `mapstructure:"enabled"`
}

// PlannerConfig controls plan generation and the executing unit pool.
type PlannerConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	Timeout         time.Duration `mapstructure:"timeout"`
	UseExamplePlans bool          `mapstructure:"use_example_plans"`
	Orchestrator    string        `mapstructure:"orchestrator"`
	SharedStore     bool          `mapstructure:"shared_store"`
}

type RegistryConfig struct {
	Path string `mapstructure:"path"`
	// PromptsDir holds optional <identity>.md system prompt overrides.
	PromptsDir string `mapstructure:"prompts_dir"`
}

// DataConfig points the leaf capabilities at their source database and output folders.
type DataConfig struct {
	Database     string `mapstructure:"database"`
	DefaultQuery string `mapstructure:"default_query"`
	ChartsDir    string `mapstructure:"charts_dir"`
	ReportsDir   string `mapstructure:"reports_dir"`
	RenderPNG    bool   `mapstructure:"render_png"`
}

type QueueConfig struct {
	Backend   string `mapstructure:"backend"`
	RedisAddr string `mapstructure:"redis_addr"`
	RedisKey  string `mapstructure:"redis_key"`
	Buffer    int    `mapstructure:"buffer"`
}

type MemoryConfig struct {
	Path string `mapstructure:"path"`
}

type HTTPConfig struct {
	Address string `mapstructure:"address"`
}

type GovernanceConfig struct {
	DeniedMethods []string `mapstructure:"denied_methods"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "agentflow")
	v.SetDefault("app.log_dir", "logs")
	v.SetDefault("planner.max_attempts", 3)
	v.SetDefault("planner.timeout", 60*time.Second)
	v.SetDefault("planner.use_example_plans", false)
	v.SetDefault("planner.orchestrator", "orchestrator")
	v.SetDefault("planner.shared_store", false)
	v.SetDefault("registry.path", "")
	v.SetDefault("registry.prompts_dir", "")
	v.SetDefault("data.database", "./database/revenue.db")
	v.SetDefault("data.default_query", "SELECT * FROM monthly_revenue")
	v.SetDefault("data.charts_dir", "charts")
	v.SetDefault("data.reports_dir", "reports")
	v.SetDefault("data.render_png", false)
	v.SetDefault("queue.backend", "memory")
	v.SetDefault("queue.redis_addr", "localhost:6379")
	v.SetDefault("queue.redis_key", "agentflow:tasks")
	v.SetDefault("queue.buffer", 64)
	v.SetDefault("memory.path", "agentflow.db")
	v.SetDefault("http.address", ":8080")
}

// LoadConfig reads the config file at path, or searches the working directory
// and ./config for agentflow.{json,yaml} when path is empty. Environment
// variables prefixed with AGENTFLOW_ override file values.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("agentflow")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetEnvPrefix("AGENTFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Planner.MaxAttempts <= 0 {
		return fmt.Errorf("planner.max_attempts must be > 0")
	}
	if c.Planner.Orchestrator == "" {
		return fmt.Errorf("planner.orchestrator must be set")
	}
	switch c.Queue.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("queue.backend %q is not supported", c.Queue.Backend)
	}
	return nil
}

// GetDefaultProvider returns the first enabled provider
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	for name, p := range c.Providers {
		if p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}

// GetGatewayConfig returns the named gateway config if enabled
func (c *Config) GetGatewayConfig(name string) (GatewayConfig, bool) {
	gw, ok := c.Gateways[name]
	if ok && gw.Enabled && gw.Token != "" {
		return gw, true
	}
	return GatewayConfig{}, false
}
