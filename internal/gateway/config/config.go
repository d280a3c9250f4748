package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/KingRain/Parsec/internal/logging"
)

type Config struct {
	Port   string
	Env    string
	AppURL string

	GitHub   GitHubConfig
	LLM      LLMConfig
	Registry RegistryConfig
	Enrich   EnrichConfig
	Log      logging.Config
}

type GitHubConfig struct {
	ClientID        string
	ClientSecret    string
	APIURL          string
	ManifestTimeout time.Duration
	MaxFiles        int
}

type LLMConfig struct {
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	RPS        float64
	Burst      int
}

type RegistryConfig struct {
	URL string
}

type EnrichConfig struct {
	Concurrency        int
	LookupTimeout      time.Duration
	LogoBudget         time.Duration
	DescriptionTimeout time.Duration
}

// Production reports whether cookies must be marked Secure.
func (c *Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

// RedirectURL is the OAuth callback registered with GitHub.
func (c *Config) RedirectURL() string {
	return strings.TrimRight(c.AppURL, "/") + "/api/auth/callback"
}

func Load() (*Config, error) {
	return load(flag.CommandLine, os.Args[1:])
}

// FromEnv loads the configuration without parsing command-line flags.
func FromEnv() (*Config, error) {
	return load(flag.NewFlagSet("env", flag.ContinueOnError), nil)
}

func load(fs *flag.FlagSet, args []string) (*Config, error) {
	_ = godotenv.Load()

	port := fs.String("port", "", "server port (overrides PORT)")
	if !fs.Parsed() {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Port:   normalizePort(v.GetString("port")),
		Env:    strings.TrimSpace(v.GetString("app_env")),
		AppURL: strings.TrimSpace(v.GetString("app_url")),
		GitHub: GitHubConfig{
			ClientID:        strings.TrimSpace(v.GetString("github_client_id")),
			ClientSecret:    strings.TrimSpace(v.GetString("github_client_secret")),
			APIURL:          strings.TrimSpace(v.GetString("github_api_url")),
			ManifestTimeout: v.GetDuration("manifest_timeout"),
			MaxFiles:        v.GetInt("github_max_files"),
		},
		LLM: LLMConfig{
			APIKey:     firstNonEmpty(v.GetString("gemini_api_key"), v.GetString("google_api_key")),
			Model:      strings.TrimSpace(v.GetString("gemini_model")),
			Timeout:    v.GetDuration("llm_timeout"),
			MaxRetries: v.GetInt("llm_max_retries"),
			RPS:        v.GetFloat64("llm_rps"),
			Burst:      v.GetInt("llm_burst"),
		},
		Registry: RegistryConfig{URL: strings.TrimSpace(v.GetString("npm_registry_url"))},
		Enrich: EnrichConfig{
			Concurrency:        v.GetInt("enrich_concurrency"),
			LookupTimeout:      v.GetDuration("enrich_lookup_timeout"),
			LogoBudget:         v.GetDuration("logo_budget"),
			DescriptionTimeout: v.GetDuration("description_timeout"),
		},
		Log: logging.Config{
			Level:  v.GetString("log_level"),
			Format: v.GetString("log_format"),
			Output: v.GetString("log_output"),
		},
	}
	if *port != "" {
		cfg.Port = normalizePort(*port)
	}
	if cfg.Env == "" {
		cfg.Env = "local"
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", ":8081")
	v.SetDefault("app_env", "local")
	v.SetDefault("app_url", "http://localhost:8081")
	v.SetDefault("github_api_url", "https://api.github.com")
	v.SetDefault("github_max_files", 500)
	v.SetDefault("manifest_timeout", "10s")
	v.SetDefault("gemini_model", "gemini-2.0-flash")
	v.SetDefault("llm_timeout", "60s")
	v.SetDefault("llm_max_retries", 2)
	v.SetDefault("llm_rps", 1.0)
	v.SetDefault("llm_burst", 2)
	v.SetDefault("npm_registry_url", "https://registry.npmjs.org")
	v.SetDefault("enrich_concurrency", 6)
	v.SetDefault("enrich_lookup_timeout", "4s")
	v.SetDefault("logo_budget", "2500ms")
	v.SetDefault("description_timeout", "15s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("log_output", "stdout")
}

func normalizePort(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || strings.HasPrefix(p, ":") {
		return p
	}
	return ":" + p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
