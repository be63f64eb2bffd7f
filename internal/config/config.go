package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"dealer-inventory/internal/validation"
	"dealer-inventory/pkg/utils"
)

// HeaderProfile is one set of request headers presented to the upstream site.
type HeaderProfile struct {
	Name    string            `yaml:"name"`
	Headers map[string]string `yaml:"headers"`
}

// AdapterConfig configures one logging adapter.
type AdapterConfig struct {
	Name    string                 `yaml:"name"`
	Type    string                 `yaml:"type"`
	Enabled bool                   `yaml:"enabled"`
	Options map[string]interface{} `yaml:"options"`
}

// Config represents the application configuration
type Config struct {
	Server struct {
		Port           int           `yaml:"port" validate:"min=1,max=65535"`
		Host           string        `yaml:"host"`
		ReadTimeout    time.Duration `yaml:"read_timeout"`
		WriteTimeout   time.Duration `yaml:"write_timeout"`
		IdleTimeout    time.Duration `yaml:"idle_timeout"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
		AllowOrigins   []string      `yaml:"allow_origins"`
	} `yaml:"server"`

	Upstream struct {
		URLs     []string          `yaml:"urls" validate:"min=1,dive,url"`
		Origin   string            `yaml:"origin" validate:"omitempty,url"`
		Method   string            `yaml:"method" validate:"oneof=GET POST"`
		Form     map[string]string `yaml:"form"`
		Profiles []HeaderProfile   `yaml:"profiles"`
	} `yaml:"upstream"`

	Fetcher struct {
		Engine         string        `yaml:"engine" validate:"oneof=http browser firecrawl"`
		MaxAttempts    int           `yaml:"max_attempts" validate:"min=1,max=10"`
		BaseBackoff    time.Duration `yaml:"base_backoff"`
		MinJitter      time.Duration `yaml:"min_jitter"`
		MaxJitter      time.Duration `yaml:"max_jitter"`
		Timeout        time.Duration `yaml:"timeout"`
		RefreshTimeout time.Duration `yaml:"refresh_timeout"`
		MinBodyBytes   int           `yaml:"min_body_bytes"`
		RateLimit      int           `yaml:"rate_limit"` // requests per minute, 0 disables
		Browser        struct {
			Headless bool          `yaml:"headless"`
			Bin      string        `yaml:"bin"`
			Settle   time.Duration `yaml:"settle"`
		} `yaml:"browser"`
		Firecrawl struct {
			APIKey string `yaml:"api_key"`
			APIURL string `yaml:"api_url"`
		} `yaml:"firecrawl"`
		Captcha struct {
			APIKey    string        `yaml:"api_key"`
			AutoSolve bool          `yaml:"auto_solve"`
			Timeout   time.Duration `yaml:"timeout"`
		} `yaml:"captcha"`
	} `yaml:"fetcher"`

	Extractor struct {
		MinRecords int `yaml:"min_records" validate:"min=1"`
	} `yaml:"extractor"`

	Cache struct {
		TTL        time.Duration `yaml:"ttl"`
		MaxBackoff time.Duration `yaml:"max_backoff"`
	} `yaml:"cache"`

	Query struct {
		DefaultPerPage int `yaml:"default_per_page" validate:"min=1"`
		MaxPerPage     int `yaml:"max_per_page" validate:"min=1"`
	} `yaml:"query"`

	HTTPCache struct {
		MaxAge time.Duration `yaml:"max_age"`
	} `yaml:"http_cache"`

	Logging struct {
		Level    string          `yaml:"level"`
		Format   string          `yaml:"format"`
		Adapters []AdapterConfig `yaml:"adapters"`
	} `yaml:"logging"`

	Redis struct {
		Enabled bool          `yaml:"enabled"`
		URL     string        `yaml:"url"`
		Key     string        `yaml:"key"`
		TTL     time.Duration `yaml:"ttl"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"redis"`

	Postgres struct {
		Enabled bool          `yaml:"enabled"`
		DSN     string        `yaml:"dsn"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"postgres"`
}

var validate = validation.New()

var (
	bracedEnvVar = regexp.MustCompile(`\$\{([^}]+)\}`)
	bareEnvVar   = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
)

// expandEnvVars expands ${VAR} and $VAR references, leaving unknown variables untouched
func expandEnvVars(s string) string {
	s = bracedEnvVar.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})

	return bareEnvVar.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[1:]); val != "" {
			return val
		}
		return match
	})
}

// Default returns the configuration used when no file or environment overrides exist.
func Default() *Config {
	config := &Config{}

	config.Server.Port = 8080
	config.Server.Host = "0.0.0.0"
	config.Server.ReadTimeout = 30 * time.Second
	config.Server.WriteTimeout = 30 * time.Second
	config.Server.IdleTimeout = 60 * time.Second
	config.Server.RequestTimeout = 20 * time.Second
	config.Server.AllowOrigins = []string{"*"}

	config.Upstream.URLs = []string{"https://dealer.example.com/inventory"}
	config.Upstream.Method = "GET"

	config.Fetcher.Engine = "http"
	config.Fetcher.MaxAttempts = 3
	config.Fetcher.BaseBackoff = 1 * time.Second
	config.Fetcher.MinJitter = 200 * time.Millisecond
	config.Fetcher.MaxJitter = 800 * time.Millisecond
	config.Fetcher.Timeout = 15 * time.Second
	config.Fetcher.RefreshTimeout = 60 * time.Second
	config.Fetcher.MinBodyBytes = 1000
	config.Fetcher.RateLimit = 30
	config.Fetcher.Browser.Headless = true
	config.Fetcher.Browser.Settle = 2 * time.Second
	config.Fetcher.Firecrawl.APIURL = "https://api.firecrawl.dev"
	config.Fetcher.Captcha.AutoSolve = true
	config.Fetcher.Captcha.Timeout = 45 * time.Second

	config.Extractor.MinRecords = 3

	config.Cache.TTL = 30 * time.Minute
	config.Cache.MaxBackoff = 24 * time.Hour

	config.Query.DefaultPerPage = 20
	config.Query.MaxPerPage = 100

	config.HTTPCache.MaxAge = 5 * time.Minute

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	config.Redis.URL = "redis://localhost:6379"
	config.Redis.Key = "inventory:snapshot"
	config.Redis.TTL = 7 * 24 * time.Hour
	config.Redis.Timeout = 3 * time.Second

	config.Postgres.Timeout = 10 * time.Second

	return config
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	_ = godotenv.Load()

	config := Default()

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), config); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", configPath, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config %s: %w", configPath, err)
		}
	}

	config.loadFromEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks value ranges and cross-field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Query.DefaultPerPage > c.Query.MaxPerPage {
		return fmt.Errorf("invalid configuration: default_per_page %d exceeds max_per_page %d",
			c.Query.DefaultPerPage, c.Query.MaxPerPage)
	}
	if c.Fetcher.MaxJitter < c.Fetcher.MinJitter {
		return fmt.Errorf("invalid configuration: max_jitter must not be below min_jitter")
	}
	if c.Fetcher.Engine == "firecrawl" && c.Fetcher.Firecrawl.APIKey == "" {
		return fmt.Errorf("invalid configuration: firecrawl engine requires an api key")
	}
	if c.Fetcher.Engine == "firecrawl" && c.Upstream.Method == "POST" {
		return fmt.Errorf("invalid configuration: firecrawl engine only fetches GET upstreams")
	}
	if c.Postgres.Enabled && c.Postgres.DSN == "" {
		return fmt.Errorf("invalid configuration: postgres enabled without dsn")
	}
	return nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if host := os.Getenv("HOST"); host != "" {
		c.Server.Host = host
	}

	if urls := os.Getenv("UPSTREAM_URLS"); urls != "" {
		c.Upstream.URLs = utils.SplitList(urls)
	}

	if origin := os.Getenv("UPSTREAM_ORIGIN"); origin != "" {
		c.Upstream.Origin = origin
	}

	if engine := os.Getenv("FETCH_ENGINE"); engine != "" {
		c.Fetcher.Engine = engine
	}

	if attempts := os.Getenv("FETCH_MAX_ATTEMPTS"); attempts != "" {
		if n, err := strconv.Atoi(attempts); err == nil {
			c.Fetcher.MaxAttempts = n
		}
	}

	if apiKey := os.Getenv("FIRECRAWL_API_KEY"); apiKey != "" {
		c.Fetcher.Firecrawl.APIKey = apiKey
	}

	if apiURL := os.Getenv("FIRECRAWL_API_URL"); apiURL != "" {
		c.Fetcher.Firecrawl.APIURL = apiURL
	}

	if captchaKey := os.Getenv("TWOCAPTCHA_API_KEY"); captchaKey != "" {
		c.Fetcher.Captcha.APIKey = captchaKey
	}

	if ttl := os.Getenv("CACHE_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			c.Cache.TTL = d
		}
	}

	if maxBackoff := os.Getenv("CACHE_MAX_BACKOFF"); maxBackoff != "" {
		if d, err := time.ParseDuration(maxBackoff); err == nil {
			c.Cache.MaxBackoff = d
		}
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = logFormat
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.URL = redisURL
		c.Redis.Enabled = true
	}

	if redisEnabled := os.Getenv("REDIS_ENABLED"); redisEnabled != "" {
		c.Redis.Enabled = redisEnabled == "true" || redisEnabled == "1"
	}

	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		c.Postgres.DSN = dsn
		c.Postgres.Enabled = true
	}
}
