package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix              = "GROUPSCOPE"
	defaultHTTPAddress     = "0.0.0.0:8080"
	defaultDatabaseDriver  = "sqlite"
	defaultDatabaseDSN     = "groupscope.db"
	defaultLogLevel        = "info"
	defaultLogFormat       = "json"
	defaultCookieName      = "sb-access-token"
	defaultAirtableAPIURL  = "https://api.airtable.com"
	defaultAirtableTable   = "Groups"
	defaultAirtableView    = "Grid view"
	defaultSearchCap       = 1000
	defaultCacheTTLSeconds = 300
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress string
	LogLevel    string
	LogFormat   string

	DatabaseDriver string
	DatabaseDSN    string

	ResultsDriver       string
	ResultsDSN          string
	ResultsHiddenTables []string
	ResultsSearchCap    int

	AuthJWTSecret  string
	AuthJWKSURL    string
	AuthIssuer     string
	AuthAudience   string
	AuthCookieName string

	AirtableAPIKey      string
	AirtableBaseID      string
	AirtableTableName   string
	AirtableAPIURL      string
	AirtableDefaultView string

	RedisAddress  string
	RedisPassword string
	RedisDB       int

	GroupsCacheTTL time.Duration

	CORSAllowedOrigins []string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.format", defaultLogFormat)
	configViper.SetDefault("database.driver", defaultDatabaseDriver)
	configViper.SetDefault("database.dsn", defaultDatabaseDSN)
	configViper.SetDefault("results.driver", defaultDatabaseDriver)
	configViper.SetDefault("results.dsn", "")
	configViper.SetDefault("results.hidden_tables", "")
	configViper.SetDefault("results.search_cap", defaultSearchCap)
	configViper.SetDefault("auth.jwt_secret", "")
	configViper.SetDefault("auth.jwks_url", "")
	configViper.SetDefault("auth.issuer", "")
	configViper.SetDefault("auth.audience", "")
	configViper.SetDefault("auth.cookie_name", defaultCookieName)
	configViper.SetDefault("airtable.api_key", "")
	configViper.SetDefault("airtable.base_id", "")
	configViper.SetDefault("airtable.table_name", defaultAirtableTable)
	configViper.SetDefault("airtable.api_url", defaultAirtableAPIURL)
	configViper.SetDefault("airtable.default_view", defaultAirtableView)
	configViper.SetDefault("redis.address", "")
	configViper.SetDefault("redis.password", "")
	configViper.SetDefault("redis.db", 0)
	configViper.SetDefault("groups.cache_ttl_seconds", defaultCacheTTLSeconds)
	configViper.SetDefault("cors.allowed_origins", "*")
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:         configViper.GetString("http.address"),
		LogLevel:            configViper.GetString("log.level"),
		LogFormat:           configViper.GetString("log.format"),
		DatabaseDriver:      configViper.GetString("database.driver"),
		DatabaseDSN:         configViper.GetString("database.dsn"),
		ResultsDriver:       configViper.GetString("results.driver"),
		ResultsDSN:          configViper.GetString("results.dsn"),
		ResultsHiddenTables: splitList(configViper.GetString("results.hidden_tables")),
		ResultsSearchCap:    configViper.GetInt("results.search_cap"),
		AuthJWTSecret:       configViper.GetString("auth.jwt_secret"),
		AuthJWKSURL:         configViper.GetString("auth.jwks_url"),
		AuthIssuer:          configViper.GetString("auth.issuer"),
		AuthAudience:        configViper.GetString("auth.audience"),
		AuthCookieName:      configViper.GetString("auth.cookie_name"),
		AirtableAPIKey:      configViper.GetString("airtable.api_key"),
		AirtableBaseID:      configViper.GetString("airtable.base_id"),
		AirtableTableName:   configViper.GetString("airtable.table_name"),
		AirtableAPIURL:      configViper.GetString("airtable.api_url"),
		AirtableDefaultView: configViper.GetString("airtable.default_view"),
		RedisAddress:        strings.TrimSpace(configViper.GetString("redis.address")),
		RedisPassword:       configViper.GetString("redis.password"),
		RedisDB:             configViper.GetInt("redis.db"),
		GroupsCacheTTL:      time.Duration(configViper.GetInt("groups.cache_ttl_seconds")) * time.Second,
		CORSAllowedOrigins:  splitList(configViper.GetString("cors.allowed_origins")),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	var problems []error
	if strings.TrimSpace(c.DatabaseDSN) == "" {
		problems = append(problems, fmt.Errorf("database.dsn is required"))
	}
	if strings.TrimSpace(c.ResultsDSN) == "" {
		problems = append(problems, fmt.Errorf("results.dsn is required"))
	}
	if strings.TrimSpace(c.AuthJWTSecret) == "" && strings.TrimSpace(c.AuthJWKSURL) == "" {
		problems = append(problems, fmt.Errorf("auth.jwt_secret or auth.jwks_url is required"))
	}
	if strings.TrimSpace(c.AuthCookieName) == "" {
		problems = append(problems, fmt.Errorf("auth.cookie_name is required"))
	}
	if strings.TrimSpace(c.AirtableAPIKey) == "" {
		problems = append(problems, fmt.Errorf("airtable.api_key is required"))
	}
	if strings.TrimSpace(c.AirtableBaseID) == "" {
		problems = append(problems, fmt.Errorf("airtable.base_id is required"))
	}
	if strings.TrimSpace(c.AirtableTableName) == "" {
		problems = append(problems, fmt.Errorf("airtable.table_name is required"))
	}
	if c.ResultsSearchCap <= 0 {
		problems = append(problems, fmt.Errorf("results.search_cap must be positive"))
	}
	if c.RedisDB < 0 {
		problems = append(problems, fmt.Errorf("redis.db must not be negative"))
	}
	return errors.Join(problems...)
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
