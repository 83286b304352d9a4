// Package config loads gateway configuration from environment variables,
// following the env-var-with-defaults style used across the component:
// typed getters over a prefix-less key, a fluent Validator, and a single
// aggregate Config assembled once at startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvConfig provides typed access to environment variables under an
// optional prefix.
type EnvConfig struct {
	prefix string
}

func NewEnvConfig(prefix string) *EnvConfig {
	return &EnvConfig{prefix: prefix}
}

func (ec *EnvConfig) buildKey(key string) string {
	if ec.prefix == "" {
		return key
	}
	return ec.prefix + "_" + key
}

func (ec *EnvConfig) GetString(key, defaultValue string) string {
	if v := os.Getenv(ec.buildKey(key)); v != "" {
		return v
	}
	return defaultValue
}

func (ec *EnvConfig) GetInt(key string, defaultValue int) int {
	if v := os.Getenv(ec.buildKey(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func (ec *EnvConfig) GetBool(key string, defaultValue bool) bool {
	if v := os.Getenv(ec.buildKey(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func (ec *EnvConfig) GetDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(ec.buildKey(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

// Validator accumulates configuration validation errors.
type Validator struct {
	errors []string
}

func NewValidator() *Validator { return &Validator{} }

func (v *Validator) RequireString(field, value string) {
	if value == "" {
		v.errors = append(v.errors, fmt.Sprintf("%s is required", field))
	}
}

func (v *Validator) RequirePositiveInt(field string, value int) {
	if value <= 0 {
		v.errors = append(v.errors, fmt.Sprintf("%s must be positive", field))
	}
}

func (v *Validator) IsValid() bool { return len(v.errors) == 0 }

func (v *Validator) Errors() []string { return v.errors }

func (v *Validator) Validate() error {
	if !v.IsValid() {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(v.errors, "; "))
	}
	return nil
}

// Task type constants, closed set per the task state machine.
const (
	TypeInterpretation = "standard_interpretation"
	TypeRecommendation = "standard_recommendation"
	TypeComparison     = "standard_comparison"
	TypeInternational  = "standard_international"
	TypeCompliance     = "standard_compliance"
	TypeReview         = "standard_review"
)

var AllTaskTypes = []string{
	TypeInterpretation, TypeRecommendation, TypeComparison,
	TypeInternational, TypeCompliance, TypeReview,
}

// UpstreamCredential pairs a URL with its bearer credential.
type UpstreamCredential struct {
	URL string
	Key string
}

// ScenarioConfig holds the per-api-type credential pairs for one named
// upstream application.
type ScenarioConfig struct {
	Key           string
	Name          string
	Chat          UpstreamCredential
	Conversations UpstreamCredential
	Messages      UpstreamCredential
}

// ConversationOps reuses the Conversations credential pair: the source
// service points conversation rename/delete at the same env vars as the
// conversations listing API.
func (s ScenarioConfig) ConversationOps() UpstreamCredential { return s.Conversations }

// StorageConfig resolves on-disk roots, created on first use.
type StorageConfig struct {
	DataRootDir string
	UploadDir   string
	ExportDir   string
	TempDir     string
}

func (s StorageConfig) EnsureDirs() error {
	for _, d := range []string{s.UploadDir, s.ExportDir, s.TempDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("create dir %s: %w", d, err)
		}
	}
	return nil
}

// LogConfig governs the global logger sink.
type LogConfig struct {
	Level     string
	JSON      bool
	ToStdout  bool
	ToFile    bool
	FilePath  string
	MaxBytes  int64
	BackupCnt int
}

// AuthConfig governs token issuance and secrets.
type AuthConfig struct {
	SecretKey          string
	JWTSecretKey       string
	AccessTokenExpires time.Duration
}

// Config is the fully loaded, validated application configuration.
type Config struct {
	Port int
	Host string

	DatabaseURL string

	Auth    AuthConfig
	Storage StorageConfig
	Log     LogConfig

	DifyFileUploadURL string
	StandardTypes     map[string]UpstreamCredential
	Scenarios         map[string]ScenarioConfig

	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	RedisAddr string
}

// scenarioDefs mirrors the two required scenarios (multilingual_qa,
// standard_query) from the proxy's scenario registry. envPrefix is not
// simply key uppercased: multilingual_qa's env vars are DIFY_MULTILINGUAL_*,
// dropping the _QA suffix, matching the upstream app's own env naming.
var scenarioDefs = []struct {
	key, envPrefix, name string
}{
	{"multilingual_qa", "MULTILINGUAL", "多语言问答"},
	{"standard_query", "STANDARD_QUERY", "标准查询"},
}

// Load reads every configuration value named in the gateway's external
// interface from the environment and validates required fields.
func Load() (*Config, error) {
	env := NewEnvConfig("")

	cfg := &Config{
		Port: env.GetInt("PORT", 8080),
		Host: env.GetString("HOST", "0.0.0.0"),

		DatabaseURL: env.GetString("DATABASE_URL", ""),

		Auth: AuthConfig{
			SecretKey:          env.GetString("SECRET_KEY", ""),
			JWTSecretKey:       env.GetString("JWT_SECRET_KEY", ""),
			AccessTokenExpires: time.Duration(env.GetInt("JWT_ACCESS_TOKEN_EXPIRES", 43200)) * time.Second,
		},

		Storage: StorageConfig{
			DataRootDir: env.GetString("DATA_ROOT_DIR", "./data"),
			UploadDir:   env.GetString("UPLOAD_FILES_DIR", "./data/uploads"),
			ExportDir:   env.GetString("EXPORT_FILES_DIR", "./data/exports"),
			TempDir:     env.GetString("TEMP_FILES_DIR", "./data/tmp"),
		},

		Log: LogConfig{
			Level:     env.GetString("LOG_LEVEL", "info"),
			JSON:      env.GetBool("LOG_JSON", false),
			ToStdout:  env.GetBool("LOG_TO_STDOUT", true),
			ToFile:    env.GetBool("LOG_TO_FILE", false),
			FilePath:  env.GetString("LOG_FILE_PATH", "./data/gateway.log"),
			MaxBytes:  int64(env.GetInt("LOG_MAX_BYTES", 10*1024*1024)),
			BackupCnt: env.GetInt("LOG_BACKUP_COUNT", 5),
		},

		DifyFileUploadURL: env.GetString("DIFY_FILE_UPLOAD_URL", ""),
		StandardTypes:     map[string]UpstreamCredential{},
		Scenarios:         map[string]ScenarioConfig{},

		Neo4jURI:      env.GetString("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:     env.GetString("NEO4J_USER", "neo4j"),
		Neo4jPassword: env.GetString("NEO4J_PASSWORD", ""),

		RedisAddr: env.GetString("REDIS_ADDR", ""),
	}

	for _, t := range AllTaskTypes {
		upperType := strings.ToUpper(t)
		cfg.StandardTypes[t] = UpstreamCredential{
			URL: env.GetString(fmt.Sprintf("DIFY_%s_URL", upperType), ""),
			Key: env.GetString(fmt.Sprintf("DIFY_%s_KEY", upperType), ""),
		}
	}

	for _, s := range scenarioDefs {
		cfg.Scenarios[s.key] = ScenarioConfig{
			Key:  s.key,
			Name: s.name,
			Chat: UpstreamCredential{
				URL: env.GetString(fmt.Sprintf("DIFY_%s_CHAT_URL", s.envPrefix), ""),
				Key: env.GetString(fmt.Sprintf("DIFY_%s_CHAT_KEY", s.envPrefix), ""),
			},
			Conversations: UpstreamCredential{
				URL: env.GetString(fmt.Sprintf("DIFY_%s_CONVERSATIONS_URL", s.envPrefix), ""),
				Key: env.GetString(fmt.Sprintf("DIFY_%s_CONVERSATIONS_KEY", s.envPrefix), ""),
			},
			Messages: UpstreamCredential{
				URL: env.GetString(fmt.Sprintf("DIFY_%s_MESSAGES_URL", s.envPrefix), ""),
				Key: env.GetString(fmt.Sprintf("DIFY_%s_MESSAGES_KEY", s.envPrefix), ""),
			},
		}
	}

	v := NewValidator()
	v.RequirePositiveInt("Port", cfg.Port)
	v.RequireString("Auth.JWTSecretKey", cfg.Auth.JWTSecretKey)
	if err := v.Validate(); err != nil {
		return nil, err
	}

	if err := cfg.Storage.EnsureDirs(); err != nil {
		return nil, err
	}

	return cfg, nil
}
