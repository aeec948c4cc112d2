package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "CHATPOINTS"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv       = "CHATPOINTS_APP_ENV"
	EnvPort         = "CHATPOINTS_APP_PORT"
	EnvDBDSN        = "CHATPOINTS_DB_DSN"
	EnvRedisURL     = "CHATPOINTS_REDIS_URL"
	EnvChatAPIKey   = "CHATPOINTS_CHAT_API_KEY"
	EnvChatBaseURL  = "CHATPOINTS_CHAT_BASE_URL"
	EnvChatTenantID = "CHATPOINTS_CHAT_COMPANY_ID"
	EnvChatChannels = "CHATPOINTS_CHAT_CHANNELS"
	EnvAdminAPIKey  = "CHATPOINTS_ADMIN_API_KEY"
)

type Config struct {
	App     AppConfig
	DB      DBConfig
	Redis   RedisConfig
	Chat    ChatConfig
	Points  PointsConfig
	Admin   AdminConfig
	Feature FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Chat.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"CHATPOINTS_APP_ENV" required:"true"`
	Port         string   `envconfig:"CHATPOINTS_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"CHATPOINTS_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"CHATPOINTS_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"CHATPOINTS_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"CHATPOINTS_DB_DSN" required:"true"`

	MaxOpenConns    int           `envconfig:"CHATPOINTS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CHATPOINTS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CHATPOINTS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CHATPOINTS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CHATPOINTS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CHATPOINTS_REDIS_ADDR"`
	Password     string        `envconfig:"CHATPOINTS_REDIS_PASSWORD"`
	DB           int           `envconfig:"CHATPOINTS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CHATPOINTS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CHATPOINTS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CHATPOINTS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CHATPOINTS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CHATPOINTS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// ChatConfig points the service at the upstream chat platform.
type ChatConfig struct {
	BaseURL     string        `envconfig:"CHATPOINTS_CHAT_BASE_URL" required:"true"`
	APIKey      string        `envconfig:"CHATPOINTS_CHAT_API_KEY" required:"true"`
	CompanyID   string        `envconfig:"CHATPOINTS_CHAT_COMPANY_ID" required:"true"`
	AgentUserID string        `envconfig:"CHATPOINTS_CHAT_AGENT_USER_ID"`
	Channels    []string      `envconfig:"CHATPOINTS_CHAT_CHANNELS"`
	HTTPTimeout time.Duration `envconfig:"CHATPOINTS_CHAT_HTTP_TIMEOUT" default:"15s"`
}

func (c ChatConfig) validate() error {
	for _, ch := range c.Channels {
		if strings.TrimSpace(ch) == "" {
			return fmt.Errorf("%s contains an empty channel id", EnvChatChannels)
		}
	}
	return nil
}

// ChannelDescriptors expands the allow-list into (tenant, channel) pairs.
func (c ChatConfig) ChannelDescriptors() []Channel {
	channels := make([]Channel, 0, len(c.Channels))
	for _, id := range c.Channels {
		channels = append(channels, Channel{
			TenantID:     c.CompanyID,
			ChannelID:    strings.TrimSpace(id),
			DisplayLabel: "Chat",
		})
	}
	return channels
}

// Channel identifies one polled chat stream.
type Channel struct {
	TenantID     string
	ChannelID    string
	DisplayLabel string
}

type PointsConfig struct {
	PerImage       int           `envconfig:"CHATPOINTS_POINTS_PER_IMAGE" default:"1"`
	PollInterval   time.Duration `envconfig:"CHATPOINTS_POLL_INTERVAL" default:"5s"`
	LeaderboardTop int           `envconfig:"CHATPOINTS_LEADERBOARD_TOP" default:"10"`
	ReactionEmoji  string        `envconfig:"CHATPOINTS_REACTION_EMOJI" default:"fire"`
}

type AdminConfig struct {
	APIKey string `envconfig:"CHATPOINTS_ADMIN_API_KEY" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CHATPOINTS_AUTO_MIGRATE" default:"false"`
}
