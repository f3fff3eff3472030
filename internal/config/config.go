package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	RequestsPerSec int      `yaml:"requests_per_sec"`
}

type DatabaseConfig struct {
	DSN          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Leeway time.Duration `yaml:"leeway"`
}

type ChatConfig struct {
	// package slugs that bundle chat
	BundledTiers        []string `yaml:"bundled_tiers"`
	FeatureSlug         string   `yaml:"feature_slug"`
	DefaultChatPageSize int      `yaml:"default_chat_page_size"`
	DefaultMsgPageSize  int      `yaml:"default_message_page_size"`
	MaxPageSize         int      `yaml:"max_page_size"`
}

type RealtimeConfig struct {
	SendBuffer      int           `yaml:"send_buffer"`
	WriteWait       time.Duration `yaml:"write_wait"`
	PongWait        time.Duration `yaml:"pong_wait"`
	MaxMessageSize  int64         `yaml:"max_message_size"`
	EventsPerSecond float64       `yaml:"events_per_second"`
	EventBurst      int           `yaml:"event_burst"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

type EmailConfig struct {
	Enabled      bool   `yaml:"enabled"`
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`
	FromEmail    string `yaml:"from_email"`
	AppURL       string `yaml:"app_url"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
}

type NotificationConfig struct {
	PushWorkers int `yaml:"push_workers"`
	PushBuffer  int `yaml:"push_buffer"`
}

type FilesConfig struct {
	RootDir  string `yaml:"root_dir"`
	FontPath string `yaml:"font_path"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	JWT          JWTConfig          `yaml:"jwt"`
	Chat         ChatConfig         `yaml:"chat"`
	Realtime     RealtimeConfig     `yaml:"realtime"`
	Redis        RedisConfig        `yaml:"redis"`
	Email        EmailConfig        `yaml:"email"`
	Telegram     TelegramConfig     `yaml:"telegram"`
	Notification NotificationConfig `yaml:"notification"`
	Files        FilesConfig        `yaml:"files"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// LoadConfig reads the YAML file at CONFIG_PATH (default config/config.yaml),
// applies env overrides and defaults.
func LoadConfig() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	path := getEnv("CONFIG_PATH", "config/config.yaml")
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load decodes a YAML file without env overrides, defaults or validation.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.Database.DSN = getEnv("DATABASE_URL", c.Database.DSN)
	c.JWT.Secret = getEnv("JWT_SECRET", c.JWT.Secret)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Email.SMTPPassword = getEnv("SMTP_PASSWORD", c.Email.SMTPPassword)
	c.Telegram.BotToken = getEnv("TELEGRAM_BOT_TOKEN", c.Telegram.BotToken)
	c.Server.Port = getEnvAsInt("PORT", c.Server.Port)
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:5173"}
	}
	if c.Server.RequestsPerSec == 0 {
		c.Server.RequestsPerSec = 50
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.JWT.Leeway == 0 {
		c.JWT.Leeway = 2 * time.Minute
	}
	if len(c.Chat.BundledTiers) == 0 {
		c.Chat.BundledTiers = []string{"platinum", "diamond"}
	}
	if c.Chat.FeatureSlug == "" {
		c.Chat.FeatureSlug = "chat-system"
	}
	if c.Chat.DefaultChatPageSize == 0 {
		c.Chat.DefaultChatPageSize = 20
	}
	if c.Chat.DefaultMsgPageSize == 0 {
		c.Chat.DefaultMsgPageSize = 50
	}
	if c.Chat.MaxPageSize == 0 {
		c.Chat.MaxPageSize = 100
	}
	if c.Realtime.SendBuffer == 0 {
		c.Realtime.SendBuffer = 256
	}
	if c.Realtime.WriteWait == 0 {
		c.Realtime.WriteWait = 10 * time.Second
	}
	if c.Realtime.PongWait == 0 {
		c.Realtime.PongWait = 60 * time.Second
	}
	if c.Realtime.MaxMessageSize == 0 {
		c.Realtime.MaxMessageSize = 64 * 1024
	}
	if c.Realtime.EventsPerSecond == 0 {
		c.Realtime.EventsPerSecond = 20
	}
	if c.Realtime.EventBurst == 0 {
		c.Realtime.EventBurst = 40
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "orgchat:rooms"
	}
	if c.Notification.PushWorkers == 0 {
		c.Notification.PushWorkers = 4
	}
	if c.Notification.PushBuffer == 0 {
		c.Notification.PushBuffer = 1000
	}
	if c.Files.RootDir == "" {
		c.Files.RootDir = "./files"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return errors.New("database.url is required")
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return errors.New("redis.addr is required when redis is enabled")
	}
	return nil
}

// PingPeriod is how often pings are sent; must be shorter than PongWait.
func (r RealtimeConfig) PingPeriod() time.Duration {
	return (r.PongWait * 9) / 10
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
