package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken  string           `yaml:"discord_token"`
	DatabaseURL   string           `yaml:"database_url"`
	ModLogChannel string           `yaml:"mod_log_channel"`
	Log           LogConfig        `yaml:"log"`
	Health        HealthConfig     `yaml:"health"`
	Scheduler     SchedulerConfig  `yaml:"scheduler"`
	Moderation    ModerationConfig `yaml:"moderation"`
	Limits        LimitConfig      `yaml:"limits"`
	Notifications NotifyConfig     `yaml:"notifications"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type HealthConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	MaxConns int    `yaml:"max_conns"`
}

type SchedulerConfig struct {
	Mode          string        `yaml:"mode"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	MaxAttempts   int           `yaml:"max_attempts"`
	BackoffBase   time.Duration `yaml:"backoff_base"`
	BackoffMax    time.Duration `yaml:"backoff_max"`
}

type ModerationConfig struct {
	MutedRoleName    string `yaml:"muted_role_name"`
	DefaultReason    string `yaml:"default_reason"`
	BanDeleteDays    int    `yaml:"ban_delete_days"`
	PurgeMax         int    `yaml:"purge_max"`
	WarnThreshold    int    `yaml:"warn_threshold"`
	WarnMuteDuration string `yaml:"warn_mute_duration"`
	WarnForgiveDays  int    `yaml:"warn_forgive_days"`
	CaseRetention    int    `yaml:"case_retention_days"`
}

type LimitConfig struct {
	ActionsPerWindow int `yaml:"actions_per_window"`
	WindowSeconds    int `yaml:"window_seconds"`
}

type NotifyConfig struct {
	DMEnabled       bool        `yaml:"dm_enabled"`
	AuditToChannel  bool        `yaml:"audit_to_channel"`
	EmbedColors     EmbedColors `yaml:"embed_colors"`
	EmbedFooterText string      `yaml:"embed_footer_text"`
}

type EmbedColors struct {
	Red    int `yaml:"red"`
	Orange int `yaml:"orange"`
	Green  int `yaml:"green"`
	Blue   int `yaml:"blue"`
	Purple int `yaml:"purple"`
}

func DefaultConfig() Config {
	return Config{
		DatabaseURL: "/data/sentinel.db",
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 14,
			Compress:   true,
		},
		Health: HealthConfig{Enabled: false, Addr: ":8080", MaxConns: 16},
		Scheduler: SchedulerConfig{
			Mode:          "timer",
			SweepInterval: 5 * time.Second,
			MaxAttempts:   3,
			BackoffBase:   time.Second,
			BackoffMax:    30 * time.Second,
		},
		Moderation: ModerationConfig{
			MutedRoleName:    "🔇 Muted",
			DefaultReason:    "No reason provided",
			BanDeleteDays:    1,
			PurgeMax:         100,
			WarnThreshold:    3,
			WarnMuteDuration: "1h",
			WarnForgiveDays:  30,
			CaseRetention:    180,
		},
		Limits: LimitConfig{ActionsPerWindow: 10, WindowSeconds: 60},
		Notifications: NotifyConfig{
			DMEnabled:       true,
			AuditToChannel:  true,
			EmbedFooterText: "Sentinel Moderation",
			EmbedColors: EmbedColors{
				Red:    0xFF0000,
				Orange: 0xFFA500,
				Green:  0x00FF00,
				Blue:   0x0000FF,
				Purple: 0x800080,
			},
		},
	}
}

func Load() (Config, error) {
	_ = godotenv.Load()
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}

	cfg.Scheduler.Mode = normalizeMode(cfg.Scheduler.Mode)
	normalizeModeration(&cfg.Moderation)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DatabaseURL = envString("DATABASE_URL", cfg.DatabaseURL)
	cfg.ModLogChannel = envString("MOD_LOG_CHANNEL", cfg.ModLogChannel)
	cfg.Log.Level = envString("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = envString("LOG_FILE", cfg.Log.File)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.Health.MaxConns = envInt("HEALTH_MAX_CONNS", cfg.Health.MaxConns)
	cfg.Scheduler.Mode = envString("SCHEDULER_MODE", cfg.Scheduler.Mode)
	cfg.Scheduler.SweepInterval = envDuration("SCHEDULER_SWEEP_INTERVAL", cfg.Scheduler.SweepInterval)
	cfg.Scheduler.MaxAttempts = envInt("SCHEDULER_MAX_ATTEMPTS", cfg.Scheduler.MaxAttempts)
	cfg.Scheduler.BackoffBase = envDuration("SCHEDULER_BACKOFF_BASE", cfg.Scheduler.BackoffBase)
	cfg.Scheduler.BackoffMax = envDuration("SCHEDULER_BACKOFF_MAX", cfg.Scheduler.BackoffMax)
	cfg.Moderation.MutedRoleName = envString("MUTED_ROLE_NAME", cfg.Moderation.MutedRoleName)
	cfg.Moderation.WarnThreshold = envInt("WARN_THRESHOLD", cfg.Moderation.WarnThreshold)
	cfg.Moderation.WarnMuteDuration = envString("WARN_MUTE_DURATION", cfg.Moderation.WarnMuteDuration)
	cfg.Limits.ActionsPerWindow = envInt("LIMIT_ACTIONS_PER_WINDOW", cfg.Limits.ActionsPerWindow)
	cfg.Limits.WindowSeconds = envInt("LIMIT_WINDOW_SECONDS", cfg.Limits.WindowSeconds)
	cfg.Notifications.DMEnabled = envBool("DM_ENABLED", cfg.Notifications.DMEnabled)
	cfg.Notifications.AuditToChannel = envBool("AUDIT_TO_CHANNEL", cfg.Notifications.AuditToChannel)
}

// BuildLogger returns a JSON logger on stdout, tee'd into a rotating file
// when cfg.File is set.
func BuildLogger(cfg LogConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Encoding = "json"
	zcfg.EncoderConfig.TimeKey = "time"
	zcfg.EncoderConfig.MessageKey = "message"
	zcfg.EncoderConfig.LevelKey = "level"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.Level = zap.NewAtomicLevelAt(parseLevel(strings.ToLower(cfg.Level)))

	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	if cfg.File == "" {
		return logger, nil
	}

	rotating := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(zcfg.EncoderConfig), zapcore.AddSync(rotating), zcfg.Level)
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	})), nil
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func normalizeMode(value string) string {
	switch strings.ToLower(value) {
	case "sweep":
		return "sweep"
	default:
		return "timer"
	}
}

func normalizeModeration(cfg *ModerationConfig) {
	if cfg.BanDeleteDays < 0 {
		cfg.BanDeleteDays = 0
	}
	if cfg.BanDeleteDays > 7 {
		cfg.BanDeleteDays = 7
	}
	if cfg.PurgeMax <= 0 || cfg.PurgeMax > 100 {
		cfg.PurgeMax = 100
	}
	if cfg.MutedRoleName == "" {
		cfg.MutedRoleName = "🔇 Muted"
	}
	if cfg.DefaultReason == "" {
		cfg.DefaultReason = "No reason provided"
	}
}
