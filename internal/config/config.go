package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken  string        `yaml:"discord_token"`
	DatabasePath  string        `yaml:"database_path"`
	LogLevel      string        `yaml:"log_level"`
	GuildID       string        `yaml:"guild_id"`
	Health        HealthConfig  `yaml:"health"`
	XP            XPConfig      `yaml:"xp"`
	Booster       BoosterConfig `yaml:"booster"`
	Moderation    ModConfig     `yaml:"moderation"`
	Notifications NotifyConfig  `yaml:"notifications"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type XPConfig struct {
	MessageMin        int `yaml:"message_min"`
	MessageMax        int `yaml:"message_max"`
	MessageMinLength  int `yaml:"message_min_length"`
	ReactionXP        int `yaml:"reaction_xp"`
	ReactionMsgCap    int `yaml:"reaction_msg_cap"`
	ReactionDailyCap  int `yaml:"reaction_daily_cap"`
	VoiceXPPerCycle   int `yaml:"voice_xp_per_cycle"`
	VoiceMinMembers   int `yaml:"voice_min_members"`
	FlushSeconds      int `yaml:"flush_seconds"`
	MessageDedupBound int `yaml:"message_dedup_bound"`
	PairDedupBound    int `yaml:"pair_dedup_bound"`
}

type BoosterConfig struct {
	DebounceSeconds    int    `yaml:"debounce_seconds"`
	SweepSpec          string `yaml:"sweep_spec"`
	SpotlightSpec      string `yaml:"spotlight_spec"`
	PropagationSeconds int    `yaml:"propagation_seconds"`
	VerifyRetries      int    `yaml:"verify_retries"`
}

type ModConfig struct {
	WarnLockHours int `yaml:"warn_lock_hours"`
}

type NotifyConfig struct {
	DMEnabled   bool        `yaml:"dm_enabled"`
	EmbedColors EmbedColors `yaml:"embed_colors"`
}

type EmbedColors struct {
	Action  int `yaml:"action"`
	Boost   int `yaml:"boost"`
	Warning int `yaml:"warning"`
	Error   int `yaml:"error"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath: "/data/hearthwarden.db",
		LogLevel:     "info",
		Health:       HealthConfig{Enabled: false, Addr: ":8080"},
		XP: XPConfig{
			MessageMin:        10,
			MessageMax:        15,
			MessageMinLength:  10,
			ReactionXP:        5,
			ReactionMsgCap:    50,
			ReactionDailyCap:  100,
			VoiceXPPerCycle:   2,
			VoiceMinMembers:   2,
			FlushSeconds:      10,
			MessageDedupBound: 10000,
			PairDedupBound:    50000,
		},
		Booster: BoosterConfig{
			DebounceSeconds:    60,
			SweepSpec:          "30 0 * * *",
			SpotlightSpec:      "0 12 * * 1",
			PropagationSeconds: 1,
			VerifyRetries:      2,
		},
		Moderation: ModConfig{WarnLockHours: 24},
		Notifications: NotifyConfig{
			DMEnabled: true,
			EmbedColors: EmbedColors{
				Action:  0x3B82F6,
				Boost:   0xF47FFF,
				Warning: 0xF59E0B,
				Error:   0xEF4444,
			},
		},
	}
}

func Load() (Config, error) {
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
	if cfg.XP.MessageMax < cfg.XP.MessageMin {
		cfg.XP.MessageMax = cfg.XP.MessageMin
	}
	if cfg.XP.FlushSeconds <= 0 {
		cfg.XP.FlushSeconds = 10
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.GuildID = envString("GUILD_ID", cfg.GuildID)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.XP.MessageMin = envInt("XP_MESSAGE_MIN", cfg.XP.MessageMin)
	cfg.XP.MessageMax = envInt("XP_MESSAGE_MAX", cfg.XP.MessageMax)
	cfg.XP.MessageMinLength = envInt("XP_MESSAGE_MIN_LENGTH", cfg.XP.MessageMinLength)
	cfg.XP.ReactionXP = envInt("XP_REACTION", cfg.XP.ReactionXP)
	cfg.XP.ReactionMsgCap = envInt("XP_REACTION_MSG_CAP", cfg.XP.ReactionMsgCap)
	cfg.XP.ReactionDailyCap = envInt("XP_REACTION_DAILY_CAP", cfg.XP.ReactionDailyCap)
	cfg.XP.VoiceXPPerCycle = envInt("XP_VOICE_PER_CYCLE", cfg.XP.VoiceXPPerCycle)
	cfg.XP.VoiceMinMembers = envInt("XP_VOICE_MIN_MEMBERS", cfg.XP.VoiceMinMembers)
	cfg.XP.FlushSeconds = envInt("XP_FLUSH_SECONDS", cfg.XP.FlushSeconds)
	cfg.XP.MessageDedupBound = envInt("XP_MESSAGE_DEDUP_BOUND", cfg.XP.MessageDedupBound)
	cfg.XP.PairDedupBound = envInt("XP_PAIR_DEDUP_BOUND", cfg.XP.PairDedupBound)
	cfg.Booster.DebounceSeconds = envInt("BOOST_DEBOUNCE_SECONDS", cfg.Booster.DebounceSeconds)
	cfg.Booster.SweepSpec = envString("BOOST_SWEEP_SPEC", cfg.Booster.SweepSpec)
	cfg.Booster.SpotlightSpec = envString("BOOST_SPOTLIGHT_SPEC", cfg.Booster.SpotlightSpec)
	cfg.Booster.PropagationSeconds = envInt("ROLE_PROPAGATION_SECONDS", cfg.Booster.PropagationSeconds)
	cfg.Booster.VerifyRetries = envInt("ROLE_VERIFY_RETRIES", cfg.Booster.VerifyRetries)
	cfg.Moderation.WarnLockHours = envInt("WARN_LOCK_HOURS", cfg.Moderation.WarnLockHours)
	cfg.Notifications.DMEnabled = envBool("DM_ENABLED", cfg.Notifications.DMEnabled)
	cfg.Notifications.EmbedColors.Action = envInt("EMBED_COLOR_ACTION", cfg.Notifications.EmbedColors.Action)
	cfg.Notifications.EmbedColors.Boost = envInt("EMBED_COLOR_BOOST", cfg.Notifications.EmbedColors.Boost)
	cfg.Notifications.EmbedColors.Warning = envInt("EMBED_COLOR_WARNING", cfg.Notifications.EmbedColors.Warning)
	cfg.Notifications.EmbedColors.Error = envInt("EMBED_COLOR_ERROR", cfg.Notifications.EmbedColors.Error)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
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
