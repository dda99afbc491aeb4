package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string `mapstructure:"mode"`
	Port       int    `mapstructure:"port"`
	StaticPath string `mapstructure:"static_path"`
	Secret     string `mapstructure:"secret"`
	BaseURL    string `mapstructure:"base_url"`
	LogLevel   string `mapstructure:"log_level"`

	Rooms       RoomsConfig       `mapstructure:"rooms"`
	Sweeper     SweeperConfig     `mapstructure:"sweeper"`
	Broadcast   BroadcastConfig   `mapstructure:"broadcast"`
	Translation TranslationConfig `mapstructure:"translation"`
}

type RoomsConfig struct {
	MaxUsers        int `mapstructure:"max_users"`
	MaxCodeAttempts int `mapstructure:"max_code_attempts"`
}

type SweeperConfig struct {
	Interval         time.Duration `mapstructure:"interval"`
	HeartbeatTimeout time.Duration `mapstructure:"heartbeat_timeout"`
	FullSweepEvery   time.Duration `mapstructure:"full_sweep_every"`
	UserIdleTimeout  time.Duration `mapstructure:"user_idle_timeout"`
}

type BroadcastConfig struct {
	RateLimit    int           `mapstructure:"rate_limit"`
	RateInterval time.Duration `mapstructure:"rate_interval"`
}

type ProviderConfig struct {
	Quota   int    `mapstructure:"quota"`
	BaseURL string `mapstructure:"base_url"`
	Email   string `mapstructure:"email"`
}

type TranslationConfig struct {
	CacheSize         int            `mapstructure:"cache_size"`
	CountersFile      string         `mapstructure:"counters_file"`
	PreferredLanguage string         `mapstructure:"preferred_language"`
	HTTPTimeout       time.Duration  `mapstructure:"http_timeout"`
	Google            ProviderConfig `mapstructure:"google"`
	MyMemory          ProviderConfig `mapstructure:"mymemory"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("secret", "parley-dev-secret")
	v.SetDefault("base_url", "http://localhost:8080")
	v.SetDefault("log_level", "info")

	v.SetDefault("rooms.max_users", 10)
	v.SetDefault("rooms.max_code_attempts", 64)

	v.SetDefault("sweeper.interval", "5s")
	v.SetDefault("sweeper.heartbeat_timeout", "30s")
	v.SetDefault("sweeper.full_sweep_every", "1m")
	v.SetDefault("sweeper.user_idle_timeout", "30m")

	v.SetDefault("broadcast.rate_limit", 5)
	v.SetDefault("broadcast.rate_interval", "3s")

	v.SetDefault("translation.cache_size", 100)
	v.SetDefault("translation.counters_file", "./data/translation_counters.json")
	v.SetDefault("translation.preferred_language", "en")
	v.SetDefault("translation.http_timeout", "10s")
	v.SetDefault("translation.google.quota", 500000)
	v.SetDefault("translation.google.base_url", "https://translate.googleapis.com")
	v.SetDefault("translation.mymemory.quota", 500000)
	v.SetDefault("translation.mymemory.base_url", "https://api.mymemory.translated.net")
	v.SetDefault("translation.mymemory.email", "")
}

// Load reads config/config.<CONFIG_ENV>.yaml over the defaults.
// PARLEY_* variables override both, e.g. PARLEY_TRANSLATION_GOOGLE_QUOTA.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix("PARLEY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("config loaded")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).
		Str("static", cfg.StaticPath).Msg("config ready")
	return &cfg, nil
}
