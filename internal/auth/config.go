package auth

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	AccessSecret  string        `mapstructure:"AccessSecret"`
	RefreshSecret string        `mapstructure:"RefreshSecret"`
	AccessTTL     time.Duration `mapstructure:"AccessTTL"`
	RefreshTTL    time.Duration `mapstructure:"RefreshTTL"`
}

func NewConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.BindEnv("AccessSecret", "JWT_ACCESS_SECRET")
	v.BindEnv("RefreshSecret", "JWT_REFRESH_SECRET")
	v.BindEnv("AccessTTL", "JWT_ACCESS_TTL")
	v.BindEnv("RefreshTTL", "JWT_REFRESH_TTL")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Warning: using only environment variables: %v\n", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal config: %w", err)
	}

	if cfg.AccessSecret == "" {
		return nil, fmt.Errorf("AccessSecret is required")
	}
	if cfg.RefreshSecret == "" {
		cfg.RefreshSecret = cfg.AccessSecret
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}

	return &cfg, nil
}
