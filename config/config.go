package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/ThinkInAIXYZ/ba-agent/client"
	"github.com/ThinkInAIXYZ/ba-agent/enforcement"
	"github.com/ThinkInAIXYZ/ba-agent/protocol"
)

// Agency holds every option of the moderation agent.
type Agency struct {
	APIKey   string `yaml:"api_key" env:"API_KEY"`
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`

	// Enforcement. Cheating bans are always enforced.
	VPNKicks      bool     `yaml:"vpn_kicks" env:"VPN_KICKS"`
	ToxicityBans  bool     `yaml:"toxicity_bans" env:"TOXICITY_BANS"`
	CrashingBans  bool     `yaml:"crashing_bans" env:"CRASHING_BANS"`
	GlitchingBans bool     `yaml:"glitching_bans" env:"GLITCHING_BANS"`
	StolenBans    bool     `yaml:"stolen_account_bans" env:"STOLEN_ACCOUNT_BANS"`
	Whitelist     []string `yaml:"whitelist" env:"WHITELIST" envSeparator:","`

	// Logging
	AnnounceKicks bool   `yaml:"announce_kicks" env:"ANNOUNCE_KICKS"`
	KickLog       bool   `yaml:"kick_log" env:"KICK_LOG"`
	KickLogPath   string `yaml:"kick_log_path" env:"KICK_LOG_PATH"`
	Debug         bool   `yaml:"debug" env:"DEBUG"`

	// Tuning
	ReconnectCooldown time.Duration `yaml:"reconnect_cooldown" env:"RECONNECT_COOLDOWN"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval" env:"RECONCILE_INTERVAL"`
	KickInterval      time.Duration `yaml:"kick_interval" env:"KICK_INTERVAL"`
	MaxKickAttempts   int           `yaml:"max_kick_attempts" env:"MAX_KICK_ATTEMPTS"`
	BanSeconds        int           `yaml:"ban_seconds" env:"BAN_SECONDS"`
	BufferSize        int           `yaml:"buffer_size" env:"BUFFER_SIZE"`
}

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "BA_"

// Default returns the configuration the plugin ships with.
func Default() Agency {
	return Agency{
		Endpoint:          protocol.DefaultEndpointTemplate,
		VPNKicks:          true,
		ToxicityBans:      true,
		CrashingBans:      true,
		GlitchingBans:     true,
		StolenBans:        true,
		AnnounceKicks:     true,
		KickLogPath:       "Logs/BAKicks.log",
		ReconnectCooldown: client.DefaultReconnectCooldown,
		ReconcileInterval: client.DefaultReconnectCooldown,
		KickInterval:      enforcement.DefaultKickInterval,
		MaxKickAttempts:   enforcement.DefaultMaxAttempts,
		BanSeconds:        enforcement.DefaultBanSeconds,
		BufferSize:        client.DefaultBufferSize,
	}
}

// Load reads path over the defaults, then applies BA_* environment variables.
// An empty path skips the file.
func Load(path string) (Agency, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Agency{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Agency{}, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Agency{}, fmt.Errorf("parsing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Agency{}, err
	}
	return cfg, nil
}

// Validate checks the tuning values. A missing API key is not an error here,
// the agent reports it and stays disconnected.
func (c Agency) Validate() error {
	var errs []error
	if c.Endpoint == "" {
		errs = append(errs, errors.New("endpoint must be set"))
	}
	if c.ReconnectCooldown < 0 {
		errs = append(errs, fmt.Errorf("reconnect_cooldown must not be negative, got %s", c.ReconnectCooldown))
	}
	if c.ReconcileInterval < 0 {
		errs = append(errs, fmt.Errorf("reconcile_interval must not be negative, got %s", c.ReconcileInterval))
	}
	if c.KickInterval <= 0 {
		errs = append(errs, fmt.Errorf("kick_interval must be positive, got %s", c.KickInterval))
	}
	if c.MaxKickAttempts < 1 {
		errs = append(errs, fmt.Errorf("max_kick_attempts must be at least 1, got %d", c.MaxKickAttempts))
	}
	if c.BanSeconds < 1 {
		errs = append(errs, fmt.Errorf("ban_seconds must be at least 1, got %d", c.BanSeconds))
	}
	if c.BufferSize < 1 {
		errs = append(errs, fmt.Errorf("buffer_size must be at least 1, got %d", c.BufferSize))
	}
	if c.KickLog && c.KickLogPath == "" {
		errs = append(errs, errors.New("kick_log_path must be set when kick_log is enabled"))
	}
	return errors.Join(errs...)
}
