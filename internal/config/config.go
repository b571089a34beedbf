package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all server configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Engine      EngineConfig      `yaml:"engine"`
	JWT         JWTConfig         `yaml:"jwt"`
	Redis       RedisConfig       `yaml:"redis"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Console     ConsoleConfig     `yaml:"console"`
}

// ServerConfig holds server-specific settings
type ServerConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	TickRate   int    `yaml:"tick_rate"` // Hz
	MaxClients int    `yaml:"max_clients"`
	SendBuffer int    `yaml:"send_buffer"` // outbound messages per connection
	GinMode    string `yaml:"gin_mode"`
}

// EngineConfig holds map engine settings
type EngineConfig struct {
	Resources  string     `yaml:"resources"` // empty: $HEXWORLD_RESOURCES or ./resources
	InboxSize  int        `yaml:"inbox_size"`
	DefaultMap *MapConfig `yaml:"default_map"`
}

// MapConfig describes a map generated at startup
type MapConfig struct {
	Name      string   `yaml:"name"`
	Width     uint8    `yaml:"width"`
	Height    uint8    `yaml:"height"`
	WrapsX    bool     `yaml:"wraps_x"`
	Generator string   `yaml:"generator"` // alternate, noise, fill
	Types     []string `yaml:"types"`
	Seed      int64    `yaml:"seed"`
	Scale     float64  `yaml:"scale"`
	Rivers    int      `yaml:"rivers"`
	RiverType string   `yaml:"river_type"`
}

// JWTConfig holds JWT authentication settings. Auth is off when
// PublicKeyURL is empty.
type JWTConfig struct {
	Issuer              string `yaml:"issuer"`
	PublicKeyURL        string `yaml:"public_key_url"`
	PublicKeyRefreshHrs int    `yaml:"public_key_refresh_hours"`
}

// RedisConfig holds Redis connection settings. Redis is off when Address
// is empty.
type RedisConfig struct {
	Address         string `yaml:"address"`
	Password        string `yaml:"password"`
	DB              int    `yaml:"db"`
	BlacklistPrefix string `yaml:"blacklist_prefix"`
	EventsChannel   string `yaml:"events_channel"`
}

// PersistenceConfig holds snapshot and index settings
type PersistenceConfig struct {
	DataDir            string `yaml:"data_dir"`
	SnapshotEveryTicks uint64 `yaml:"snapshot_every_ticks"` // 0 disables periodic snapshots
	LoadLatest         bool   `yaml:"load_latest"`
	Index              bool   `yaml:"index"`
}

// ConsoleConfig controls the stdin command reader
type ConsoleConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.TickRate == 0 {
		cfg.Server.TickRate = 10
	}
	if cfg.Server.MaxClients == 0 {
		cfg.Server.MaxClients = 100
	}
	if cfg.Server.SendBuffer == 0 {
		cfg.Server.SendBuffer = 256
	}
	if cfg.Server.GinMode == "" {
		cfg.Server.GinMode = "release"
	}
	if cfg.Engine.InboxSize == 0 {
		cfg.Engine.InboxSize = 1024
	}
	if m := cfg.Engine.DefaultMap; m != nil && m.Generator == "" {
		m.Generator = "alternate"
	}
	if cfg.JWT.PublicKeyRefreshHrs == 0 {
		cfg.JWT.PublicKeyRefreshHrs = 24
	}
	if cfg.Redis.BlacklistPrefix == "" {
		cfg.Redis.BlacklistPrefix = "jwt:blacklist:"
	}
	if cfg.Redis.EventsChannel == "" {
		cfg.Redis.EventsChannel = "hexworld:events"
	}
	if cfg.Persistence.DataDir == "" {
		cfg.Persistence.DataDir = "./data"
	}
}

// Validate rejects settings the server cannot run with.
func (cfg *Config) Validate() error {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	if cfg.Server.TickRate < 0 {
		return fmt.Errorf("invalid tick rate %d", cfg.Server.TickRate)
	}
	if cfg.Server.MaxClients < 0 {
		return fmt.Errorf("invalid max_clients %d", cfg.Server.MaxClients)
	}
	if cfg.Server.SendBuffer < 0 {
		return fmt.Errorf("invalid send_buffer %d", cfg.Server.SendBuffer)
	}
	if cfg.Engine.InboxSize < 0 {
		return fmt.Errorf("invalid inbox_size %d", cfg.Engine.InboxSize)
	}
	switch cfg.Server.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("invalid gin_mode %q", cfg.Server.GinMode)
	}
	if m := cfg.Engine.DefaultMap; m != nil && m.Name == "" {
		return fmt.Errorf("engine.default_map needs a name")
	}
	return nil
}

// Addr is the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
