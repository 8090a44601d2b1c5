package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is a star's full layered configuration, loaded by Load from a
// YAML file plus STARLANE_-prefixed environment overrides.
type Config struct {
	Star struct {
		Constellation string `mapstructure:"constellation"`
		Name          string `mapstructure:"name"`
		Index         uint16 `mapstructure:"index"`
		Kind          string `mapstructure:"kind"`
		IsForwarder   bool   `mapstructure:"is_forwarder"`
	} `mapstructure:"star"`

	Lane struct {
		ListenAddr string       `mapstructure:"listen_addr"`
		CertDir    string       `mapstructure:"cert_dir"`
		Peers      []PeerConfig `mapstructure:"peers"`
	} `mapstructure:"lane"`

	Registry struct {
		DSN      string `mapstructure:"dsn"`
		Migrate  bool   `mapstructure:"migrate"`
		InMemory bool   `mapstructure:"in_memory"`
	} `mapstructure:"registry"`

	Topology struct {
		WrangleKinds    []string      `mapstructure:"wrangle_kinds"`
		WrangleInterval time.Duration `mapstructure:"wrangle_interval"`
	} `mapstructure:"topology"`

	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"logging"`

	Admin struct {
		ListenAddr string `mapstructure:"listen_addr"`
	} `mapstructure:"admin"`
}

// PeerConfig names one star this star dials outbound at start-up, kept
// distinct from the stars that dial in and appear in Adjacency only
// once admitted.
type PeerConfig struct {
	Constellation string `mapstructure:"constellation"`
	Name          string `mapstructure:"name"`
	Index         uint16 `mapstructure:"index"`
	Addr          string `mapstructure:"addr"`
	Forwarder     bool   `mapstructure:"forwarder"`
}

// envPrefix is the prefix viper uses for environment overrides, e.g.
// STARLANE_STAR_NAME overrides star.name.
const envPrefix = "STARLANE"

// Defaults applied before a config file or environment override is
// read, so a bare `star serve` with no file still boots something
// reasonable for local development.
func setDefaults(v *viper.Viper) {
	v.SetDefault("star.kind", "Space")
	v.SetDefault("star.is_forwarder", false)
	v.SetDefault("lane.listen_addr", "0.0.0.0:7890")
	v.SetDefault("lane.cert_dir", "./certs")
	v.SetDefault("registry.in_memory", true)
	v.SetDefault("registry.migrate", true)
	v.SetDefault("topology.wrangle_interval", 30*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("admin.listen_addr", "127.0.0.1:7891")
}

// Load reads path (if non-empty) as a YAML config file, merges
// STARLANE_-prefixed environment overrides on top, and unmarshals the
// result into a Config. A missing path is not an error: defaults plus
// environment overrides alone are enough to boot a single-node star.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if cfg.Star.Name == "" {
		return nil, fmt.Errorf("config: star.name is required")
	}
	if cfg.Star.Constellation == "" {
		return nil, fmt.Errorf("config: star.constellation is required")
	}
	return &cfg, nil
}
