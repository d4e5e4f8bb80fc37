// Package config loads node configuration from YAML files and KISS_-prefixed
// environment variables, generalizing the teacher repo's pkg/config loader
// to the shape of original_source/src/settings/mod.rs.
package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"kiss/internal/kisserrors"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// envPrefix is the environment variable prefix every override uses, matching
// original_source's Environment::with_prefix("KISS").
const envPrefix = "KISS"

// StorageKind selects the record store backend.
type StorageKind string

const (
	StorageLocal  StorageKind = "local"
	StorageDocker StorageKind = "docker"
)

// StorageConfig configures the record store backend.
type StorageConfig struct {
	Kind   StorageKind `mapstructure:"kind" json:"kind"`
	Path   string      `mapstructure:"path" json:"path"`
	Create bool        `mapstructure:"create" json:"create"`
}

// SwarmConfig configures the libp2p host.
type SwarmConfig struct {
	Keypair   string   `mapstructure:"keypair" json:"keypair"` // base64 protobuf-encoded, empty to generate fresh
	Port      uint16   `mapstructure:"port" json:"port"`
	Bootstrap []string `mapstructure:"bootstrap" json:"bootstrap"` // host:port pairs
}

// BootstrapAddrs parses the configured bootstrap peers as TCP addresses.
func (s SwarmConfig) BootstrapAddrs() ([]*net.TCPAddr, error) {
	addrs := make([]*net.TCPAddr, 0, len(s.Bootstrap))
	for _, raw := range s.Bootstrap {
		addr, err := net.ResolveTCPAddr("tcp", raw)
		if err != nil {
			return nil, kisserrors.Wrap(err, fmt.Sprintf("invalid bootstrap address %q", raw))
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// GrpcConfig configures the RPC façade's listener.
type GrpcConfig struct {
	Port uint16 `mapstructure:"port" json:"port"`
}

// LedgerConfig configures the external ledger connection.
type LedgerConfig struct {
	Username string `mapstructure:"username" json:"username"`
	Password string `mapstructure:"password" json:"password"`
	Address  string `mapstructure:"address" json:"address"`
}

// MaliciousBehavior selects the malice harness corruption pattern, per
// spec §4.6.
type MaliciousBehavior string

const (
	MaliciousNone       MaliciousBehavior = "none"
	MaliciousDeleteAll  MaliciousBehavior = "delete_all"
	MaliciousDeleteLast MaliciousBehavior = "delete_last"
)

// Config is the unified node configuration, mirroring the YAML files under
// config/.
type Config struct {
	Storage           StorageConfig     `mapstructure:"storage" json:"storage"`
	Swarm             SwarmConfig       `mapstructure:"swarm" json:"swarm"`
	Grpc              GrpcConfig        `mapstructure:"grpc" json:"grpc"`
	Ledger            LedgerConfig      `mapstructure:"ledger" json:"ledger"`
	MaliciousBehavior MaliciousBehavior `mapstructure:"malicious_behavior" json:"malicious_behavior"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`

	Audit struct {
		IntervalSeconds int `mapstructure:"interval_seconds" json:"interval_seconds"`
		NumPeers        int `mapstructure:"num_peers" json:"num_peers"`
	} `mapstructure:"audit" json:"audit"`

	Replication struct {
		// Factor is the number of closest peers store() replicates to, per
		// spec §4.4. 0 leaves swarm.ReplicationFactor's default (3) in
		// effect.
		Factor int `mapstructure:"factor" json:"factor"`
	} `mapstructure:"replication" json:"replication"`
}

// Load reads config/default.yaml, optionally merges config/<env>.yaml, then
// applies KISS_-prefixed environment overrides (KISS_STORAGE_PATH,
// KISS_SWARM_PORT, ...), matching the three-source precedence order in
// original_source's SettingsProvider.
func Load(env string) (*Config, error) {
	_ = godotenv.Load() // optional .env, silently ignored if absent

	v := viper.New()
	v.SetConfigName("default")
	v.AddConfigPath("config")
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, kisserrors.Wrap(err, "load base config")
	}

	if env != "" {
		v.SetConfigName(env)
		if err := v.MergeInConfig(); err != nil {
			return nil, kisserrors.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, kisserrors.Wrap(err, "unmarshal config")
	}
	return &cfg, nil
}

// LoadFromEnv loads configuration using the KISS_ENV environment variable to
// select the overlay file.
func LoadFromEnv() (*Config, error) {
	return Load(viperEnvOrDefault("KISS_ENV", ""))
}

func viperEnvOrDefault(key, def string) string {
	v := viper.New()
	v.AutomaticEnv()
	if val := v.GetString(key); val != "" {
		return val
	}
	return def
}
