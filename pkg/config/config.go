package config

// Package config provides a reusable loader for vaultmesh node configuration
// files and environment variables. It is versioned so that applications can
// depend on a stable API contract.
//
// Version: v0.1.0

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vaultmesh/vaultmesh/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config represents the unified configuration for a vaultmesh node. It
// mirrors the structure of the YAML files Load reads (default.yaml and an
// optional <env>.yaml from cmd/config or config).
type Config struct {
	Swarm struct {
		ListenAddr     string   `mapstructure:"listen_addr" json:"listen_addr"`
		BootstrapPeers []string `mapstructure:"bootstrap_peers" json:"bootstrap_peers"`
		DiscoveryTag   string   `mapstructure:"discovery_tag" json:"discovery_tag"`
		EnableGossip   bool     `mapstructure:"enable_gossip" json:"enable_gossip"`
		EnableMDNS     bool     `mapstructure:"enable_mdns" json:"enable_mdns"`
		LocalMode      bool     `mapstructure:"local_mode" json:"local_mode"`
	} `mapstructure:"swarm" json:"swarm"`

	Network struct {
		CloseGroupSize      int `mapstructure:"close_group_size" json:"close_group_size"`
		ConnectionTimeoutMS int `mapstructure:"connection_timeout_ms" json:"connection_timeout_ms"`
		InactivityTimeoutMS int `mapstructure:"inactivity_timeout_ms" json:"inactivity_timeout_ms"`
		PutRetries          int `mapstructure:"put_retries" json:"put_retries"`
		RecordCacheSize     int `mapstructure:"record_cache_size" json:"record_cache_size"`
	} `mapstructure:"network" json:"network"`

	Storage struct {
		ChunkStoreDir     string `mapstructure:"chunk_store_dir" json:"chunk_store_dir"`
		ChunkCacheEntries int    `mapstructure:"chunk_cache_entries" json:"chunk_cache_entries"`
	} `mapstructure:"storage" json:"storage"`

	Wallet struct {
		Dir string `mapstructure:"dir" json:"dir"`
	} `mapstructure:"wallet" json:"wallet"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// ConnectionTimeout returns Network.ConnectionTimeoutMS as a time.Duration.
func (c Config) ConnectionTimeout() time.Duration {
	return time.Duration(c.Network.ConnectionTimeoutMS) * time.Millisecond
}

// InactivityTimeout returns Network.InactivityTimeoutMS as a time.Duration.
func (c Config) InactivityTimeout() time.Duration {
	return time.Duration(c.Network.InactivityTimeoutMS) * time.Millisecond
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

func setDefaults() {
	viper.SetDefault("swarm.listen_addr", "/ip4/0.0.0.0/tcp/0")
	viper.SetDefault("swarm.discovery_tag", "vaultmesh-mdns")
	viper.SetDefault("swarm.enable_gossip", true)
	viper.SetDefault("swarm.enable_mdns", true)
	viper.SetDefault("swarm.local_mode", false)

	viper.SetDefault("network.close_group_size", 8)
	viper.SetDefault("network.connection_timeout_ms", int(10*time.Second/time.Millisecond))
	viper.SetDefault("network.inactivity_timeout_ms", int(30*time.Second/time.Millisecond))
	viper.SetDefault("network.put_retries", 3)
	viper.SetDefault("network.record_cache_size", 4096)

	viper.SetDefault("storage.chunk_store_dir", "./vaultmesh-data/chunks")
	viper.SetDefault("storage.chunk_cache_entries", 10_000)

	viper.SetDefault("wallet.dir", "./vaultmesh-data/wallet")

	viper.SetDefault("logging.level", "info")
}

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and returned.
//
// The function uses the provided environment name to merge additional config
// files. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	setDefaults()

	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, utils.Wrap(err, "load config")
		}
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.SetEnvPrefix("VAULTMESH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the VAULTMESH_ENV environment
// variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("VAULTMESH_ENV", ""))
}
