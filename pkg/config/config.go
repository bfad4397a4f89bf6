// Package config provides the viper-backed configuration loader for the
// engine's processes, mirroring the teacher's pkg/config layering: one
// struct mirroring the YAML shape, a Load(env) that reads a base file and
// merges an environment-specific overlay, AutomaticEnv for last-mile
// overrides.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/synnergy-network/marketengine/pkg/utils"
)

const Version = "v0.1.0"

// ChainConfig describes one monitored chain.
type ChainConfig struct {
	Name              string   `mapstructure:"name" json:"name"`
	ChainID           uint64   `mapstructure:"chain_id" json:"chain_id"`
	WSEndpoint        string   `mapstructure:"ws_endpoint" json:"ws_endpoint"`
	RPCEndpoint       string   `mapstructure:"rpc_endpoint" json:"rpc_endpoint"`
	RequestsPerSecond float64  `mapstructure:"requests_per_second" json:"requests_per_second"`
	MaxConcurrent     int      `mapstructure:"max_concurrent" json:"max_concurrent"`
	V2Factories       []string `mapstructure:"v2_factories" json:"v2_factories"`
	V3Factories       []string `mapstructure:"v3_factories" json:"v3_factories"`
	V4StateViews      []string `mapstructure:"v4_state_views" json:"v4_state_views"`
}

// Config is the unified engine configuration, mirroring the structure of
// the YAML config files Load reads.
type Config struct {
	Chains []ChainConfig `mapstructure:"chains" json:"chains"`

	TokenRegistry struct {
		MemoSize        int    `mapstructure:"memo_size" json:"memo_size"`
		TrustedListPath string `mapstructure:"trusted_list_path" json:"trusted_list_path"`
	} `mapstructure:"token_registry" json:"token_registry"`

	Cache struct {
		Dir string `mapstructure:"dir" json:"dir"`
	} `mapstructure:"cache" json:"cache"`

	Admin struct {
		ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
	} `mapstructure:"admin" json:"admin"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads cmd/config/default.yaml and merges an environment-specific
// overlay when env is non-empty, then applies environment-variable
// overrides via AutomaticEnv.
func Load(env string) (*Config, error) {
	_ = godotenv.Load() // best-effort; absence of a .env file is not an error

	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the MARKETENGINE_ENV environment
// variable to select the overlay.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("MARKETENGINE_ENV", ""))
}
