package config

import (
	"time"

	"github.com/DOIDFoundation/validator-rpc/flags"
	"github.com/spf13/viper"
)

// Config of the connection to a validator node.
type Config struct {
	// HTTP endpoint of the node, e.g. http://127.0.0.1:8899
	HTTPAddress string `mapstructure:"http"`
	// Websocket endpoint of the node, e.g. ws://127.0.0.1:8900
	WSAddress string `mapstructure:"ws"`
	// Timeout bounds HTTP round trips and the websocket handshake, and is
	// how long commands wait for a reply.
	Timeout time.Duration `mapstructure:"timeout"`

	Metrics MetricsConfig `mapstructure:"metrics"`

	// Number of accounts kept by the account cache.
	CacheSize int `mapstructure:"cache_size"`
}

type MetricsConfig struct {
	// TCP address to serve prometheus metrics on, empty disables it.
	ListenAddress string `mapstructure:"addr"`
	Namespace     string `mapstructure:"namespace"`
}

// DefaultConfig returns a default configuration for a local node.
var DefaultConfig = Config{
	HTTPAddress: "http://127.0.0.1:8899",
	WSAddress:   "ws://127.0.0.1:8900",
	Timeout:     30 * time.Second,
	Metrics: MetricsConfig{
		Namespace: "validator_rpc",
	},
	CacheSize: 1024,
}

// SetDefaults registers the defaults with viper.
func SetDefaults() {
	viper.SetDefault(flags.RPC_HTTP, DefaultConfig.HTTPAddress)
	viper.SetDefault(flags.RPC_WS, DefaultConfig.WSAddress)
	viper.SetDefault(flags.RPC_Timeout, DefaultConfig.Timeout)
	viper.SetDefault(flags.Metrics_Addr, DefaultConfig.Metrics.ListenAddress)
	viper.SetDefault(flags.Metrics_Namespace, DefaultConfig.Metrics.Namespace)
	viper.SetDefault(flags.Cache_Size, DefaultConfig.CacheSize)
}

// Load reads the configuration from viper.
func Load() *Config {
	return &Config{
		HTTPAddress: viper.GetString(flags.RPC_HTTP),
		WSAddress:   viper.GetString(flags.RPC_WS),
		Timeout:     viper.GetDuration(flags.RPC_Timeout),
		Metrics: MetricsConfig{
			ListenAddress: viper.GetString(flags.Metrics_Addr),
			Namespace:     viper.GetString(flags.Metrics_Namespace),
		},
		CacheSize: viper.GetInt(flags.Cache_Size),
	}
}
