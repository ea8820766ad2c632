// Package config loads the cloudcheck configuration from file and environment.
package config

import (
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// CheckConfig describes one periodic validation check.
type CheckConfig struct {
	Name     string   `mapstructure:"name"`
	Schedule string   `mapstructure:"schedule"`
	Command  string   `mapstructure:"command"`
	Args     []string `mapstructure:"args"`
	// ConfigPath, when set, is watched for changes; a change re-runs the check.
	ConfigPath string        `mapstructure:"config_path"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type Config struct {
	Server struct {
		Port int    `mapstructure:"port"`
		Host string `mapstructure:"host"`
	} `mapstructure:"server"`
	Log struct {
		Level  string    `mapstructure:"level"`
		Levels LogLevels `mapstructure:"levels"`
	} `mapstructure:"log"`
	App struct {
		DataDir     string `mapstructure:"data_dir"`
		Environment string `mapstructure:"environment"`
	} `mapstructure:"app"`
	TLS struct {
		// CAChainPath points at a PEM bundle that must hold a verifiable
		// CA chain; serve refuses to start when it does not.
		CAChainPath string `mapstructure:"ca_chain_path"`
	} `mapstructure:"tls"`
	EPA struct {
		// SocketPath of the resource reservation service. Empty disables
		// reservation.
		SocketPath  string `mapstructure:"socket_path"`
		ServiceName string `mapstructure:"service_name"`
		Cores       int    `mapstructure:"cores"`
		NUMANode    *int   `mapstructure:"numa_node"`
	} `mapstructure:"epa"`
	Checks []CheckConfig `mapstructure:"checks"`
}

// Cfg is the process-wide configuration, populated by InitConfig.
var Cfg Config

// Load reads configuration from cfgFile (or ./config.toml when empty),
// applies CLOUDCHECK_* environment overrides and defaults.
func Load(cfgFile string) (*Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
	}

	viper.SetEnvPrefix("CLOUDCHECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A missing default config file is fine; an explicitly named one
		// must exist.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			return nil, err
		}
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		LogLevelsDecodeHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := viper.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, err
	}

	// The TOML parser nests dotted keys, so log.levels is re-read and
	// flattened separately (see LogLevelsDecodeHook).
	cfg.Log.Levels = FlattenLogLevels(viper.GetStringMap("log.levels"))

	return &cfg, nil
}

// InitConfig loads configuration into the global Cfg, returning the load error.
func InitConfig(cfgFile string) error {
	cfg, err := Load(cfgFile)
	if err != nil {
		return err
	}
	Cfg = *cfg
	return nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("app.data_dir", "./data")
	viper.SetDefault("app.environment", "production")
	viper.SetDefault("epa.service_name", "cloudcheck")
}

// BindFlags attaches shared configuration flags to the root command.
func BindFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().Int("port", 8080, "Port to run the server on")
	_ = viper.BindPFlag("server.port", cmd.PersistentFlags().Lookup("port"))
}
