package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	ServerURL    string
	DataDir      string
	LogPath      string
	PollInterval time.Duration
	AgentVersion string
}

var cfg AppConfig

const defaultAgentVersion = "0.1.0"

// Init loads config/agent.yaml (if present) with sane defaults and caches
// the result for the rest of the process.
func Init() AppConfig {
	v := viper.New()
	v.SetConfigFile("config/agent.yaml")
	v.SetConfigType("yaml")

	v.SetDefault("agent.server_url", "http://localhost:8000")
	v.SetDefault("agent.data_dir", defaultDataDir())
	v.SetDefault("agent.log_path", "")
	v.SetDefault("agent.poll_interval", "8s")
	_ = v.ReadInConfig()

	cfg = AppConfig{
		ServerURL:    v.GetString("agent.server_url"),
		DataDir:      v.GetString("agent.data_dir"),
		LogPath:      v.GetString("agent.log_path"),
		PollInterval: v.GetDuration("agent.poll_interval"),
		AgentVersion: defaultAgentVersion,
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 8 * time.Second
	}
	return cfg
}

func Get() AppConfig { return cfg }

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".pc-insight")
	}
	return filepath.Join(home, ".pc-insight")
}
