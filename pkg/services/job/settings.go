package job

import (
	"fmt"
	"runtime"

	"github.com/spf13/viper"
)

// Settings are engine-level options, as opposed to per-job parameters.
// They come from an optional YAML settings file with env overrides.
type Settings struct {
	ConcurrentTasks int    `mapstructure:"concurrent_tasks"`
	DatastoreDir    string `mapstructure:"datastore_dir"`
	ServerAddr      string `mapstructure:"server_addr"`
}

// DefaultSettings returns the settings used when no file is given
func DefaultSettings() Settings {
	return Settings{
		ConcurrentTasks: runtime.NumCPU(),
		DatastoreDir:    ".hazengine",
		ServerAddr:      "localhost:8800",
	}
}

// LoadSettings reads the engine settings file. Unset keys keep their
// defaults; HAZENGINE_* environment variables override file values.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()
	if path == "" {
		return settings, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("HAZENGINE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return settings, fmt.Errorf("failed to read settings file: %w", err)
	}
	if err := v.Unmarshal(&settings); err != nil {
		return settings, fmt.Errorf("failed to parse engine settings: %w", err)
	}
	if settings.ConcurrentTasks <= 0 {
		settings.ConcurrentTasks = runtime.NumCPU()
	}
	return settings, nil
}
