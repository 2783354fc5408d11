package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	envPrefix     = "TASKBOARD"
	defaultServer = "http://localhost:8080"
)

// Settings are read from the config file, TASKBOARD_* variables and
// flags, in increasing order of precedence.
type Settings struct {
	Server     string `mapstructure:"server"`
	Verbose    bool   `mapstructure:"verbose"`
	NoInput    bool   `mapstructure:"no_input"`
	KeyringDir string `mapstructure:"keyring_dir"`
}

// DefaultConfigPath returns ~/.config/taskboard/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "taskboard", "config.yaml")
}

// loadSettings reads path into v. A missing file is not an error.
func loadSettings(v *viper.Viper, path string) (Settings, error) {
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetDefault("server", defaultServer)
	v.SetDefault("keyring_dir", filepath.Join(filepath.Dir(path), "credentials"))

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if s.Server == "" {
		s.Server = defaultServer
	}
	return s, nil
}
