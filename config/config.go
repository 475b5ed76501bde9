package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/CIDgravity/snakelet"
)

const defaultConfigFile = "config/config.toml"

// config structure
type Config struct {
	API    APIConfig    `mapstructure:"API"`
	Github GithubConfig `mapstructure:"GITHUB"`
	Tasks  TasksConfig  `mapstructure:"TASKS"`
	Logs   LogsConfig   `mapstructure:"LOGS"`
}

type APIConfig struct {
	ListenPort string `mapstructure:"ListenPort"`
}

type GithubConfig struct {
	BaseURL               string `mapstructure:"BaseURL"` // must end with a slash
	RequestTimeoutSeconds int    `mapstructure:"RequestTimeoutSeconds"`
}

type TasksConfig struct {
	MaxParallelTasksAllowed int `mapstructure:"MaxParallelTasksAllowed"`
}

type LogsConfig struct {
	Level            string `mapstructure:"Level"` // error | warn | info | debug - case insensitive
	OutputLogsAsJSON bool   `mapstructure:"OutputLogsAsJSON"`
}

// RequestTimeout returns the timeout applied by the HTTP transport to each search request
func (c GithubConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// Load reads the configuration file located at path.
// If path is empty, config/config.toml is searched next to the binary, then in the working directory.
// When no file is found, the default configuration is returned.
func Load(path string) (*Config, error) {
	configFilePath := path

	if configFilePath == "" {
		found, err := findConfigFile()
		if err != nil {
			return nil, err
		}

		if found == "" {
			return GetDefault(), nil
		}

		configFilePath = found
	}

	// load default and config file content
	cfg := GetDefault()
	_, err := snakelet.InitAndLoad(cfg, configFilePath)

	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func findConfigFile() (string, error) {
	dir, err := filepath.Abs(filepath.Dir(os.Args[0]))

	if err != nil {
		return "", err
	}

	candidates := []string{filepath.Join(dir, defaultConfigFile), defaultConfigFile}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
	}

	return "", nil
}

// GetDefault
func GetDefault() *Config {
	return &Config{
		API: APIConfig{
			ListenPort: "5000",
		},
		Github: GithubConfig{
			BaseURL:               "https://api.github.com/",
			RequestTimeoutSeconds: 30,
		},
		Tasks: TasksConfig{
			MaxParallelTasksAllowed: 8,
		},
		Logs: LogsConfig{
			Level:            "debug",
			OutputLogsAsJSON: false,
		},
	}
}
