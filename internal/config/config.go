package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	BehaviorEcho      = "echo"
	BehaviorUniqueID  = "unique_id"
	BehaviorBroadcast = "broadcast"
	BehaviorKafka     = "kafka"
)

type NodeConfig struct {
	Behavior       string `yaml:"behavior" validate:"required,oneof=echo unique_id broadcast kafka"`
	DataPath       string `yaml:"data_path" validate:"required"`
	LogPath        string `yaml:"log_path"`
	LogLevel       string `yaml:"log_level" validate:"oneof=debug info warn error"`
	RebuildOffsets bool   `yaml:"rebuild_offsets"`
	MaxLineBytes   int    `yaml:"max_line_bytes" validate:"min=4096"`
}

var validate = validator.New()

// DefaultNodeConfig is used for every field the config file leaves out.
func DefaultNodeConfig() NodeConfig {
	return NodeConfig{
		Behavior:     BehaviorKafka,
		DataPath:     "log",
		LogLevel:     "info",
		MaxLineBytes: 1 << 20,
	}
}

// LoadNodeConfig Read <basePath>/config/node.yml over the defaults. A missing
// file is not an error: nodes started by an orchestrator usually have none.
func LoadNodeConfig(basePath string) (*NodeConfig, error) {
	cfg := DefaultNodeConfig()

	if basePath == "" {
		exePath, err := os.Executable()
		if err != nil {
			return nil, err
		}
		basePath = filepath.Dir(exePath)
	}
	configPath := filepath.Join(basePath, "config", "node.yml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("[ERROR] failed to read config file %s: %w", configPath, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("[ERROR] failed to parse config file %s: %w", configPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("[ERROR] invalid config file %s: %w", configPath, err)
	}
	return &cfg, nil
}

// Validate checks the config after flags have been applied.
func (c *NodeConfig) Validate() error {
	return validate.Struct(c)
}
