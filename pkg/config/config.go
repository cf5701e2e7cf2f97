package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/cardea-mcp/ExamPrepAgent/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

type Configer struct {
	ddm        *dotdir.Manager
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{}

	cfger.ddm = dotdir.NewManager()
	target, err := cfger.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	// If no .exambot/ directory was resolved, targetPath stays empty;
	// LoadConfig will return defaults and SaveConfig will error clearly.
	if target == "" {
		return cfger, nil
	}

	path := filepath.Join(target, configFile)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Always set targetPath when the directory exists so SaveConfig
	// can create or overwrite the file.
	cfger.targetPath = path

	return cfger, nil
}

// ValidConfigKeys returns the supported configuration key names in a stable,
// logical order matching the TOML section layout.
func ValidConfigKeys() []string {
	ordered := []string{
		"api.listen",
		"store.provider",
		"store.sqlite_path",
		"store.postgres_dsn",
		"model.target",
		"model.model",
		"model.api_key",
		"vector.target",
		"vector.collection",
		"vector.dimensions",
		"embedding.target",
		"embedding.model",
		"tools.provider",
		"tools.mcp_target",
		"audio.stt_target",
		"audio.stt_model",
		"audio.tts_target",
		"audio.tts_model",
		"audio.tts_voice",
		"audio.max_seconds",
		"events.enabled",
		"events.topic",
		"agent.max_rounds",
		"agent.window_size",
	}

	result := make([]string, 0, len(configKeys))
	seen := make(map[string]bool, len(configKeys))
	for _, k := range ordered {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
			seen[k] = true
		}
	}

	// Append any keys in the map missing from the ordered list.
	for k := range configKeys {
		if !seen[k] {
			result = append(result, k)
		}
	}

	return result
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads the configuration from config.toml in the target
// .exambot/ directory. If the file does not exist, returns NewDefaultConfig()
// so callers always receive a fully-populated Config with sane defaults.
// Fields explicitly set in the file override the defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults fills zero-value fields in cfg with values from NewDefaultConfig().
func applyDefaults(cfg *Config) {
	defaults := NewDefaultConfig()

	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}

	if cfg.API.Listen == "" {
		cfg.API.Listen = defaults.API.Listen
	}

	if cfg.Store.Provider == "" {
		cfg.Store.Provider = defaults.Store.Provider
	}

	if cfg.Model.Target == "" {
		cfg.Model.Target = defaults.Model.Target
	}
	if cfg.Model.Model == "" {
		cfg.Model.Model = defaults.Model.Model
	}

	if cfg.Vector.Target == "" {
		cfg.Vector.Target = defaults.Vector.Target
	}
	if cfg.Vector.Collection == "" {
		cfg.Vector.Collection = defaults.Vector.Collection
	}
	if cfg.Vector.Dimensions == 0 {
		cfg.Vector.Dimensions = defaults.Vector.Dimensions
	}

	if cfg.Embedding.Target == "" {
		cfg.Embedding.Target = defaults.Embedding.Target
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = defaults.Embedding.Model
	}

	if cfg.Tools.Provider == "" {
		cfg.Tools.Provider = defaults.Tools.Provider
	}
	if cfg.Tools.MCPTarget == "" {
		cfg.Tools.MCPTarget = defaults.Tools.MCPTarget
	}

	if cfg.Audio.STTTarget == "" {
		cfg.Audio.STTTarget = defaults.Audio.STTTarget
	}
	if cfg.Audio.STTModel == "" {
		cfg.Audio.STTModel = defaults.Audio.STTModel
	}
	if cfg.Audio.TTSTarget == "" {
		cfg.Audio.TTSTarget = defaults.Audio.TTSTarget
	}
	if cfg.Audio.TTSModel == "" {
		cfg.Audio.TTSModel = defaults.Audio.TTSModel
	}
	if cfg.Audio.TTSVoice == "" {
		cfg.Audio.TTSVoice = defaults.Audio.TTSVoice
	}
	if cfg.Audio.MaxSeconds == 0 {
		cfg.Audio.MaxSeconds = defaults.Audio.MaxSeconds
	}

	if cfg.Events.Topic == "" {
		cfg.Events.Topic = defaults.Events.Topic
	}

	if cfg.Agent.MaxRounds == 0 {
		cfg.Agent.MaxRounds = defaults.Agent.MaxRounds
	}
	if cfg.Agent.WindowSize == 0 {
		cfg.Agent.WindowSize = defaults.Agent.WindowSize
	}
}

// SaveConfig persists the configuration to config.toml in the target
// .exambot/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
// Returns an error if the key is not a valid config key.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
// Returns an error if the key is not a valid config key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// ParseConfigTOML parses raw TOML bytes into a Config.
// Returns an error if the version field is present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}
