package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/cardea-mcp/ExamPrepAgent/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the EXAMBOT_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (EXAMBOT_API_LISTEN, EXAMBOT_MODEL_TARGET, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: EXAMBOT_API_LISTEN, EXAMBOT_STORE_PROVIDER, etc.
	v.SetEnvPrefix("EXAMBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// API
	v.SetDefault("api.listen", d.API.Listen)

	// Store
	v.SetDefault("store.provider", d.Store.Provider)
	v.SetDefault("store.sqlite_path", d.Store.SQLitePath)
	v.SetDefault("store.postgres_dsn", d.Store.PostgresDSN)

	// Model
	v.SetDefault("model.target", d.Model.Target)
	v.SetDefault("model.model", d.Model.Model)
	v.SetDefault("model.api_key", d.Model.APIKey)

	// Vector store
	v.SetDefault("vector.target", d.Vector.Target)
	v.SetDefault("vector.collection", d.Vector.Collection)
	v.SetDefault("vector.dimensions", d.Vector.Dimensions)

	// Embedding
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)

	// Tools
	v.SetDefault("tools.provider", d.Tools.Provider)
	v.SetDefault("tools.mcp_target", d.Tools.MCPTarget)

	// Audio
	v.SetDefault("audio.stt_target", d.Audio.STTTarget)
	v.SetDefault("audio.stt_model", d.Audio.STTModel)
	v.SetDefault("audio.tts_target", d.Audio.TTSTarget)
	v.SetDefault("audio.tts_model", d.Audio.TTSModel)
	v.SetDefault("audio.tts_voice", d.Audio.TTSVoice)
	v.SetDefault("audio.max_seconds", d.Audio.MaxSeconds)

	// Events
	v.SetDefault("events.enabled", d.Events.Enabled)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)

	// Agent
	v.SetDefault("agent.max_rounds", d.Agent.MaxRounds)
	v.SetDefault("agent.window_size", d.Agent.WindowSize)
}
