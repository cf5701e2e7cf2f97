package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent exambot configuration stored as
// config.toml in the .exambot/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version   int             `toml:"version"`
	API       APIConfig       `toml:"api"`
	Store     StoreConfig     `toml:"store"`
	Model     ModelConfig     `toml:"model"`
	Vector    VectorConfig    `toml:"vector"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Tools     ToolsConfig     `toml:"tools"`
	Audio     AudioConfig     `toml:"audio"`
	Events    EventsConfig    `toml:"events"`
	Agent     AgentConfig     `toml:"agent"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// StoreConfig holds context store settings. Provider selects the backend:
// "memory", "sqlite", or "postgres".
type StoreConfig struct {
	Provider    string `toml:"provider,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// ModelConfig holds the chat completion backend settings.
type ModelConfig struct {
	Target string `toml:"target,omitempty"`
	Model  string `toml:"model,omitempty"`
	APIKey string `toml:"api_key,omitempty"`
}

// VectorConfig holds the question/answer vector store settings.
type VectorConfig struct {
	Target     string `toml:"target,omitempty"`
	Collection string `toml:"collection,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Target string `toml:"target,omitempty"`
	Model  string `toml:"model,omitempty"`
}

// ToolsConfig selects how the agent's tools are executed. Provider is
// "local" for in-process execution or "mcp" to call a tool server.
type ToolsConfig struct {
	Provider  string `toml:"provider,omitempty"`
	MCPTarget string `toml:"mcp_target,omitempty"`
}

// AudioConfig holds speech-to-text and text-to-speech settings.
type AudioConfig struct {
	STTTarget  string `toml:"stt_target,omitempty"`
	STTModel   string `toml:"stt_model,omitempty"`
	TTSTarget  string `toml:"tts_target,omitempty"`
	TTSModel   string `toml:"tts_model,omitempty"`
	TTSVoice   string `toml:"tts_voice,omitempty"`
	MaxSeconds uint   `toml:"max_seconds,omitempty"`
}

// EventsConfig holds the turn event stream settings.
type EventsConfig struct {
	Enabled bool     `toml:"enabled,omitempty"`
	Brokers []string `toml:"brokers,omitempty"`
	Topic   string   `toml:"topic,omitempty"`
}

// AgentConfig holds orchestration loop settings.
type AgentConfig struct {
	MaxRounds  uint `toml:"max_rounds,omitempty"`
	WindowSize uint `toml:"window_size,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func uintKey(get func(c *Config) uint, set func(c *Config, n uint), name string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if get(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(get(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			set(c, uint(n))
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"store.provider": {
		get: func(c *Config) string { return c.Store.Provider },
		set: func(c *Config, v string) error { c.Store.Provider = v; return nil },
	},
	"store.sqlite_path": {
		get: func(c *Config) string { return c.Store.SQLitePath },
		set: func(c *Config, v string) error { c.Store.SQLitePath = v; return nil },
	},
	"store.postgres_dsn": {
		get: func(c *Config) string { return c.Store.PostgresDSN },
		set: func(c *Config, v string) error { c.Store.PostgresDSN = v; return nil },
	},
	"model.target": {
		get: func(c *Config) string { return c.Model.Target },
		set: func(c *Config, v string) error { c.Model.Target = v; return nil },
	},
	"model.model": {
		get: func(c *Config) string { return c.Model.Model },
		set: func(c *Config, v string) error { c.Model.Model = v; return nil },
	},
	"model.api_key": {
		get: func(c *Config) string { return c.Model.APIKey },
		set: func(c *Config, v string) error { c.Model.APIKey = v; return nil },
	},
	"vector.target": {
		get: func(c *Config) string { return c.Vector.Target },
		set: func(c *Config, v string) error { c.Vector.Target = v; return nil },
	},
	"vector.collection": {
		get: func(c *Config) string { return c.Vector.Collection },
		set: func(c *Config, v string) error { c.Vector.Collection = v; return nil },
	},
	"vector.dimensions": uintKey(
		func(c *Config) uint { return c.Vector.Dimensions },
		func(c *Config, n uint) { c.Vector.Dimensions = n },
		"vector.dimensions",
	),
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"tools.provider": {
		get: func(c *Config) string { return c.Tools.Provider },
		set: func(c *Config, v string) error { c.Tools.Provider = v; return nil },
	},
	"tools.mcp_target": {
		get: func(c *Config) string { return c.Tools.MCPTarget },
		set: func(c *Config, v string) error { c.Tools.MCPTarget = v; return nil },
	},
	"audio.stt_target": {
		get: func(c *Config) string { return c.Audio.STTTarget },
		set: func(c *Config, v string) error { c.Audio.STTTarget = v; return nil },
	},
	"audio.stt_model": {
		get: func(c *Config) string { return c.Audio.STTModel },
		set: func(c *Config, v string) error { c.Audio.STTModel = v; return nil },
	},
	"audio.tts_target": {
		get: func(c *Config) string { return c.Audio.TTSTarget },
		set: func(c *Config, v string) error { c.Audio.TTSTarget = v; return nil },
	},
	"audio.tts_model": {
		get: func(c *Config) string { return c.Audio.TTSModel },
		set: func(c *Config, v string) error { c.Audio.TTSModel = v; return nil },
	},
	"audio.tts_voice": {
		get: func(c *Config) string { return c.Audio.TTSVoice },
		set: func(c *Config, v string) error { c.Audio.TTSVoice = v; return nil },
	},
	"audio.max_seconds": uintKey(
		func(c *Config) uint { return c.Audio.MaxSeconds },
		func(c *Config, n uint) { c.Audio.MaxSeconds = n },
		"audio.max_seconds",
	),
	"events.enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.Events.Enabled) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for events.enabled: %w", err)
			}
			c.Events.Enabled = b
			return nil
		},
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
	"agent.max_rounds": uintKey(
		func(c *Config) uint { return c.Agent.MaxRounds },
		func(c *Config, n uint) { c.Agent.MaxRounds = n },
		"agent.max_rounds",
	),
	"agent.window_size": uintKey(
		func(c *Config) uint { return c.Agent.WindowSize },
		func(c *Config, n uint) { c.Agent.WindowSize = n },
		"agent.window_size",
	),
}
