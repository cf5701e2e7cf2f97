package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --model
// on both "exambot serve" and "exambot chat").
type Flag struct {
	// Name is the long flag name (e.g. "listen").
	Name string

	// Shorthand is the one-letter short flag (e.g. "l"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "api.listen").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag registry keys to Flag structs.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagListen        = "listen"
	FlagStoreProvider = "store"
	FlagSQLitePath    = "sqlite-path"
	FlagPostgresDSN   = "postgres-dsn"
	FlagModelTarget   = "model-target"
	FlagModel         = "model"
	FlagVectorTarget  = "vector-target"
	FlagCollection    = "collection"
	FlagEmbeddingTgt  = "embedding-target"
	FlagEmbeddingMdl  = "embedding-model"
	FlagToolsProvider = "tools"
	FlagMCPTarget     = "mcp-target"
	FlagMaxRounds     = "max-rounds"
	FlagWindowSize    = "window-size"
)

// DefaultFlagSet returns the shared flag definitions used across commands.
func DefaultFlagSet() FlagSet {
	return FlagSet{
		FlagListen: {
			Name:        "listen",
			Shorthand:   "l",
			ViperKey:    "api.listen",
			Description: "address for the HTTP API server to listen on",
		},
		FlagStoreProvider: {
			Name:        "store",
			ViperKey:    "store.provider",
			Description: "context store backend: memory, sqlite, or postgres",
		},
		FlagSQLitePath: {
			Name:        "sqlite-path",
			ViperKey:    "store.sqlite_path",
			Description: "path to the sqlite database file",
		},
		FlagPostgresDSN: {
			Name:        "postgres-dsn",
			ViperKey:    "store.postgres_dsn",
			Description: "postgres connection string",
		},
		FlagModelTarget: {
			Name:        "model-target",
			ViperKey:    "model.target",
			Description: "base URL of the chat completion backend",
		},
		FlagModel: {
			Name:        "model",
			Shorthand:   "m",
			ViperKey:    "model.model",
			Description: "model name sent to the completion backend",
		},
		FlagVectorTarget: {
			Name:        "vector-target",
			ViperKey:    "vector.target",
			Description: "qdrant gRPC address",
		},
		FlagCollection: {
			Name:        "collection",
			ViperKey:    "vector.collection",
			Description: "qdrant collection holding the question dataset",
		},
		FlagEmbeddingTgt: {
			Name:        "embedding-target",
			ViperKey:    "embedding.target",
			Description: "base URL of the embedding backend",
		},
		FlagEmbeddingMdl: {
			Name:        "embedding-model",
			ViperKey:    "embedding.model",
			Description: "embedding model name",
		},
		FlagToolsProvider: {
			Name:        "tools",
			ViperKey:    "tools.provider",
			Description: "tool execution backend: local or mcp",
		},
		FlagMCPTarget: {
			Name:        "mcp-target",
			ViperKey:    "tools.mcp_target",
			Description: "URL of the MCP tool server",
		},
		FlagMaxRounds: {
			Name:        "max-rounds",
			ViperKey:    "agent.max_rounds",
			Description: "maximum completion rounds per user message",
		},
		FlagWindowSize: {
			Name:        "window-size",
			ViperKey:    "agent.window_size",
			Description: "number of prior turns replayed to the model",
		},
	}
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}
