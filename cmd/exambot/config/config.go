// Package configcmder provides the config command for managing persistent
// exambot configuration stored in the .exambot/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent exambot configuration.

Configuration is stored as config.toml in the .exambot/ directory and
provides default values for command flags. CLI flags always take precedence
over config file values.

Keys use dotted notation matching the TOML section structure:
  api.listen,
  store.provider, store.sqlite_path, store.postgres_dsn,
  model.target, model.model, model.api_key,
  vector.target, vector.collection, vector.dimensions,
  embedding.target, embedding.model,
  tools.provider, tools.mcp_target,
  audio.stt_target, audio.stt_model, audio.tts_target, audio.tts_model,
  audio.tts_voice, audio.max_seconds,
  events.enabled, events.topic,
  agent.max_rounds, agent.window_size

Use subcommands to get, set, or list configuration values:
  exambot config set <key> <value>    Set a configuration value
  exambot config get <key>            Get a configuration value
  exambot config list                 List all configuration values

Examples:
  exambot config set model.model gpt-4o-mini
  exambot config set store.provider postgres
  exambot config get model.target
  exambot config list`

const configShortDesc string = "Manage persistent exambot configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
