package config

const (
	defaultAPIListen = ":8000"

	defaultStoreProvider = "sqlite"

	defaultModelTarget = "http://localhost:9095/v1"
	defaultModelName   = "gpt-4o"

	defaultVectorTarget     = "localhost:6334"
	defaultVectorCollection = "exam_qa"
	defaultVectorDimensions = 384

	defaultEmbeddingTarget = "http://localhost:11434"
	defaultEmbeddingModel  = "all-minilm"

	defaultToolsProvider = "local"
	defaultMCPTarget     = "http://localhost:8000/mcp"

	defaultSTTModel     = "whisper-1"
	defaultTTSModel     = "tts-1"
	defaultTTSVoice     = "alloy"
	defaultAudioMaxSecs = 60

	defaultEventsTopic = "exambot.turns"

	defaultAgentRounds = 5
	defaultAgentWindow = 40
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Store: StoreConfig{
			Provider: defaultStoreProvider,
		},
		Model: ModelConfig{
			Target: defaultModelTarget,
			Model:  defaultModelName,
		},
		Vector: VectorConfig{
			Target:     defaultVectorTarget,
			Collection: defaultVectorCollection,
			Dimensions: defaultVectorDimensions,
		},
		Embedding: EmbeddingConfig{
			Target: defaultEmbeddingTarget,
			Model:  defaultEmbeddingModel,
		},
		Tools: ToolsConfig{
			Provider:  defaultToolsProvider,
			MCPTarget: defaultMCPTarget,
		},
		Audio: AudioConfig{
			STTTarget:  defaultModelTarget,
			STTModel:   defaultSTTModel,
			TTSTarget:  defaultModelTarget,
			TTSModel:   defaultTTSModel,
			TTSVoice:   defaultTTSVoice,
			MaxSeconds: defaultAudioMaxSecs,
		},
		Events: EventsConfig{
			Topic: defaultEventsTopic,
		},
		Agent: AgentConfig{
			MaxRounds:  defaultAgentRounds,
			WindowSize: defaultAgentWindow,
		},
	}
}
