package config

// Config is the top-level flowdeck configuration, corresponding to
// ~/.flowdeck/config.yml.
type Config struct {
	Server    ServerConfig    `yaml:"server" koanf:"server"`
	Client    ClientConfig    `yaml:"client" koanf:"client"`
	Embedding EmbeddingConfig `yaml:"embedding" koanf:"embedding"`
	Export    ExportConfig    `yaml:"export" koanf:"export"`
	Capture   CaptureConfig   `yaml:"capture" koanf:"capture"`
}

// ServerConfig holds settings for the flowdeck API server.
type ServerConfig struct {
	Port     int    `yaml:"port" koanf:"port"`
	DataDir  string `yaml:"data_dir" koanf:"data_dir"`
	AllowAll bool   `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// ClientConfig holds settings for talking to a flowdeck server.
type ClientConfig struct {
	BaseURL string `yaml:"base_url" koanf:"base_url"`

	// Debounce windows in milliseconds. Zero means library defaults.
	PersistDebounceMS     int `yaml:"persist_debounce_ms" koanf:"persist_debounce_ms"`
	ListRefreshDebounceMS int `yaml:"list_refresh_debounce_ms" koanf:"list_refresh_debounce_ms"`
	TagSearchDebounceMS   int `yaml:"tag_search_debounce_ms" koanf:"tag_search_debounce_ms"`
	FavoriteDebounceMS    int `yaml:"favorite_debounce_ms" koanf:"favorite_debounce_ms"`
}

// EmbeddingConfig enables semantic flow search when an API key is set.
type EmbeddingConfig struct {
	APIKey string `yaml:"api_key" koanf:"api_key"`
	Model  string `yaml:"model" koanf:"model"`
}

// ExportConfig holds settings for static site export.
type ExportConfig struct {
	OutputDir   string `yaml:"output_dir" koanf:"output_dir"`
	ProjectName string `yaml:"project_name" koanf:"project_name"`
}

// CaptureConfig holds settings for code capture and scanning.
type CaptureConfig struct {
	ContextLines int      `yaml:"context_lines" koanf:"context_lines"`
	Include      []string `yaml:"include" koanf:"include"`
	Exclude      []string `yaml:"exclude" koanf:"exclude"`
}
