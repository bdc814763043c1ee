package config

// Config is the top-level roadresq configuration, corresponding to
// .roadresq.yml.
type Config struct {
	Port     int            `yaml:"port" koanf:"port"`
	DataDir  string         `yaml:"data_dir" koanf:"data_dir"`
	Greeting string         `yaml:"greeting" koanf:"greeting"`
	LogLevel string         `yaml:"log_level" koanf:"log_level"`
	CORS     CORSConfig     `yaml:"cors" koanf:"cors"`
	Geocoder GeocoderConfig `yaml:"geocoder" koanf:"geocoder"`
}

// CORSConfig holds cross-origin settings for the HTTP surface.
type CORSConfig struct {
	AllowAll bool `yaml:"allow_all" koanf:"allow_all"`
}

// GeocoderConfig points at a Nominatim-compatible geocoding service.
type GeocoderConfig struct {
	BaseURL        string `yaml:"base_url" koanf:"base_url"`
	UserAgent      string `yaml:"user_agent" koanf:"user_agent"`
	TimeoutSeconds int    `yaml:"timeout_seconds" koanf:"timeout_seconds"`
	Enabled        bool   `yaml:"enabled" koanf:"enabled"`
}
