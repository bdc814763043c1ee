package config

// validLogLevels is the set of recognized log level values.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:     8080,
		DataDir:  "data",
		Greeting: "",
		LogLevel: "info",
		CORS: CORSConfig{
			AllowAll: false,
		},
		Geocoder: GeocoderConfig{
			BaseURL:        "https://nominatim.openstreetmap.org",
			UserAgent:      "roadresq/1.0",
			TimeoutSeconds: 8,
			Enabled:        true,
		},
	}
}
