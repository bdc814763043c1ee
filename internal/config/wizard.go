package config

import (
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .roadresq.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to roadresq! Let's configure your intake line.")
	fmt.Println()

	defaults := DefaultConfig()

	// 1. Server port.
	portPrompt := promptui.Prompt{
		Label:   "HTTP port",
		Default: strconv.Itoa(defaults.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 || n > 65535 {
				return fmt.Errorf("enter a port between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	port, _ := strconv.Atoi(portStr)

	// 2. Data directory.
	dataPrompt := promptui.Prompt{
		Label:   "Data directory for the incident database",
		Default: defaults.DataDir,
	}
	dataDir, err := dataPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	// 3. Geocoding.
	geoPrompt := promptui.Select{
		Label: "Resolve caller locations to map coordinates?",
		Items: []string{
			"yes - use a Nominatim-compatible geocoder",
			"no  - record locations as free text only",
		},
	}
	geoIdx, _, err := geoPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("geocoder selection: %w", err)
	}

	geocoder := defaults.Geocoder
	geocoder.Enabled = geoIdx == 0
	if geocoder.Enabled {
		urlPrompt := promptui.Prompt{
			Label:   "Geocoder base URL",
			Default: defaults.Geocoder.BaseURL,
		}
		baseURL, err := urlPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("geocoder url: %w", err)
		}
		geocoder.BaseURL = baseURL
	}

	// 4. Greeting.
	greetingPrompt := promptui.Prompt{
		Label:   "Greeting (leave blank for the default)",
		Default: "",
	}
	greeting, err := greetingPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("greeting: %w", err)
	}

	cfg := &Config{
		Port:     port,
		DataDir:  dataDir,
		Greeting: greeting,
		LogLevel: defaults.LogLevel,
		CORS:     defaults.CORS,
		Geocoder: geocoder,
	}

	configPath := ".roadresq.yml"
	if err := cfg.Save(configPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", configPath)
	return cfg, nil
}
