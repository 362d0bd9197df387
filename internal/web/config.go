package web

import "github.com/poi-recon/internal/config"

// Config represents the web server configuration
type Config struct {
	Server   ServerConfig  `json:"server"`
	Features FeatureConfig `json:"features"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port int    `json:"port"`
	Host string `json:"host"`
}

// FeatureConfig contains feature toggles
type FeatureConfig struct {
	ExportEnabled         bool `json:"export_enabled"`
	ManualOverrideEnabled bool `json:"manual_override_enabled"`
}

// ConfigFromEnv builds the server configuration from the environment.
func ConfigFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port: config.GetEnvInt("RECON_HTTP_PORT", 8080),
			Host: config.GetEnv("RECON_HTTP_HOST", "0.0.0.0"),
		},
		Features: FeatureConfig{
			ExportEnabled:         config.GetEnvBool("RECON_EXPORT_ENABLED", true),
			ManualOverrideEnabled: config.GetEnvBool("RECON_MANUAL_OVERRIDE_ENABLED", true),
		},
	}
}
