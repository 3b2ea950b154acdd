// Package config loads Ciphera's runtime configuration: a config
// directory, a relay URL, and an optional logging toggle. Flags win over
// environment variables, which win over a ".ciphera.env" file in the home
// directory.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	envHomeDir  = "CIPHERA_HOME"
	envRelayURL = "CIPHERA_RELAY_URL"
	envLogging  = "CIPHERA_LOG"

	defaultRelayURL = "http://127.0.0.1:8080"
	envFileName     = ".ciphera.env"
)

// Config holds the resolved runtime options for building an app.Wire.
type Config struct {
	HomeDir    string
	RelayURL   string
	EnableLogs bool
}

// Load resolves configuration from .ciphera.env, then the environment, then
// flags, in that order of increasing precedence. homeFlag/relayFlag/logFlag
// are the values a caller parsed from command-line flags; pass the zero
// value for any flag the user did not set so env/file values can fill in.
func Load(homeFlag, relayFlag string, logFlag *bool) (Config, error) {
	loadEnvFile()

	home := homeFlag
	if home == "" {
		home = os.Getenv(envHomeDir)
	}
	if home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return Config{}, err
		}
		home = filepath.Join(dir, ".ciphera")
	}

	relayURL := relayFlag
	if relayURL == "" {
		relayURL = os.Getenv(envRelayURL)
	}
	if relayURL == "" {
		relayURL = defaultRelayURL
	}

	enableLogs := os.Getenv(envLogging) == "1" || os.Getenv(envLogging) == "true"
	if logFlag != nil {
		enableLogs = *logFlag
	}

	return Config{
		HomeDir:    home,
		RelayURL:   relayURL,
		EnableLogs: enableLogs,
	}, nil
}

// loadEnvFile loads ~/.ciphera.env into the process environment, without
// overriding variables already set. A missing file is not an error.
func loadEnvFile() {
	dir, err := os.UserHomeDir()
	if err != nil {
		return
	}
	_ = godotenv.Load(filepath.Join(dir, envFileName))
}
