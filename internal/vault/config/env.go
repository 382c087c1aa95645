package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable, e.g. FILEVAULT_FTP_HOST.
const EnvPrefix = "FILEVAULT"

// loadEnv overrides fields whose variables are set and leaves the rest alone.
func loadEnv(config *Config) error {
	if err := envconfig.Process(EnvPrefix, config); err != nil {
		return fmt.Errorf("env config: %w", err)
	}
	return nil
}
