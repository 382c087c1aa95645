package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/filevault/internal/timex"
)

// JsonConfig mirrors Config for decoding configuration files. Durations
// accept both "30s" strings and integer nanoseconds. Only keys present in
// the file override the current values.
type JsonConfig struct {
	DatabaseDSN    string          `json:"database_dsn"`
	Backend        string          `json:"backend"`
	FTPHost        string          `json:"ftp_host"`
	FTPPort        int             `json:"ftp_port"`
	FTPUser        string          `json:"ftp_user"`
	FTPPassword    string          `json:"ftp_password"`
	FTPTimeout     *timex.Duration `json:"ftp_timeout"`
	FTPExplicitTLS *bool           `json:"ftp_explicit_tls"`
	S3RootUser     string          `json:"s3_root_user"`
	S3RootPassword string          `json:"s3_root_password"`
	S3Bucket       string          `json:"s3_bucket"`
	S3Region       string          `json:"s3_region"`
	S3BaseEndpoint string          `json:"s3_base_endpoint"`
	StagingDir     string          `json:"staging_dir"`
	LogFormat      string          `json:"log_format"`
}

func loadJSON(config *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.Backend, c.Backend)
	setString(&config.FTPHost, c.FTPHost)
	if c.FTPPort != 0 {
		config.FTPPort = c.FTPPort
	}
	setString(&config.FTPUser, c.FTPUser)
	setString(&config.FTPPassword, c.FTPPassword)
	if c.FTPTimeout != nil {
		config.FTPTimeout = c.FTPTimeout.Duration
	}
	if c.FTPExplicitTLS != nil {
		config.FTPExplicitTLS = *c.FTPExplicitTLS
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.StagingDir, c.StagingDir)
	setString(&config.LogFormat, c.LogFormat)

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
