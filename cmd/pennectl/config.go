package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/penne/internal/config"
	"github.com/rs/zerolog/log"
)

// pennectl config.toml keys. Durations are strings such as "5s".
type fileConfig struct {
	URL                string          `toml:"url"`
	Name               string          `toml:"name"`
	Strict             bool            `toml:"strict"`
	LogLevel           string          `toml:"log_level"`
	AdminAddr          string          `toml:"admin_addr"`
	AdminToken         string          `toml:"admin_token"`
	CorsOrigins        []string        `toml:"cors_origins"`
	ConnectTimeout     config.Duration `toml:"session_connect_timeout"`
	InitTimeout        config.Duration `toml:"session_init_timeout"`
	MaxConnectAttempts int             `toml:"session_max_connect_attempts"`
	SecurityMode       string          `toml:"session_security_mode"`
	TLSEnabled         bool            `toml:"session_tls_enabled"`
	TLSMutual          bool            `toml:"session_tls_mutual"`
	TLSCAFile          string          `toml:"session_tls_ca_file"`
	TLSCertFile        string          `toml:"session_tls_cert_file"`
	TLSKeyFile         string          `toml:"session_tls_key_file"`
	TLSServerName      string          `toml:"session_tls_server_name"`
}

// loadClientConfig overlays the keys defined in path onto the defaults. Unknown keys
// are logged and ignored; `pennectl config check` rejects them.
func loadClientConfig(path string) (config.ClientConfig, error) {
	cfg := config.DefaultClientConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config.ClientConfig{}, fmt.Errorf("load pennectl config: %w", err)
	}
	for _, key := range meta.Undecoded() {
		log.Warn().Msgf("pennectl.loadClientConfig unknown key=%s path=%s", key, path)
	}

	if meta.IsDefined("url") {
		cfg.URL = strings.TrimSpace(raw.URL)
	}
	if meta.IsDefined("name") {
		cfg.Name = strings.TrimSpace(raw.Name)
	}
	if meta.IsDefined("strict") {
		cfg.Strict = raw.Strict
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("admin_addr") {
		cfg.AdminAddr = strings.TrimSpace(raw.AdminAddr)
	}
	if meta.IsDefined("admin_token") {
		cfg.AdminToken = strings.TrimSpace(raw.AdminToken)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = raw.CorsOrigins
	}
	if meta.IsDefined("session_connect_timeout") {
		cfg.ConnectTimeout = raw.ConnectTimeout
	}
	if meta.IsDefined("session_init_timeout") {
		cfg.InitTimeout = raw.InitTimeout
	}
	if meta.IsDefined("session_max_connect_attempts") {
		cfg.MaxConnectAttempts = raw.MaxConnectAttempts
	}
	if meta.IsDefined("session_security_mode") {
		cfg.SecurityMode = strings.TrimSpace(raw.SecurityMode)
	}
	if meta.IsDefined("session_tls_enabled") {
		cfg.TLSEnabled = raw.TLSEnabled
	}
	if meta.IsDefined("session_tls_mutual") {
		cfg.TLSMutual = raw.TLSMutual
	}
	if meta.IsDefined("session_tls_ca_file") {
		cfg.TLSCAFile = strings.TrimSpace(raw.TLSCAFile)
	}
	if meta.IsDefined("session_tls_cert_file") {
		cfg.TLSCertFile = strings.TrimSpace(raw.TLSCertFile)
	}
	if meta.IsDefined("session_tls_key_file") {
		cfg.TLSKeyFile = strings.TrimSpace(raw.TLSKeyFile)
	}
	if meta.IsDefined("session_tls_server_name") {
		cfg.TLSServerName = strings.TrimSpace(raw.TLSServerName)
	}
	return cfg, nil
}
