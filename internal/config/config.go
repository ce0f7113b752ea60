package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danmuck/penne/internal/client"
	"github.com/danmuck/penne/internal/logging"
	"github.com/danmuck/penne/internal/protocol/session"
	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration written as a Go duration string ("5s") in TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// ClientConfig is the pennectl config file.
type ClientConfig struct {
	URL         string   `toml:"url"`
	Name        string   `toml:"name"`
	Strict      bool     `toml:"strict"`
	LogLevel    string   `toml:"log_level"`
	AdminAddr   string   `toml:"admin_addr"`
	AdminToken  string   `toml:"admin_token"`
	CorsOrigins []string `toml:"cors_origins"`

	ConnectTimeout     Duration `toml:"session_connect_timeout"`
	InitTimeout        Duration `toml:"session_init_timeout"`
	MaxConnectAttempts int      `toml:"session_max_connect_attempts"`
	SecurityMode       string   `toml:"session_security_mode"`
	TLSEnabled         bool     `toml:"session_tls_enabled"`
	TLSMutual          bool     `toml:"session_tls_mutual"`
	TLSCAFile          string   `toml:"session_tls_ca_file"`
	TLSCertFile        string   `toml:"session_tls_cert_file"`
	TLSKeyFile         string   `toml:"session_tls_key_file"`
	TLSServerName      string   `toml:"session_tls_server_name"`
}

func DefaultClientConfig() ClientConfig {
	s := session.DefaultConfig()
	return ClientConfig{
		URL:                "ws://localhost:50000",
		LogLevel:           "info",
		AdminAddr:          "127.0.0.1:9400",
		CorsOrigins:        []string{"http://localhost:3000"},
		ConnectTimeout:     Duration{s.ConnectTimeout},
		InitTimeout:        Duration{s.InitTimeout},
		MaxConnectAttempts: s.MaxConnectAttempts,
		SecurityMode:       string(session.SecurityModeDevelopment),
	}
}

// Load reads path over the defaults. Unknown keys are rejected.
func Load(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()
	if err := loadToml(path, &cfg); err != nil {
		return ClientConfig{}, err
	}
	if err := Validate(cfg); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("config parse failed (%s): %s", path, strict.String())
		}
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func Validate(cfg ClientConfig) error {
	u, err := client.ParseURL(cfg.URL)
	if err != nil {
		return fmt.Errorf("config url: %w", err)
	}
	if _, ok := logging.ParseLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("config log_level: unknown level %q", cfg.LogLevel)
	}
	if cfg.MaxConnectAttempts < 0 {
		return fmt.Errorf("config session_max_connect_attempts must not be negative")
	}
	if err := cfg.Session().ValidateClientTransport(u); err != nil {
		return fmt.Errorf("config session: %w", err)
	}
	return nil
}

// Session maps the session_* keys onto a session.Config with defaults filled in.
func (c ClientConfig) Session() session.Config {
	s := session.DefaultConfig()
	if c.ConnectTimeout.Duration > 0 {
		s.ConnectTimeout = c.ConnectTimeout.Duration
	}
	if c.InitTimeout.Duration > 0 {
		s.InitTimeout = c.InitTimeout.Duration
	}
	if c.MaxConnectAttempts > 0 {
		s.MaxConnectAttempts = c.MaxConnectAttempts
	}
	s.SecurityMode = session.SecurityMode(strings.TrimSpace(c.SecurityMode))
	s.TLS = session.TLSConfig{
		Enabled:    c.TLSEnabled,
		Mutual:     c.TLSMutual,
		CAFile:     strings.TrimSpace(c.TLSCAFile),
		CertFile:   strings.TrimSpace(c.TLSCertFile),
		KeyFile:    strings.TrimSpace(c.TLSKeyFile),
		ServerName: strings.TrimSpace(c.TLSServerName),
	}
	return s.WithDefaults()
}

// Options converts the config into client dial options.
func (c ClientConfig) Options() []client.Option {
	opts := []client.Option{
		client.WithStrict(c.Strict),
		client.WithSession(c.Session()),
	}
	if name := strings.TrimSpace(c.Name); name != "" {
		opts = append(opts, client.WithName(name))
	}
	return opts
}
