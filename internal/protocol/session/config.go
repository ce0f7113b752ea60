package session

import "time"

// BackoffConfig defines retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration `toml:"initial_delay"`
	Multiplier   float64       `toml:"multiplier"`
	MaxDelay     time.Duration `toml:"max_delay"`
	Jitter       bool          `toml:"jitter"`
}

type SecurityMode string

const (
	SecurityModeDevelopment SecurityMode = "development"
	SecurityModeProduction  SecurityMode = "production"
)

// TLSConfig configures wss:// connections.
type TLSConfig struct {
	Enabled            bool   `toml:"enabled"`
	Mutual             bool   `toml:"mutual"`
	CAFile             string `toml:"ca_file"`
	CertFile           string `toml:"cert_file"`
	KeyFile            string `toml:"key_file"`
	ServerName         string `toml:"server_name"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
}

// Config defines transport/session reliability defaults.
type Config struct {
	ConnectTimeout     time.Duration `toml:"connect_timeout"`
	HandshakeTimeout   time.Duration `toml:"handshake_timeout"`
	WriteTimeout       time.Duration `toml:"write_timeout"`
	InitTimeout        time.Duration `toml:"init_timeout"`
	MaxConnectAttempts int           `toml:"max_connect_attempts"`
	ReadLimit          int64         `toml:"read_limit"`
	CallbackBuffer     int           `toml:"callback_buffer"`
	Backoff            BackoffConfig `toml:"backoff"`
	SecurityMode       SecurityMode  `toml:"security_mode"`
	TLS                TLSConfig     `toml:"tls"`
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout:     5 * time.Second,
		HandshakeTimeout:   5 * time.Second,
		WriteTimeout:       15 * time.Second,
		InitTimeout:        5 * time.Second,
		MaxConnectAttempts: 3,
		ReadLimit:          64 * 1024 * 1024,
		CallbackBuffer:     256,
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
		SecurityMode: SecurityModeDevelopment,
	}
}

// WithDefaults fills zero-valued fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = d.HandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.InitTimeout <= 0 {
		c.InitTimeout = d.InitTimeout
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = d.ReadLimit
	}
	if c.CallbackBuffer <= 0 {
		c.CallbackBuffer = d.CallbackBuffer
	}
	if c.Backoff.InitialDelay <= 0 {
		c.Backoff = d.Backoff
	}
	c.SecurityMode = NormalizeSecurityMode(c.SecurityMode)
	return c
}
