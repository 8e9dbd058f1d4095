package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr" validate:"required"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout" validate:"gt=0"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gt=0"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	Production        bool          `mapstructure:"production" yaml:"production"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path" validate:"required"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret" validate:"required,min=8"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL      time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl" validate:"gt=0"`

	// MaxMessageBytes caps a single inbound WebSocket frame.
	MaxMessageBytes  int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes" validate:"gt=0"`
	MessageRateLimit int           `mapstructure:"message_rate_limit" yaml:"message_rate_limit" validate:"gte=0"`
	SendBuffer       int           `mapstructure:"send_buffer" yaml:"send_buffer" validate:"gt=0"`
	PipelineTimeout  time.Duration `mapstructure:"pipeline_timeout" yaml:"pipeline_timeout" validate:"gt=0"`
	// AllowedOrigins applies to the socket handshake and to REST CORS.
	// It must be set in production.
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`

	// REST throttling, requests per minute per client IP and route; 0 disables.
	APIRateLimit          int `mapstructure:"api_rate_limit" yaml:"api_rate_limit" validate:"gte=0"`
	LoginRateLimit        int `mapstructure:"login_rate_limit" yaml:"login_rate_limit" validate:"gte=0"`
	RegisterRateLimit     int `mapstructure:"register_rate_limit" yaml:"register_rate_limit" validate:"gte=0"`
	RegisterCodeRateLimit int `mapstructure:"register_code_rate_limit" yaml:"register_code_rate_limit" validate:"gte=0"`

	MailTimeout time.Duration `mapstructure:"mail_timeout" yaml:"mail_timeout" validate:"gt=0"`

	UploadDir      string `mapstructure:"upload_dir" yaml:"upload_dir" validate:"required"`
	UploadMaxBytes int64  `mapstructure:"upload_max_bytes" yaml:"upload_max_bytes" validate:"gt=0"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:                  ":8080",
		ReadHeaderTimeout:     5 * time.Second,
		ShutdownTimeout:       5 * time.Second,
		LogLevel:              "info",
		DatabasePath:          "supportchat.db",
		JWTSecret:             "change-me-in-production",
		JWTIssuer:             "supportchat",
		JWTAudience:           "supportchat-clients",
		JWTTTL:                24 * time.Hour,
		MaxMessageBytes:       1 << 20,
		MessageRateLimit:      30,
		SendBuffer:            64,
		PipelineTimeout:       10 * time.Second,
		APIRateLimit:          120,
		LoginRateLimit:        10,
		RegisterRateLimit:     10,
		RegisterCodeRateLimit: 5,
		MailTimeout:           30 * time.Second,
		UploadDir:             "uploads",
		UploadMaxBytes:        5 << 20,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
}
