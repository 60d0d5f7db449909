package domain

import "time"

// Config holds the complete DARY configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Component configurations
	Cache   CacheConfig   `json:"cache"`
	History HistoryConfig `json:"history"`
	Batch   BatchConfig   `json:"batch"`
	Screens ScreensConfig `json:"screens"`

	// Observability
	Logging LoggingConfig `json:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host" env:"DARY_HOST" env-default:"0.0.0.0"`
	Port         int    `json:"port" env:"DARY_PORT" env-default:"8080" validate:"gt=0,lte=65535"`
	ReadTimeout  int    `json:"readTimeout" env:"DARY_READ_TIMEOUT" env-default:"30"`   // seconds
	WriteTimeout int    `json:"writeTimeout" env:"DARY_WRITE_TIMEOUT" env-default:"30"` // seconds

	// MaxUploadBytes caps batch upload bodies.
	MaxUploadBytes int64 `json:"maxUploadBytes" env:"DARY_MAX_UPLOAD_BYTES" env-default:"10485760" validate:"gt=0"`

	// CORSOrigins lists the browser origins allowed to call the API.
	CORSOrigins []string `json:"corsOrigins" env:"DARY_CORS_ORIGINS" env-separator:"," env-default:"*"`
}

// HistoryConfig bounds the per-session evaluation history.
type HistoryConfig struct {
	MaxEntries int           `json:"maxEntries" env:"DARY_HISTORY_MAX_ENTRIES" env-default:"200" validate:"gt=0"`
	TTL        time.Duration `json:"ttl" env:"DARY_HISTORY_TTL" env-default:"24h"`
}

// BatchConfig holds batch runner settings.
type BatchConfig struct {
	Workers int `json:"workers" env:"DARY_BATCH_WORKERS" env-default:"8" validate:"gt=0"`
	MaxRows int `json:"maxRows" env:"DARY_BATCH_MAX_ROWS" env-default:"10000" validate:"gt=0"`
}

// ScreensConfig points at the optional screening rules file.
type ScreensConfig struct {
	File string `json:"file" env:"DARY_SCREENS_FILE"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level" env:"DARY_LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	Format string `json:"format" env:"DARY_LOG_FORMAT" env-default:"json" validate:"oneof=json text"`
}

// DefaultConfig returns the configuration used when no environment is set.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeout:    30,
			WriteTimeout:   30,
			MaxUploadBytes: 10 << 20,
			CORSOrigins:    []string{"*"},
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
			RedisAddr:    "localhost:6379",
		},
		History: HistoryConfig{
			MaxEntries: 200,
			TTL:        24 * time.Hour,
		},
		Batch: BatchConfig{
			Workers: 8,
			MaxRows: 10000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
