package models

import "time"

// CorsConfig is the hot-reloaded CORS policy row
type CorsConfig struct {
	ConfigKey        string    `json:"config_key"`
	AllowedOrigins   string    `json:"allowed_origins"` // comma separated
	AllowCredentials bool      `json:"allow_credentials"`
	MaxAge           int       `json:"max_age"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// RatelimitConfig is the hot-reloaded request rate, in ulule/limiter
// notation ("5-S", "100-M", "1000-H").
type RatelimitConfig struct {
	ConfigKey string    `json:"config_key"`
	Rate      string    `json:"rate"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Config keys for the single-row runtime tables
const (
	DefaultCorsConfigKey      = "default"
	DefaultRatelimitConfigKey = "default"
)
