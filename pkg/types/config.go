package types

import "time"

// HTTPConfig holds shared HTTP settings for outbound requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout. Zero disables it.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "litreview/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// BackendConfig locates the literature-review service and shapes how the
// client talks to it.
type BackendConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the service origin, e.g. "http://localhost:8000".
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// SearchPath is the search endpoint path (default "/api/search").
	SearchPath string `json:"search_path" yaml:"search_path" mapstructure:"search_path"`

	// FiltersPath is the filter endpoint path (default "/api/filters").
	FiltersPath string `json:"filters_path" yaml:"filters_path" mapstructure:"filters_path"`

	// APIKey is sent as a bearer token when set.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxRetries is the number of retries on HTTP 429/503. Zero sends each
	// request exactly once.
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// RateLimit caps outbound requests per second. Zero disables the limiter.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ServeConfig holds settings for the web front end.
type ServeConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// AllowedOrigins lists CORS origins for the JSON state endpoint.
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// Config groups all settings read from the config file and environment.
type Config struct {
	Backend BackendConfig `json:"backend" yaml:"backend" mapstructure:"backend"`
	Serve   ServeConfig   `json:"serve" yaml:"serve" mapstructure:"serve"`
}

// Defaults used when neither the config file nor the environment sets a value.
const (
	DefaultBaseURL     = "http://localhost:8000"
	DefaultSearchPath  = "/api/search"
	DefaultFiltersPath = "/api/filters"
	DefaultTimeout     = 10 * time.Minute
	DefaultUserAgent   = "litreview/0.1"
	DefaultServeAddr   = ":8080"
)

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	return Config{
		Backend: BackendConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   DefaultTimeout,
				UserAgent: DefaultUserAgent,
			},
			BaseURL:     DefaultBaseURL,
			SearchPath:  DefaultSearchPath,
			FiltersPath: DefaultFiltersPath,
		},
		Serve: ServeConfig{
			Addr:           DefaultServeAddr,
			AllowedOrigins: []string{"*"},
		},
	}
}
