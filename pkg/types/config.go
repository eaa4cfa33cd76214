package types

// Config holds backend selection and parameters for Service.Attach.
type Config struct {
	Backend string       `json:"backend" yaml:"backend"`
	DataDir string       `json:"data_dir" yaml:"data_dir"`
	SQLite  SQLiteConfig `json:"sqlite,omitempty" yaml:"sqlite,omitempty"`
}

// SQLiteConfig holds tuning knobs for the SQLite runtime.
type SQLiteConfig struct {
	// BusyTimeoutMS is how long a statement waits on a locked database
	// before failing with ErrServiceUnavailable. Zero means the default.
	BusyTimeoutMS int `json:"busy_timeout_ms,omitempty" yaml:"busy_timeout_ms,omitempty"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// DefaultBusyTimeoutMS is used when SQLiteConfig.BusyTimeoutMS is zero.
const DefaultBusyTimeoutMS = 5000

// GetBusyTimeoutMS returns the configured busy timeout or the default.
func (c SQLiteConfig) GetBusyTimeoutMS() int {
	if c.BusyTimeoutMS <= 0 {
		return DefaultBusyTimeoutMS
	}
	return c.BusyTimeoutMS
}

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	return nil
}
