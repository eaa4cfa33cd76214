package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/tablestore/internal/metrics"
	"github.com/mesh-intelligence/tablestore/internal/paths"
	"github.com/mesh-intelligence/tablestore/pkg/tableclient"
	"github.com/mesh-intelligence/tablestore/pkg/types"
)

// Config keys.
const (
	cfgKeyBackend          = "backend"
	cfgKeyDataDir          = "data_dir"
	cfgKeyLogLevel         = "log_level"
	cfgKeyTimeout          = "timeout"
	cfgKeyServerTimeout    = "server_timeout"
	cfgKeyBusyTimeoutMS    = "sqlite.busy_timeout_ms"
	cfgKeyRetryMaxAttempts = "retry.max_attempts"
	cfgKeyRetryBaseDelay   = "retry.base_delay"
	cfgKeyMetricsExporter  = "metrics.exporter"
	cfgKeyMetricsTextfile  = "metrics.textfile"
)

const envPrefix = "TABLESTORE"

// loadConfig reads config.yaml from configDir. A missing file is not an
// error. TABLESTORE_* environment variables override file values, with
// dots in keys written as underscores (TABLESTORE_RETRY_MAX_ATTEMPTS).
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyLogLevel, "warn")
	v.SetDefault(cfgKeyTimeout, time.Duration(0))
	v.SetDefault(cfgKeyServerTimeout, time.Duration(0))
	v.SetDefault(cfgKeyBusyTimeoutMS, types.DefaultBusyTimeoutMS)
	v.SetDefault(cfgKeyRetryMaxAttempts, 1)
	v.SetDefault(cfgKeyRetryBaseDelay, 100*time.Millisecond)
	v.SetDefault(cfgKeyMetricsExporter, metrics.ExporterPrometheus)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(paths.ConfigFile(configDir))
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// backendConfig builds the runtime configuration.
func (a *app) backendConfig() (types.Config, error) {
	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, a.config.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg := types.Config{
		Backend: a.config.GetString(cfgKeyBackend),
		DataDir: dataDir,
		SQLite:  types.SQLiteConfig{BusyTimeoutMS: a.config.GetInt(cfgKeyBusyTimeoutMS)},
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("config %s %q: %w", cfgKeyBackend, cfg.Backend, err)
	}
	return cfg, nil
}

// requestOptions returns the per-operation options from configuration, or
// nil when none are set.
func (a *app) requestOptions() *types.RequestOptions {
	timeout := a.config.GetDuration(cfgKeyTimeout)
	server := a.config.GetDuration(cfgKeyServerTimeout)
	if timeout == 0 && server == 0 {
		return nil
	}
	return &types.RequestOptions{MaximumExecutionTime: timeout, ServerTimeout: server}
}

// retryPolicy returns the configured retry policy. One attempt means no
// retries.
func (a *app) retryPolicy() types.RetryPolicy {
	attempts := a.config.GetInt(cfgKeyRetryMaxAttempts)
	if attempts <= 1 {
		return tableclient.NoRetry
	}
	return tableclient.NewBackoffPolicy(a.config.GetDuration(cfgKeyRetryBaseDelay), uint64(attempts-1))
}

// metricsSink returns a sink when metrics.textfile is set, else nil.
func (a *app) metricsSink() (*metrics.Sink, error) {
	if a.config.GetString(cfgKeyMetricsTextfile) == "" {
		return nil, nil
	}
	sink, err := metrics.NewSink(a.config.GetString(cfgKeyMetricsExporter))
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", cfgKeyMetricsExporter, err)
	}
	return sink, nil
}
