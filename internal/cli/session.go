package cli

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/tablestore/pkg/sqlite"
	"github.com/mesh-intelligence/tablestore/pkg/tableclient"
	"github.com/mesh-intelligence/tablestore/pkg/types"
)

// attach resolves the data directory and attaches a backend. The caller
// must release it with detach.
func (a *app) attach() (types.Service, error) {
	cfg, err := a.backendConfig()
	if err != nil {
		return nil, userError(err)
	}
	backend := sqlite.NewBackend()
	if err := backend.Attach(cfg); err != nil {
		return nil, sysError(fmt.Errorf("attach backend: %w", err))
	}
	a.logger.Debug("backend attached", "backend", cfg.Backend, "data_dir", cfg.DataDir)
	return backend, nil
}

// client returns a facade for the named table on backend.
func (a *app) client(backend types.Service, table string) (*tableclient.Client, error) {
	rt, err := backend.Table(table)
	if err != nil {
		return nil, userError(err)
	}
	opts := []tableclient.Option{
		tableclient.WithLogger(a.logger),
		tableclient.WithRetryPolicy(a.retryPolicy()),
	}
	if a.metrics != nil {
		opts = append(opts, tableclient.WithObserver(a.metrics.Observer()))
	}
	return tableclient.New(rt, opts...)
}

// detach releases backend and writes the metrics textfile when one is
// configured. Metrics problems are logged, not returned.
func (a *app) detach(backend types.Service) {
	if err := backend.Detach(); err != nil {
		a.logger.Warn("detach backend", "err", err)
	}
	if a.metrics == nil {
		return
	}
	if err := a.metrics.WriteTextfile(a.config.GetString(cfgKeyMetricsTextfile)); err != nil {
		a.logger.Warn("write metrics", "err", err)
	}
	if err := a.metrics.Close(context.Background()); err != nil {
		a.logger.Warn("close metrics", "err", err)
	}
}

// withTable attaches a backend, runs fn against the named table and
// detaches.
func (a *app) withTable(table string, fn func(c *tableclient.Client) error) error {
	backend, err := a.attach()
	if err != nil {
		return err
	}
	defer a.detach(backend)

	c, err := a.client(backend, table)
	if err != nil {
		return err
	}
	return fn(c)
}
