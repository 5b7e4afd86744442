package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"

	appLog "vhevents/internal/log"
	"vhevents/internal/metrics"
	"vhevents/internal/web"
)

// Serve regenerates the tables on the configured cron schedule and serves
// the latest result over HTTP until ctx is cancelled. A failed refresh
// keeps the previous result.
func (a *App) Serve(ctx context.Context, opts Options) error {
	if _, err := cron.ParseStandard(a.cfg.RefreshCron); err != nil {
		return fmt.Errorf("refresh schedule %q: %w", a.cfg.RefreshCron, err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.MustRegister(registry)

	store := &web.Store{}
	var mu sync.Mutex
	refresh := func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()

		res, err := a.Run(ctx, opts)
		if err != nil {
			return err
		}
		if err := a.WriteOutputs(res, opts); err != nil {
			return err
		}
		store.Set(res)
		return nil
	}

	if err := refresh(ctx); err != nil {
		appLog.Error("initial refresh failed", err)
	}

	c := cron.New(cron.WithLocation(a.loc))
	if _, err := c.AddFunc(a.cfg.RefreshCron, func() {
		appLog.Info("scheduled refresh starting")
		if err := refresh(ctx); err != nil {
			appLog.Error("scheduled refresh failed", err)
		}
	}); err != nil {
		return err
	}
	c.Start()
	defer func() {
		<-c.Stop().Done()
	}()

	appLog.Info("refresh scheduled", "cron", a.cfg.RefreshCron, "timezone", a.loc.String())
	return web.NewServer(a.cfg, store, refresh, registry).ListenAndServe(ctx)
}
