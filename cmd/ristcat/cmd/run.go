package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// statsFunc returns the latest snapshot, if any.
type statsFunc func() (any, bool)

// runSession runs body alongside the stats reporter and, when configured,
// the metrics endpoint. It returns when body does; the helpers are
// stopped and their errors joined into the result.
func runSession(ctx context.Context, e *runEnv, statsOut io.Writer, stats statsFunc, collector prometheus.Collector, body func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return body(gctx)
	})
	g.Go(func() error {
		reportStats(gctx, statsOut, e.config.StatsInterval, stats)
		return nil
	})
	if e.metricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(gctx, e.metricsAddr, collector)
		})
	}
	return g.Wait()
}

// reportStats writes each new snapshot as one JSON line.
func reportStats(ctx context.Context, w io.Writer, interval time.Duration, stats statsFunc) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	enc := json.NewEncoder(w)
	var last any
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		st, ok := stats()
		if !ok || st == last {
			continue
		}
		last = st
		if err := enc.Encode(st); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "reportStats",
				"error":    err.Error(),
			}).Warn("Failed to write stats")
			return
		}
	}
}

func serveMetrics(ctx context.Context, addr string, collector prometheus.Collector) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(collector); err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logrus.WithFields(logrus.Fields{
		"function": "serveMetrics",
		"address":  addr,
	}).Info("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
