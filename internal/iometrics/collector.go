// Package iometrics exposes progress of a run as Prometheus metrics.
package iometrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gnames/cinder/pkg/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector keeps metrics of a run in its own registry.
type Collector struct {
	registry *prometheus.Registry

	active       *prometheus.GaugeVec
	years        *prometheus.CounterVec
	yearDuration prometheus.Histogram
	rows         prometheus.Counter
	fetchBytes   prometheus.Counter
	fetchRetries prometheus.Counter
}

// New creates a collector.
func New() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,

		active: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cinder_pipelines_active",
			Help: "Number of year pipelines in a stage",
		}, []string{"stage"}),

		years: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cinder_years_total",
			Help: "Number of year pipelines that reached a terminal stage",
		}, []string{"result"}),

		yearDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cinder_year_duration_seconds",
			Help:    "Time taken by a year pipeline",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		}),

		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cinder_rows_imported_total",
			Help: "Total number of rows loaded into the database",
		}),

		fetchBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cinder_fetch_bytes_total",
			Help: "Total bytes of downloaded artifacts",
		}),

		fetchRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cinder_fetch_retries_total",
			Help: "Total number of repeated download attempts",
		}),
	}

	registry.MustRegister(
		c.active,
		c.years,
		c.yearDuration,
		c.rows,
		c.fetchBytes,
		c.fetchRetries,
	)
	registry.MustRegister(prometheus.NewGoCollector())

	return c
}

// Registry returns the registry with all metrics of the collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// StageChanged follows transitions of year pipelines. Queued
// pipelines are not counted as active.
func (c *Collector) StageChanged(_ int, from, to pipeline.Stage) {
	if from != pipeline.Queued && !from.Terminal() {
		c.active.WithLabelValues(from.String()).Dec()
	}
	if to.Terminal() {
		c.years.WithLabelValues(to.String()).Inc()
		return
	}
	c.active.WithLabelValues(to.String()).Inc()
}

// ObserveYear records the duration of a finished year pipeline.
func (c *Collector) ObserveYear(d time.Duration) {
	c.yearDuration.Observe(d.Seconds())
}

// AddRows counts loaded rows.
func (c *Collector) AddRows(n int64) {
	c.rows.Add(float64(n))
}

// AddFetchBytes counts downloaded bytes.
func (c *Collector) AddFetchBytes(n int64) {
	c.fetchBytes.Add(float64(n))
}

// IncFetchRetries counts repeated download attempts.
func (c *Collector) IncFetchRetries() {
	c.fetchRetries.Inc()
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Serve runs the metrics endpoint on addr until ctx is done.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutCtx)
	}()

	slog.Info("Starting Prometheus metrics server", "addr", addr)
	err := server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
