// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package buildmetrics counts what a build did, in Prometheus form.
//
// Every Recorder owns a private registry, so concurrent builds in one
// process never share counters. A CLI run can write the registry in
// text exposition format for a node exporter textfile collector.
package buildmetrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bureau-foundation/ftl/lib/model"
)

const namespace = "ftl"

// Recorder collects the metrics of one build. A nil *Recorder is valid
// and records nothing.
type Recorder struct {
	registry       *prometheus.Registry
	filesWalked    prometheus.Counter
	walkFailures   prometheus.Counter
	unitsStale     *prometheus.CounterVec
	unitsRendered  *prometheus.CounterVec
	renderFailures *prometheus.CounterVec
	buildDuration  prometheus.Gauge
}

// New returns a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		filesWalked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_walked_total",
			Help:      "Input files interned by the walker.",
		}),
		walkFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "walk_failures_total",
			Help:      "Files or directories the walker had to leave out.",
		}),
		unitsStale: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_stale_total",
			Help:      "Render units found stale, by route kind.",
		}, []string{"kind"}),
		unitsRendered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_rendered_total",
			Help:      "Render units rendered successfully, by route kind.",
		}, []string{"kind"}),
		renderFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_failures_total",
			Help:      "Render units whose render failed, by route kind.",
		}, []string{"kind"}),
		buildDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Wall time of the most recent build.",
		}),
	}
	r.registry.MustRegister(
		r.filesWalked,
		r.walkFailures,
		r.unitsStale,
		r.unitsRendered,
		r.renderFailures,
		r.buildDuration,
	)
	return r
}

// Registry returns the registry holding the recorder's metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Walked records the outcome of a walk.
func (r *Recorder) Walked(files, failures int) {
	if r == nil {
		return
	}
	r.filesWalked.Add(float64(files))
	r.walkFailures.Add(float64(failures))
}

// Stale records one stale unit.
func (r *Recorder) Stale(kind model.RouteKind) {
	if r == nil {
		return
	}
	r.unitsStale.WithLabelValues(kind.String()).Inc()
}

// Rendered records one successful render.
func (r *Recorder) Rendered(kind model.RouteKind) {
	if r == nil {
		return
	}
	r.unitsRendered.WithLabelValues(kind.String()).Inc()
}

// RenderFailed records one failed render.
func (r *Recorder) RenderFailed(kind model.RouteKind) {
	if r == nil {
		return
	}
	r.renderFailures.WithLabelValues(kind.String()).Inc()
}

// Finished records the build's wall time.
func (r *Recorder) Finished(elapsed time.Duration) {
	if r == nil {
		return
	}
	r.buildDuration.Set(elapsed.Seconds())
}

// WriteTextfile writes every metric to path in text exposition format.
// The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("buildmetrics: writing %s: %w", path, err)
	}
	return nil
}
