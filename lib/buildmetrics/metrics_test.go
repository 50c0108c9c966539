// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package buildmetrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bureau-foundation/ftl/lib/model"
)

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.Walked(12, 1)
	r.Stale(model.RoutePage)
	r.Stale(model.RoutePage)
	r.Stale(model.RouteStylesheet)
	r.Rendered(model.RoutePage)
	r.RenderFailed(model.RoutePage)
	r.Finished(1500 * time.Millisecond)

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"files walked", testutil.ToFloat64(r.filesWalked), 12},
		{"walk failures", testutil.ToFloat64(r.walkFailures), 1},
		{"stale pages", testutil.ToFloat64(r.unitsStale.WithLabelValues("page")), 2},
		{"stale stylesheets", testutil.ToFloat64(r.unitsStale.WithLabelValues("stylesheet")), 1},
		{"rendered pages", testutil.ToFloat64(r.unitsRendered.WithLabelValues("page")), 1},
		{"failed pages", testutil.ToFloat64(r.renderFailures.WithLabelValues("page")), 1},
		{"duration", testutil.ToFloat64(r.buildDuration), 1.5},
	}
	for _, check := range checks {
		if check.got != check.want {
			t.Errorf("%s = %v, want %v", check.name, check.got, check.want)
		}
	}
}

func TestRecordersDoNotShareState(t *testing.T) {
	first, second := New(), New()
	first.Walked(5, 0)
	if got := testutil.ToFloat64(second.filesWalked); got != 0 {
		t.Fatalf("second recorder saw %v files", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.Walked(3, 0)
	path := filepath.Join(t.TempDir(), "ftl.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading textfile: %v", err)
	}
	if !strings.Contains(string(data), "ftl_files_walked_total 3") {
		t.Fatalf("textfile lacks the walk counter:\n%s", data)
	}
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.Walked(1, 1)
	r.Stale(model.RoutePage)
	r.Rendered(model.RoutePage)
	r.RenderFailed(model.RoutePage)
	r.Finished(time.Second)
	if err := r.WriteTextfile(filepath.Join(t.TempDir(), "x")); err != nil {
		t.Fatalf("WriteTextfile on nil recorder: %v", err)
	}
}
