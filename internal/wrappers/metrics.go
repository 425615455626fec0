// Package wrappers provides decorator fuseutil.FileSystem implementations
// for metrics and tracing, so the driver itself stays free of
// observability concerns.
//
// Grounded on gcsfuse's internal/fs/wrappers monitoring/tracing
// decorators (internal/fs/wrappers/monitoring_test.go,
// internal/fs/wrappers/tracing_test.go): a struct embedding the wrapped
// fuseutil.FileSystem and overriding the handful of methods worth
// instrumenting, letting embedding satisfy the rest of the interface.
package wrappers

import (
	"context"
	"time"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	opDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "remotefs_fuse",
		Name:      "op_duration_seconds",
		Help:      "Latency of FUSE operations handled by the driver.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op", "result"})

	opsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "remotefs_fuse",
		Name:      "ops_total",
		Help:      "Count of FUSE operations handled by the driver, by result.",
	}, []string{"op", "result"})
)

// MustRegister registers this package's collectors with reg. Call once
// at startup with prometheus.DefaultRegisterer or a dedicated registry.
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(opDuration, opsTotal)
}

func observe(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	opDuration.WithLabelValues(op, result).Observe(time.Since(start).Seconds())
	opsTotal.WithLabelValues(op, result).Inc()
}

// Monitoring wraps a fuseutil.FileSystem, recording latency and
// success/error counts for the operations most worth watching: the ones
// on the hot path of ordinary file I/O. Everything else passes straight
// through via the embedded FileSystem.
type Monitoring struct {
	fuseutil.FileSystem
}

func NewMonitoring(wrapped fuseutil.FileSystem) *Monitoring {
	return &Monitoring{FileSystem: wrapped}
}

func (m *Monitoring) LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) (err error) {
	start := time.Now()
	defer func() { observe("lookup", start, err) }()
	return m.FileSystem.LookUpInode(ctx, op)
}

func (m *Monitoring) GetInodeAttributes(ctx context.Context, op *fuseops.GetInodeAttributesOp) (err error) {
	start := time.Now()
	defer func() { observe("getattr", start, err) }()
	return m.FileSystem.GetInodeAttributes(ctx, op)
}

func (m *Monitoring) ReadFile(ctx context.Context, op *fuseops.ReadFileOp) (err error) {
	start := time.Now()
	defer func() { observe("read", start, err) }()
	return m.FileSystem.ReadFile(ctx, op)
}

func (m *Monitoring) WriteFile(ctx context.Context, op *fuseops.WriteFileOp) (err error) {
	start := time.Now()
	defer func() { observe("write", start, err) }()
	return m.FileSystem.WriteFile(ctx, op)
}

func (m *Monitoring) ReadDir(ctx context.Context, op *fuseops.ReadDirOp) (err error) {
	start := time.Now()
	defer func() { observe("readdir", start, err) }()
	return m.FileSystem.ReadDir(ctx, op)
}
