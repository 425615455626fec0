package wrappers

import (
	"context"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"
	"go.opentelemetry.io/otel/trace"
)

// Tracing wraps a fuseutil.FileSystem, opening an OpenTelemetry span
// around each of the operations that cross the network boundary to the
// backend (everything else is cheap enough it would only add noise).
//
// Grounded on gcsfuse's internal/fs/wrappers tracedFS
// (internal/fs/wrappers/tracing_test.go), which pairs a wrapped
// fuseutil.FileSystem with a tracer handle the same way.
type Tracing struct {
	fuseutil.FileSystem
	tracer trace.Tracer
}

func NewTracing(wrapped fuseutil.FileSystem, tracer trace.Tracer) *Tracing {
	return &Tracing{FileSystem: wrapped, tracer: tracer}
}

func (t *Tracing) ReadFile(ctx context.Context, op *fuseops.ReadFileOp) error {
	ctx, span := t.tracer.Start(ctx, "driver.ReadFile")
	defer span.End()
	return t.FileSystem.ReadFile(ctx, op)
}

func (t *Tracing) WriteFile(ctx context.Context, op *fuseops.WriteFileOp) error {
	ctx, span := t.tracer.Start(ctx, "driver.WriteFile")
	defer span.End()
	return t.FileSystem.WriteFile(ctx, op)
}

func (t *Tracing) ReadDir(ctx context.Context, op *fuseops.ReadDirOp) error {
	ctx, span := t.tracer.Start(ctx, "driver.ReadDir")
	defer span.End()
	return t.FileSystem.ReadDir(ctx, op)
}

func (t *Tracing) LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) error {
	ctx, span := t.tracer.Start(ctx, "driver.LookUpInode")
	defer span.End()
	return t.FileSystem.LookUpInode(ctx, op)
}
