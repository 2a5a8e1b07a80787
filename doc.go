/*
Package hit2assext provides the per-session variable store of a template renderer, plus
the pool that owns the stores and the plumbing to operate that pool.

A render pass works against one session.RenderContext. It declares and appends to list
variables, sets and reads scalar variables, and stamps emitted elements from the
session's sequence counter. A read of an undeclared variable never aborts the render: it
yields a domain.Value diagnostic, text prefixed with "hitassext:ERROR: ", which the
renderer embeds into its output. Only caller contract breaches such as blank names are
returned as errors.

# Usage

Build a runtime from configuration, create a session per render and remove it when
the render completes. Sessions that are never removed are reaped by the sweeper once
they exceed the configured age.

	package main

	import (
		"context"
		"log"

		"github.com/georgfedermann/hit2assext"
		"github.com/georgfedermann/hit2assext/pkg/config"
	)

	func main() {
		cfg, err := config.Load("hitctl.yaml")
		if err != nil {
			log.Fatal(err)
		}
		rt, err := hit2assext.New(cfg)
		if err != nil {
			log.Fatal(err)
		}
		defer rt.Close()

		ctx := context.Background()
		rc := rt.Manager.Create(ctx)
		rc.AppendListValue("rows", "first")
		seq := rc.CurrentSequence()
		_ = seq
		_ = rt.Manager.Remove(ctx, rc.ID())
	}

# Packages

  - pkg/session: RenderContext, Manager and Sweeper.
  - pkg/domain: Value, FaultKind, Snapshot and the error sentinels.
  - pkg/ports: Reporter, Clock and SnapshotStore interfaces.
  - pkg/adapters: snapshot stores (memory, redis, file) and the admin HTTP API.
  - pkg/persistence/middleware: masking and encryption of archived snapshots.
  - pkg/config: file and environment configuration.
*/
package hit2assext
