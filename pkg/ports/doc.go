/*
Package ports defines the driven ports (interfaces) of the render-session store.

These interfaces decouple the store and its session pool from logging, time and storage
implementations.

# Key Interfaces

  - Reporter: Receives soft faults (missing variables, bad indices) raised during a render.
  - Clock: Supplies the current time, so session age can be tested deterministically.
  - SnapshotStore: Archives snapshots of reaped sessions for later inspection.
*/
package ports
