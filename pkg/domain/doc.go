/*
Package domain contains the core value types shared by the render-session store and its
collaborators.

It is kept free of I/O and persistence concerns.

# Key Entities

  - Value: the tagged result of a read, either a stored value or a rendered diagnostic.
  - FaultKind: the classes of soft, recoverable data conditions a store reports.
  - PreconditionError: a caller contract breach that aborts the current operation.
  - Snapshot: a read-only copy of a session, used for inspection.
*/
package domain
