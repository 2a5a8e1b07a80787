package ports

import "github.com/georgfedermann/hit2assext/pkg/domain"

// Reporter is the sink a store calls on soft faults.
// Implementations must be safe for concurrent use.
type Reporter interface {
	Report(kind domain.FaultKind, msg string, args ...any)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(kind domain.FaultKind, msg string, args ...any)

// Report calls f.
func (f ReporterFunc) Report(kind domain.FaultKind, msg string, args ...any) {
	f(kind, msg, args...)
}

// NopReporter drops every report.
type NopReporter struct{}

// Report does nothing.
func (NopReporter) Report(domain.FaultKind, string, ...any) {}
