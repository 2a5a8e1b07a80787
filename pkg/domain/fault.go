package domain

import "log/slog"

// FaultKind classifies a soft data condition reported by a store.
type FaultKind string

const (
	FaultMissingList     FaultKind = "missing_list"
	FaultIndexOutOfRange FaultKind = "index_out_of_range"
	FaultMissingScalar   FaultKind = "missing_scalar"
	FaultMissingSource   FaultKind = "missing_source" // bulk copy from an undeclared list
)

// Level is the severity a fault is logged at. A missing copy source means there is
// nothing to copy and is only a warning.
func (k FaultKind) Level() slog.Level {
	if k == FaultMissingSource {
		return slog.LevelWarn
	}
	return slog.LevelError
}
