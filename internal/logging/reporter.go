package logging

import (
	"context"
	"log/slog"

	"github.com/georgfedermann/hit2assext/pkg/domain"
)

// Reporter logs soft faults from a render session at the severity of their kind.
type Reporter struct {
	logger *slog.Logger
}

// NewReporter wraps logger. A nil logger discards reports.
func NewReporter(logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = NewNop()
	}
	return &Reporter{logger: logger}
}

// Report implements ports.Reporter.
func (r *Reporter) Report(kind domain.FaultKind, msg string, args ...any) {
	r.logger.Log(context.Background(), kind.Level(), msg, append([]any{"fault", string(kind)}, args...)...)
}
