package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/georgfedermann/hit2assext/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestValue_Found(t *testing.T) {
	v := domain.Found(42)
	assert.False(t, v.IsDiagnostic())
	assert.Equal(t, 42, v.Raw())
	assert.Equal(t, "42", v.String())
}

func TestValue_Diagnostic(t *testing.T) {
	v := domain.Diagnostic("IndexOutOfBounds")
	assert.True(t, v.IsDiagnostic())
	assert.Equal(t, "hitassext:ERROR: IndexOutOfBounds", v.Raw())
	assert.True(t, domain.IsDiagnosticText(v.String()))
}

func TestValue_FoundStringWithPrefixIsNotDiagnostic(t *testing.T) {
	// A stored value that happens to look like a diagnostic is still a stored value.
	v := domain.Found(domain.ErrorPrefix + "x")
	assert.False(t, v.IsDiagnostic())
	assert.True(t, domain.IsDiagnosticText(v.String()))
}

func TestPreconditionError_Is(t *testing.T) {
	err := domain.Precondition("AppendAll", "no target list %q", "items")
	assert.ErrorIs(t, err, domain.ErrPrecondition)
	assert.Equal(t, `AppendAll: precondition violated: no target list "items"`, err.Error())

	wrapped := fmt.Errorf("render: %w", err)
	var pe *domain.PreconditionError
	assert.True(t, errors.As(wrapped, &pe))
	assert.Equal(t, "AppendAll", pe.Op)
	assert.NotErrorIs(t, domain.ErrSessionNotFound, domain.ErrPrecondition)
}

func TestSnapshot_CloneIsDeep(t *testing.T) {
	s := &domain.Snapshot{
		ID:      "a",
		Lists:   map[string][]any{"l": {"x"}, "empty": {}},
		Scalars: map[string]any{"s": "v"},
	}
	c := s.Clone()
	c.Lists["l"][0] = "changed"
	c.Scalars["s"] = "changed"

	assert.Equal(t, "x", s.Lists["l"][0])
	assert.Equal(t, "v", s.Scalars["s"])
	assert.NotNil(t, c.Lists["empty"])
}
