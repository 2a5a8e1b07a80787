package domain

import (
	"fmt"
	"strings"
)

// ErrorPrefix marks diagnostic text embedded into rendered output.
const ErrorPrefix = "hitassext:ERROR: "

// Value is the result of reading a variable. It holds either the stored value or a
// diagnostic that stands in for it. Diagnostics are meant to be emitted inline so a single
// bad reference degrades the output instead of aborting the render pass.
type Value struct {
	raw        any
	diagnostic bool
}

// Found wraps a stored value.
func Found(v any) Value {
	return Value{raw: v}
}

// Diagnostic wraps msg as diagnostic text carrying ErrorPrefix.
func Diagnostic(msg string) Value {
	return Value{raw: ErrorPrefix + msg, diagnostic: true}
}

// Raw returns the stored value, or the diagnostic text for a diagnostic.
func (v Value) Raw() any {
	return v.raw
}

// IsDiagnostic reports whether v stands in for a failed read.
func (v Value) IsDiagnostic() bool {
	return v.diagnostic
}

func (v Value) String() string {
	if s, ok := v.raw.(string); ok {
		return s
	}
	return fmt.Sprint(v.raw)
}

// IsDiagnosticText reports whether s is diagnostic text, e.g. after it has been embedded
// into output and read back.
func IsDiagnosticText(s string) bool {
	return strings.HasPrefix(s, ErrorPrefix)
}
