package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/georgfedermann/hit2assext/pkg/domain"
	"github.com/georgfedermann/hit2assext/pkg/ports"
)

// Mask replaces every masked value in an archived snapshot.
const Mask = "***"

type piiMiddleware struct {
	next     ports.SnapshotStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks the values of scalars, and every
// element of lists, whose name matches one of the patterns.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid mask pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, snap *domain.Snapshot) error {
	// The caller may still hold snap; mask a copy.
	masked := snap.Clone()

	for name, v := range masked.Scalars {
		if m.matches(name) {
			masked.Scalars[name] = Mask
			continue
		}
		if sub, ok := v.(map[string]any); ok {
			masked.Scalars[name] = m.maskMap(sub)
		}
	}
	for name, list := range masked.Lists {
		if !m.matches(name) {
			continue
		}
		for i := range list {
			list[i] = Mask
		}
	}

	return m.next.Save(ctx, masked)
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) matches(name string) bool {
	for _, p := range m.patterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

// maskMap returns a masked copy of a structured scalar value.
func (m *piiMiddleware) maskMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch {
		case m.matches(k):
			out[k] = Mask
		default:
			if sub, ok := v.(map[string]any); ok {
				out[k] = m.maskMap(sub)
			} else {
				out[k] = v
			}
		}
	}
	return out
}
