package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/skein/pkg/domain"
	"github.com/aretw0/skein/pkg/ports"
)

// Mask replaces the value of every masked variable.
const Mask = "***"

type maskingMiddleware struct {
	next     ports.SnapshotStore
	patterns []*regexp.Regexp
}

// NewMaskingMiddleware creates a middleware that masks, before saving, the
// values of story variables whose names match any of the patterns. Nested
// maps are walked too. The caller's snapshot is left untouched, and a masked
// session resumes with the mask in place of the original value.
func NewMaskingMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid mask pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &maskingMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *maskingMiddleware) Save(ctx context.Context, sessionID string, snapshot *domain.Snapshot) error {
	cloned := snapshot.Clone()
	cloned.Variables = deepCopyMap(snapshot.Variables)
	maskMap(cloned.Variables, m.patterns)

	return m.next.Save(ctx, sessionID, cloned)
}

func (m *maskingMiddleware) Load(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *maskingMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *maskingMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if sub, ok := v.(map[string]any); ok {
			out[k] = deepCopyMap(sub)
		} else {
			out[k] = v
		}
	}
	return out
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		masked := false
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = Mask
				masked = true
				break
			}
		}
		if sub, ok := v.(map[string]any); ok && !masked {
			maskMap(sub, patterns)
		}
	}
}
