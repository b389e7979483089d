// Package rate supplies conversion rates between currency codes, expressed as
// target smallest-units per source smallest-unit.
package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupported means no rate exists for the requested pair.
var ErrUnsupported = errors.New("rate: unsupported conversion")

// Provider yields the rate for one currency pair.
type Provider interface {
	Rate(ctx context.Context, from, to string) (float64, error)
}

func pairKey(from, to string) string {
	return fmt.Sprintf("%s/%s", strings.ToUpper(strings.TrimSpace(from)), strings.ToUpper(strings.TrimSpace(to)))
}

type static struct {
	pairs map[string]float64
}

// NewStatic builds a table-backed provider. Keys are "FROM/TO". Identity and
// inverse pairs are answered without explicit entries.
func NewStatic(pairs map[string]float64) Provider {
	normalized := make(map[string]float64, len(pairs))
	for key, value := range pairs {
		from, to, ok := strings.Cut(key, "/")
		if !ok || value <= 0 {
			continue
		}
		normalized[pairKey(from, to)] = value
	}
	return &static{pairs: normalized}
}

func (s *static) Rate(ctx context.Context, from, to string) (float64, error) {
	if strings.EqualFold(strings.TrimSpace(from), strings.TrimSpace(to)) {
		return 1, nil
	}
	if r, ok := s.pairs[pairKey(from, to)]; ok {
		return r, nil
	}
	if r, ok := s.pairs[pairKey(to, from)]; ok && r != 0 {
		return 1 / r, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupported, pairKey(from, to))
}
