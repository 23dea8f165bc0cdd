// Package idgen assigns identifiers to new cases. Two strategies exist:
// a sequential counter rendered as PREFIX0001, and a random token.
package idgen

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/spec-kit/case-service/internal/domain"
)

// Generator hands out a new identifier that collides with none of existing.
type Generator interface {
	NextID(ctx context.Context, existing []domain.Case) (string, error)
}

// CounterStore keeps the sequence behind CounterGenerator. Next returns a
// number strictly greater than both floor and every number it returned
// before, and persists that choice.
type CounterStore interface {
	Next(ctx context.Context, floor int64) (int64, error)
}

// CounterGenerator produces PREFIX0001, PREFIX0002, ... and keeps the
// counter ahead of the highest id already present in the store.
type CounterGenerator struct {
	prefix  string
	store   CounterStore
	pattern *regexp.Regexp
}

// NewCounterGenerator builds a counter-based generator.
func NewCounterGenerator(prefix string, store CounterStore) *CounterGenerator {
	return &CounterGenerator{
		prefix:  prefix,
		store:   store,
		pattern: regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(prefix) + `(\d+)$`),
	}
}

func (g *CounterGenerator) NextID(ctx context.Context, existing []domain.Case) (string, error) {
	n, err := g.store.Next(ctx, g.highest(existing))
	if err != nil {
		return "", fmt.Errorf("next case number: %w", err)
	}
	return FormatCounterID(g.prefix, n), nil
}

func (g *CounterGenerator) highest(existing []domain.Case) int64 {
	var max int64
	for _, c := range existing {
		m := g.pattern.FindStringSubmatch(c.ID)
		if m == nil {
			continue
		}
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err == nil && n > max {
			max = n
		}
	}
	return max
}

// FormatCounterID renders n zero padded to at least four digits.
func FormatCounterID(prefix string, n int64) string {
	return fmt.Sprintf("%s%04d", prefix, n)
}

// TokenGenerator produces PREFIX-XXXXXXXX ids from random uuids.
type TokenGenerator struct {
	prefix string
}

// NewTokenGenerator builds a random-token generator.
func NewTokenGenerator(prefix string) *TokenGenerator {
	return &TokenGenerator{prefix: prefix}
}

const tokenAttempts = 8

func (g *TokenGenerator) NextID(ctx context.Context, existing []domain.Case) (string, error) {
	taken := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		taken[c.ID] = struct{}{}
	}
	for i := 0; i < tokenAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		id := g.prefix + "-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
		if _, dup := taken[id]; !dup {
			return id, nil
		}
	}
	return "", fmt.Errorf("no unique token after %d attempts", tokenAttempts)
}
