// Package invite generates team join codes.
package invite

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

const (
	DefaultLength = 8
	Alphabet      = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	MaxAttempts   = 64
)

var ErrExhausted = errors.New("invite: no free code found")

// CodeLookup reports whether a code is already taken by a team.
type CodeLookup interface {
	InviteCodeExists(ctx context.Context, code string) (bool, error)
}

type Generator struct {
	lookup      CodeLookup
	random      io.Reader
	length      int
	maxAttempts int
}

type Option func(*Generator)

// WithRandom swaps the randomness source, used by tests.
func WithRandom(r io.Reader) Option {
	return func(g *Generator) { g.random = r }
}

func WithLength(n int) Option {
	return func(g *Generator) { g.length = n }
}

func WithMaxAttempts(n int) Option {
	return func(g *Generator) { g.maxAttempts = n }
}

func NewGenerator(lookup CodeLookup, opts ...Option) *Generator {
	g := &Generator{
		lookup:      lookup,
		random:      rand.Reader,
		length:      DefaultLength,
		maxAttempts: MaxAttempts,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate samples codes until one is not in use.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		code, err := g.sample()
		if err != nil {
			return "", err
		}
		taken, err := g.lookup.InviteCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check invite code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrExhausted
}

// sample draws one code. Bytes at or above the largest multiple of the
// alphabet size are rejected so every symbol is equally likely.
func (g *Generator) sample() (string, error) {
	limit := byte(256 / len(Alphabet) * len(Alphabet))
	buf := make([]byte, g.length)
	one := make([]byte, 1)
	for i := 0; i < len(buf); {
		if _, err := io.ReadFull(g.random, one); err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		if one[0] >= limit {
			continue
		}
		buf[i] = Alphabet[int(one[0])%len(Alphabet)]
		i++
	}
	return string(buf), nil
}
