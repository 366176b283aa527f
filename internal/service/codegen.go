package service

import (
	"context"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet is the 62-symbol short code alphabet.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

const (
	defaultCodeLength = 6
	defaultMaxRetries = 10
)

// KeySpace reports whether a short code is already taken.
type KeySpace interface {
	Exists(ctx context.Context, code string) (bool, error)
}

// reservedCodes are path segments served by fixed routes. A link stored under
// one of them could never be reached through GET /{code}.
var reservedCodes = NewCodeSet("urls", "health")

// IsReservedCode reports whether code collides with a fixed route.
func IsReservedCode(code string) bool {
	_, ok := reservedCodes[code]
	return ok
}

// WithReserved reports reserved codes as taken in addition to those in keys.
func WithReserved(keys KeySpace) KeySpace {
	return reservedKeySpace{keys: keys}
}

type reservedKeySpace struct {
	keys KeySpace
}

func (r reservedKeySpace) Exists(ctx context.Context, code string) (bool, error) {
	if IsReservedCode(code) {
		return true, nil
	}
	return r.keys.Exists(ctx, code)
}

// CodeSet is an in-memory KeySpace.
type CodeSet map[string]struct{}

// NewCodeSet returns a CodeSet holding codes.
func NewCodeSet(codes ...string) CodeSet {
	s := make(CodeSet, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

func (s CodeSet) Exists(_ context.Context, code string) (bool, error) {
	_, ok := s[code]
	return ok, nil
}

// CodeGenerator produces random alphanumeric codes that are not yet in a key space.
type CodeGenerator struct {
	length     int
	maxRetries int
}

// NewCodeGenerator returns a generator for codes of the given length. Zero or
// negative arguments fall back to 6 characters and 10 attempts.
func NewCodeGenerator(length, maxRetries int) *CodeGenerator {
	if length <= 0 {
		length = defaultCodeLength
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &CodeGenerator{length: length, maxRetries: maxRetries}
}

// MaxRetries is the number of candidates drawn before giving up.
func (g *CodeGenerator) MaxRetries() int {
	return g.maxRetries
}

// Candidate draws one uniformly random code without checking availability.
func (g *CodeGenerator) Candidate() (string, error) {
	code, err := gonanoid.Generate(Alphabet, g.length)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return code, nil
}

// Generate draws uniformly random codes until one is free in keys. Reserved
// codes are never returned.
func (g *CodeGenerator) Generate(ctx context.Context, keys KeySpace) (string, error) {
	keys = WithReserved(keys)
	for i := 0; i < g.maxRetries; i++ {
		code, err := g.Candidate()
		if err != nil {
			return "", err
		}

		taken, err := keys.Exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: no free code after %d attempts", ErrExhaustedKeyspace, g.maxRetries)
}
