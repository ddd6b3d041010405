// Package util provides shared utility functions.
package util

import (
	"context"
	"errors"
	"fmt"
)

const (
	// DefaultShortIDLength is the default number of characters for short IDs.
	DefaultShortIDLength = 8
	// MaxAmbiguousCandidates is the max number of candidates to show in ambiguous error.
	MaxAmbiguousCandidates = 5
)

// Errors returned by ID resolution functions.
var (
	ErrAmbiguousID = errors.New("ambiguous ID prefix")
	ErrNotFound    = errors.New("not found")
)

// ShortID returns the first n characters of id.
// If n is 0 or negative, DefaultShortIDLength (8) is used.
//
//	ShortID("3f2a9c1e-5b7d-4e8f-9a0b-1c2d3e4f5a6b", 0) → "3f2a9c1e"
func ShortID(id string, n int) string {
	if n <= 0 {
		n = DefaultShortIDLength
	}
	if len(id) <= n {
		return id
	}
	return id[:n]
}

// SessionPrefixResolver finds session ids starting with a prefix.
type SessionPrefixResolver interface {
	FindSessionIDsByPrefix(ctx context.Context, prefix string) ([]string, error)
}

// ResolveSessionID resolves a full session id or a unique prefix of one.
//
// Resolution rules:
//  1. If idOrPrefix matches exactly one session id, return it.
//  2. If it matches several, return ErrAmbiguousID with up to MaxAmbiguousCandidates.
//  3. If none match, return ErrNotFound.
func ResolveSessionID(ctx context.Context, resolver SessionPrefixResolver, idOrPrefix string) (string, error) {
	if idOrPrefix == "" {
		return "", fmt.Errorf("session ID: %w", ErrNotFound)
	}

	candidates, err := resolver.FindSessionIDsByPrefix(ctx, idOrPrefix)
	if err != nil {
		return "", fmt.Errorf("find session IDs: %w", err)
	}
	for _, c := range candidates {
		if c == idOrPrefix {
			return c, nil
		}
	}
	return resolveFromCandidates(idOrPrefix, candidates)
}

func resolveFromCandidates(prefix string, candidates []string) (string, error) {
	switch len(candidates) {
	case 0:
		return "", fmt.Errorf("session with prefix %q: %w", prefix, ErrNotFound)
	case 1:
		return candidates[0], nil
	default:
		shown := candidates
		if len(shown) > MaxAmbiguousCandidates {
			shown = shown[:MaxAmbiguousCandidates]
		}
		return "", fmt.Errorf("%w: prefix %q matches %d sessions: %v",
			ErrAmbiguousID, prefix, len(candidates), shown)
	}
}
