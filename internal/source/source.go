// Package source resolves input patterns into re-openable byte sources.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrNoMatch indicates a pattern matched no inputs.
var ErrNoMatch = errors.New("no input files matched")

// Source is a named input that can be opened more than once.
type Source interface {
	Name() string
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Resolver expands a pattern into sources.
type Resolver interface {
	CanResolve(pattern string) bool
	Resolve(ctx context.Context, pattern string) ([]Source, error)
}

var (
	regMu    sync.RWMutex
	registry []Resolver
)

// Register adds a resolver. Later registrations take precedence.
func Register(r Resolver) {
	regMu.Lock()
	defer regMu.Unlock()
	registry = append([]Resolver{r}, registry...)
}

// Resolve expands every pattern with the first resolver that accepts it.
// Duplicate names are dropped; order follows the patterns, each sorted by name.
func Resolve(ctx context.Context, patterns ...string) ([]Source, error) {
	regMu.RLock()
	resolvers := append([]Resolver(nil), registry...)
	regMu.RUnlock()

	var out []Source
	seen := map[string]struct{}{}
	for _, p := range patterns {
		var r Resolver
		for _, cand := range resolvers {
			if cand.CanResolve(p) {
				r = cand
				break
			}
		}
		if r == nil {
			return nil, fmt.Errorf("no resolver for %q", p)
		}
		srcs, err := r.Resolve(ctx, p)
		if err != nil {
			return nil, err
		}
		for _, s := range srcs {
			if _, ok := seen[s.Name()]; ok {
				continue
			}
			seen[s.Name()] = struct{}{}
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoMatch
	}
	return out, nil
}

// File is a local file source.
type File string

func (f File) Name() string { return string(f) }

func (f File) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fh, err := os.Open(string(f))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f, err)
	}
	return fh, nil
}

// Glob resolves local filesystem patterns; it accepts anything.
type Glob struct{}

func (Glob) CanResolve(string) bool { return true }

func (Glob) Resolve(_ context.Context, pattern string) ([]Source, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		// treat as literal path if exists
		if _, err := os.Stat(pattern); err == nil {
			matches = []string{pattern}
		}
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, pattern)
	}
	sort.Strings(matches)
	out := make([]Source, 0, len(matches))
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.IsDir() {
			continue
		}
		out = append(out, File(m))
	}
	return out, nil
}

// Bytes is an in-memory source.
type Bytes struct {
	Label string
	Data  []byte
}

func (b Bytes) Name() string { return b.Label }

func (b Bytes) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.Data)), nil
}

// Memoize buffers src on first successful open so later opens read memory.
func Memoize(src Source) Source {
	if _, ok := src.(*memo); ok {
		return src
	}
	return &memo{src: src}
}

type memo struct {
	src  Source
	once sync.Once
	data []byte
	err  error
}

func (m *memo) Name() string { return m.src.Name() }

func (m *memo) Open(ctx context.Context) (io.ReadCloser, error) {
	m.once.Do(func() {
		rc, err := m.src.Open(ctx)
		if err != nil {
			m.err = err
			return
		}
		defer rc.Close()
		m.data, m.err = io.ReadAll(rc)
		if m.err != nil {
			m.err = fmt.Errorf("buffer %s: %w", m.src.Name(), m.err)
		}
	})
	if m.err != nil {
		return nil, m.err
	}
	return io.NopCloser(bytes.NewReader(m.data)), nil
}

func init() {
	Register(Glob{})
}
