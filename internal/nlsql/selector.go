package nlsql

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// NoProviderError reports that every configured provider was unavailable. It
// carries each provider's remediation hint so operators see exactly what to
// set up.
type NoProviderError struct {
	Remediations []string
}

func (e *NoProviderError) Error() string {
	var b strings.Builder
	b.WriteString("no LLM provider available. Please set one of the following:")
	for _, hint := range e.Remediations {
		fmt.Fprintf(&b, "\n  - %s", hint)
	}
	return b.String()
}

// Selector resolves the highest-priority available provider. The first
// resolution is cached for the process lifetime; Reprobe drops the cache and
// probes again, which callers use after a cached provider starts failing.
type Selector struct {
	mu        sync.Mutex
	providers []Provider
	resolved  Provider
	probed    bool
}

func NewSelector(providers ...Provider) *Selector {
	return &Selector{providers: providers}
}

func (s *Selector) Resolve(ctx context.Context) (Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.probed {
		if s.resolved == nil {
			return nil, s.noProviderError()
		}
		return s.resolved, nil
	}
	return s.probeLocked(ctx)
}

// Reprobe discards the cached selection and walks the priority order again.
func (s *Selector) Reprobe(ctx context.Context) (Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.probeLocked(ctx)
}

func (s *Selector) probeLocked(ctx context.Context) (Provider, error) {
	s.probed = true
	s.resolved = nil
	for _, provider := range s.providers {
		if provider.Available(ctx) {
			s.resolved = provider
			return provider, nil
		}
	}
	return nil, s.noProviderError()
}

func (s *Selector) noProviderError() *NoProviderError {
	hints := make([]string, 0, len(s.providers))
	for _, provider := range s.providers {
		hints = append(hints, provider.Remediation())
	}
	return &NoProviderError{Remediations: hints}
}
