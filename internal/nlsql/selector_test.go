package nlsql

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeProvider struct {
	name        string
	available   bool
	remediation string
	probes      int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Available(context.Context) bool {
	f.probes++
	return f.available
}

func (f *fakeProvider) Remediation() string { return f.remediation }

func (f *fakeProvider) Translate(context.Context, Request) (Result, error) {
	return Result{}, errors.New("not implemented")
}

func TestSelectorResolvesInPriorityOrder(t *testing.T) {
	first := &fakeProvider{name: "anthropic", available: false}
	second := &fakeProvider{name: "groq", available: true}
	third := &fakeProvider{name: "ollama", available: true}

	selector := NewSelector(first, second, third)
	provider, err := selector.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if provider.Name() != "groq" {
		t.Fatalf("resolved %q, want groq", provider.Name())
	}
	if third.probes != 0 {
		t.Fatal("lower-priority provider should not be probed once one resolves")
	}
}

func TestSelectorCachesResolution(t *testing.T) {
	provider := &fakeProvider{name: "anthropic", available: true}
	selector := NewSelector(provider)

	for i := 0; i < 3; i++ {
		if _, err := selector.Resolve(context.Background()); err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
	}
	if provider.probes != 1 {
		t.Fatalf("probes = %d, want 1 (cached)", provider.probes)
	}
}

func TestSelectorCachesNoProviderOutcome(t *testing.T) {
	provider := &fakeProvider{name: "anthropic", available: false, remediation: "set ANTHROPIC_API_KEY"}
	selector := NewSelector(provider)

	if _, err := selector.Resolve(context.Background()); err == nil {
		t.Fatal("expected no-provider error")
	}
	if _, err := selector.Resolve(context.Background()); err == nil {
		t.Fatal("expected cached no-provider error")
	}
	if provider.probes != 1 {
		t.Fatalf("probes = %d, want 1", provider.probes)
	}
}

func TestSelectorReprobePicksUpNewProvider(t *testing.T) {
	first := &fakeProvider{name: "anthropic", available: false}
	second := &fakeProvider{name: "ollama", available: false, remediation: "run Ollama locally"}
	selector := NewSelector(first, second)

	if _, err := selector.Resolve(context.Background()); err == nil {
		t.Fatal("expected no-provider error")
	}

	second.available = true
	provider, err := selector.Reprobe(context.Background())
	if err != nil {
		t.Fatalf("Reprobe() error = %v", err)
	}
	if provider.Name() != "ollama" {
		t.Fatalf("resolved %q, want ollama", provider.Name())
	}

	resolved, err := selector.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() after reprobe error = %v", err)
	}
	if resolved.Name() != "ollama" {
		t.Fatal("reprobe result should be cached")
	}
}

func TestNoProviderErrorListsRemediations(t *testing.T) {
	selector := NewSelector(
		&fakeProvider{name: "anthropic", remediation: "set ANTHROPIC_API_KEY (for Claude)"},
		&fakeProvider{name: "groq", remediation: "set GROQ_API_KEY (for Groq, free tier available)"},
		&fakeProvider{name: "ollama", remediation: "run Ollama locally (http://localhost:11434)"},
	)
	_, err := selector.Resolve(context.Background())

	var noProvider *NoProviderError
	if !errors.As(err, &noProvider) {
		t.Fatalf("error = %T, want *NoProviderError", err)
	}
	if len(noProvider.Remediations) != 3 {
		t.Fatalf("remediations = %d, want 3", len(noProvider.Remediations))
	}
	for _, hint := range []string{"ANTHROPIC_API_KEY", "GROQ_API_KEY", "Ollama"} {
		if !strings.Contains(err.Error(), hint) {
			t.Fatalf("error message missing %q: %s", hint, err)
		}
	}
}
