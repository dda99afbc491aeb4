// Package translate multiplexes external translation backends behind one call.
package translate

import "context"

//go:generate mockgen -source=provider.go -destination=mocks/mock_provider.go -package=mocks

// Provider is one external translation backend.
type Provider interface {
	Name() string
	// SupportsAuto reports whether the backend detects the source language
	// when given domain.AutoLanguage.
	SupportsAuto() bool
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Backend pairs a provider with its monthly character quota.
// A quota of zero or less means unlimited.
type Backend struct {
	Provider Provider
	Quota    int
}

// Result describes how a translation was produced.
type Result struct {
	Text     string `json:"text"`
	Provider string `json:"provider,omitempty"`
	Cached   bool   `json:"cached"`
	Fallback bool   `json:"fallback"`
	Degraded bool   `json:"degraded"`
}
