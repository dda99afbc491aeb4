package translate

import (
	"errors"
	"fmt"
)

var (
	ErrNoProviders  = errors.New("translate: no providers configured")
	ErrDuplicateKey = errors.New("translate: duplicate provider name")
)

// ProviderError is returned when the chosen provider and its fallback both failed.
type ProviderError struct {
	Primary     string
	PrimaryErr  error
	Fallback    string
	FallbackErr error
}

func (e *ProviderError) Error() string {
	if e.Fallback == "" {
		return fmt.Sprintf("%s: %v", e.Primary, e.PrimaryErr)
	}
	return fmt.Sprintf("%s: %v; fallback %s: %v", e.Primary, e.PrimaryErr, e.Fallback, e.FallbackErr)
}

func (e *ProviderError) Unwrap() []error {
	if e.FallbackErr == nil {
		return []error{e.PrimaryErr}
	}
	return []error{e.PrimaryErr, e.FallbackErr}
}

// degradedText is what callers of Translate see when every provider failed.
func degradedText(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return "Translation error: " + pe.PrimaryErr.Error()
	}
	return "Translation error: " + err.Error()
}
