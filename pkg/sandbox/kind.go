package sandbox

import (
	"fmt"
	"strings"
)

// Kind names a sandbox vendor.
type Kind string

const (
	KindE2B    Kind = "e2b"
	KindVercel Kind = "vercel"
)

// DefaultKind is used when neither the caller nor SANDBOX_PROVIDER names one.
const DefaultKind = KindE2B

var kinds = []Kind{KindE2B, KindVercel}

// ParseKind resolves a provider name, ignoring case and surrounding spaces.
func ParseKind(name string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(name)))
	switch k {
	case KindE2B, KindVercel:
		return k, nil
	}
	return "", unknownProvider(name)
}

// AvailableProviders lists every supported provider, configured or not.
func AvailableProviders() []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

func unknownProvider(name string) error {
	return fmt.Errorf("%w: %s. Supported providers: %s",
		ErrUnknownProvider, name, strings.Join(AvailableProviders(), ", "))
}
