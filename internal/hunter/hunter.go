package hunter

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Hunter is the platform adapter contract. Implementations fetch raw
// account/media/comment data from one external platform.
//
// Fetch methods return (nil, nil) when the platform has no such entity; a
// non-nil error means the call itself failed. The iter methods cap their
// result at amount entries when amount > 0.
type Hunter interface {
	Analyze(ctx context.Context, query string, amount int, full bool) ([]Summary, error)
	FetchAccount(ctx context.Context, identifier string) (*Account, error)
	FetchMedia(ctx context.Context, identifier string) (*Media, error)
	AccountMedia(ctx context.Context, identifier string, amount int) ([]*Media, error)
	AccountSubscriptions(ctx context.Context, identifier string, amount int) ([]*Subscription, error)
	MediaComments(ctx context.Context, identifier string, amount int) ([]*Comment, error)
}

// Factory builds a hunter from its free-form config block.
type Factory func(options map[string]any) (Hunter, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a hunter constructor available under a string key. External
// packages register their platforms from an init function.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// New builds the hunter registered under name.
func New(name string, options map[string]any) (Hunter, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("hunter: unknown class %q", name)
	}
	return factory(options)
}

// Names lists the registered hunter classes, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Spec describes one configured platform: which registered class to build and
// its options.
type Spec struct {
	Cls     string
	Options map[string]any
}

// Set maps platform name to its configured hunter.
type Set map[string]Hunter

// NewSet builds all configured platform hunters. A spec without a class uses
// the platform name as the class name.
func NewSet(specs map[string]Spec) (Set, error) {
	set := make(Set, len(specs))
	for platform, spec := range specs {
		cls := spec.Cls
		if cls == "" {
			cls = platform
		}
		h, err := New(cls, spec.Options)
		if err != nil {
			return nil, fmt.Errorf("hunter: platform %q: %w", platform, err)
		}
		set[platform] = h
	}
	return set, nil
}

// Platforms lists the configured platform names, sorted.
func (s Set) Platforms() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
