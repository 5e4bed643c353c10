package feed

import (
	"fmt"
	"sync"
)

// Factory is a function that creates a new Feed instance from configuration.
type Factory func(config map[string]interface{}) (Feed, error)

var (
	registry = make(map[Type]Factory)
	mu       sync.RWMutex
)

// Register adds a feed factory for a capability family.
func Register(t Type, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[t] = factory
}

// Create creates a new feed instance by type.
func Create(t Type, config map[string]interface{}) (Feed, error) {
	mu.RLock()
	defer mu.RUnlock()

	factory, ok := registry[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFeedType, t)
	}

	return factory(config)
}

// Types returns all registered feed types.
func Types() []Type {
	mu.RLock()
	defer mu.RUnlock()

	types := make([]Type, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	return types
}
