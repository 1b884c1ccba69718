package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]ModelDescriptor)
	registryMu sync.RWMutex
)

// Register adds a model descriptor to the registry.
// Panics if a model with the same UID is already registered.
func Register(desc ModelDescriptor) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[desc.UID]; exists {
		panic(fmt.Sprintf("model already registered: %s", desc.UID))
	}

	if desc.Label == "" {
		desc.Label = desc.UID
	}
	if desc.Kind == "" {
		desc.Kind = CollectionType
	}

	registry[desc.UID] = desc
}

// Get returns a model descriptor by UID.
// Returns false if not found.
func Get(uid string) (ModelDescriptor, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	desc, ok := registry[uid]
	return desc, ok
}

// Lookup is Get with an error that wraps ErrUnknownModel.
func Lookup(uid string) (ModelDescriptor, error) {
	desc, ok := Get(uid)
	if !ok {
		return ModelDescriptor{}, fmt.Errorf("%w: %s", ErrUnknownModel, uid)
	}
	return desc, nil
}

// All returns all registered models.
// Sorted by group then by UID for consistent ordering.
func All() []ModelDescriptor {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]ModelDescriptor, 0, len(registry))
	for _, desc := range registry {
		result = append(result, desc)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Group != result[j].Group {
			return result[i].Group < result[j].Group
		}
		return result[i].UID < result[j].UID
	})

	return result
}

// ByGroup returns all models for a specific group, sorted by UID.
func ByGroup(group string) []ModelDescriptor {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var result []ModelDescriptor
	for _, desc := range registry {
		if desc.Group == group {
			result = append(result, desc)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UID < result[j].UID
	})

	return result
}

// Groups returns all unique group names.
// Sorted alphabetically.
func Groups() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	seen := make(map[string]bool)
	for _, desc := range registry {
		seen[desc.Group] = true
	}

	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}

	sort.Strings(groups)
	return groups
}

// ModelCount returns the number of registered models.
func ModelCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered models.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]ModelDescriptor)
}
