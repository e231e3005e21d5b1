package llm

import (
	"fmt"
	"sort"
	"sync"

	"github.com/nulzo/prism-copy/internal/config"
)

type Factory func(cfg config.ProviderConfig, opts Options) (Adapter, error)

var (
	mu        sync.RWMutex
	factories = make(map[Kind]Factory)
)

// Register makes an adapter kind available. Adapters call it from init().
func Register(kind Kind, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("adapter factory %s already registered", kind))
	}
	factories[kind] = f
}

func Get(kind Kind) (Factory, error) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := factories[kind]
	if !ok {
		return nil, fmt.Errorf("adapter factory not found for type: %s", kind)
	}
	return f, nil
}

// New looks up the factory for cfg.Type and builds the adapter.
func New(cfg config.ProviderConfig, opts Options) (Adapter, error) {
	f, err := Get(Kind(cfg.Type))
	if err != nil {
		return nil, err
	}
	return f(cfg, opts)
}

// Kinds lists registered adapter kinds, sorted.
func Kinds() []Kind {
	mu.RLock()
	defer mu.RUnlock()
	kinds := make([]Kind, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
