package publicip

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-logr/logr"
)

// Factory is a constructor function that resolvers register to create themselves.
type Factory func(log logr.Logger, settings map[string]string) (Resolver, error)

var (
	mu        sync.Mutex
	factories = make(map[string]Factory)
)

// Register is called by resolver packages in their init() to self-register.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("publicip: resolver %q already registered", name))
	}
	factories[name] = f
}

// Names returns the registered resolver names in sorted order.
func Names() []string {
	mu.Lock()
	defer mu.Unlock()
	return registeredNames()
}

// NewResolver looks up the named resolver in the registry and creates it.
func NewResolver(name string, log logr.Logger, settings map[string]string) (Resolver, error) {
	mu.Lock()
	f, ok := factories[name]
	names := registeredNames()
	mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unsupported public IP source: %q (registered: %v)", name, names)
	}
	if settings == nil {
		settings = map[string]string{}
	}
	return f(log, settings)
}

func registeredNames() []string {
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
