package crud

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/fbz-tec/crudx/core/config"
	"github.com/fbz-tec/crudx/core/model"
)

// Backend is a concrete store behind a Conn. Implementations bind every value
// as a parameter and wrap ErrNotFound or ErrDecode where those apply.
// A Backend is used from one goroutine at a time.
type Backend interface {
	Create(ctx context.Context, name string, age int) (model.User, error)
	ReadAll(ctx context.Context) ([]model.User, error)
	Get(ctx context.Context, id int64) (model.User, error)
	Update(ctx context.Context, id int64, age int) (model.User, error)
	Delete(ctx context.Context, id int64) error
	Close() error
}

// OpenFunc establishes a Backend. Failures should wrap ErrUnreachable,
// ErrAuthFailed or ErrProtocolMismatch; unwrapped errors count as
// Unreachable.
type OpenFunc func(ctx context.Context, cfg config.ConnectionConfig) (Backend, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]OpenFunc{}
)

// Register makes a backend available to Connect under name.
func Register(name string, open OpenFunc) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if open == nil {
		return fmt.Errorf("crud: nil OpenFunc for backend %q", name)
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		return fmt.Errorf("crud: backend %q already registered", name)
	}
	registry[name] = open
	return nil
}

// MustRegister is Register that panics on error. Meant for init functions.
func MustRegister(name string, open OpenFunc) {
	if err := Register(name, open); err != nil {
		panic(err)
	}
}

// Backends returns the sorted names of all registered backends.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookup(name string) (OpenFunc, error) {
	registryMu.RLock()
	open, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: unsupported backend %q (available: %s)",
			ErrProtocolMismatch, name, strings.Join(Backends(), ", "))
	}
	return open, nil
}
