package calc

import (
	"fmt"
	"sort"
	"sync"
)

// CalculatorFactory creates a Calculator bound to an environment
type CalculatorFactory func(env *Environment) (Calculator, error)

// Registry manages calculator factories keyed by calculation mode
type Registry interface {
	// Register adds a new calculation mode factory
	Register(mode string, factory CalculatorFactory) error
	// Create instantiates a calculator for the specified mode
	Create(mode string, env *Environment) (Calculator, error)
	// ListModes returns the registered calculation modes, sorted
	ListModes() []string
}

type registry struct {
	mu        sync.RWMutex
	factories map[string]CalculatorFactory
}

// NewRegistry creates an empty calculator registry
func NewRegistry() Registry {
	return &registry{
		factories: make(map[string]CalculatorFactory),
	}
}

func (r *registry) Register(mode string, factory CalculatorFactory) error {
	if mode == "" {
		return fmt.Errorf("calculation mode cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[mode]; exists {
		return fmt.Errorf("calculation mode %q is already registered", mode)
	}

	r.factories[mode] = factory
	return nil
}

func (r *registry) Create(mode string, env *Environment) (Calculator, error) {
	r.mu.RLock()
	factory, exists := r.factories[mode]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("calculation mode %q is not registered", mode)
	}
	return factory(env)
}

func (r *registry) ListModes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	modes := make([]string, 0, len(r.factories))
	for mode := range r.factories {
		modes = append(modes, mode)
	}
	sort.Strings(modes)
	return modes
}
