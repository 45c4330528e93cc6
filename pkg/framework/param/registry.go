package param

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownParameter is returned for IDs that were never registered
var ErrUnknownParameter = errors.New("param: unknown parameter")

// Observer is notified after a parameter changes through Registry.Set
type Observer func(p *Parameter, normalized float64)

// Registry manages plugin parameters
type Registry struct {
	params map[uint32]*Parameter
	order  []uint32 // registration order for indexed access
	mu     sync.RWMutex

	obsMu     sync.Mutex
	observers map[int]Observer
	nextObs   int
}

// NewRegistry creates a new parameter registry
func NewRegistry() *Registry {
	return &Registry{
		params:    make(map[uint32]*Parameter),
		order:     make([]uint32, 0),
		observers: make(map[int]Observer),
	}
}

// Add registers parameters. A duplicate ID is an error.
func (r *Registry) Add(params ...*Parameter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range params {
		if _, exists := r.params[p.ID]; exists {
			return fmt.Errorf("param: duplicate id %d (%s)", p.ID, p.Name)
		}
		r.params[p.ID] = p
		r.order = append(r.order, p.ID)
	}
	return nil
}

// Get retrieves a parameter by ID
func (r *Registry) Get(id uint32) *Parameter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.params[id]
}

// GetByIndex retrieves a parameter by index
func (r *Registry) GetByIndex(index int32) *Parameter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if index < 0 || index >= int32(len(r.order)) {
		return nil
	}
	return r.params[r.order[index]]
}

// Count returns the number of parameters
func (r *Registry) Count() int32 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int32(len(r.order))
}

// All returns all parameters in order
func (r *Registry) All() []*Parameter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Parameter, len(r.order))
	for i, id := range r.order {
		result[i] = r.params[id]
	}
	return result
}

// Set stores a normalized value and notifies observers. Control thread only.
func (r *Registry) Set(id uint32, normalized float64) error {
	p := r.Get(id)
	if p == nil {
		return fmt.Errorf("%w: %d", ErrUnknownParameter, id)
	}
	p.SetValue(normalized)
	r.notify(p)
	return nil
}

// SetPlain stores a value in the parameter's own range and notifies observers
func (r *Registry) SetPlain(id uint32, plain float64) error {
	p := r.Get(id)
	if p == nil {
		return fmt.Errorf("%w: %d", ErrUnknownParameter, id)
	}
	return r.Set(id, p.Normalize(plain))
}

// ResetAll restores every default and notifies observers
func (r *Registry) ResetAll() {
	for _, p := range r.All() {
		p.Reset()
		r.notify(p)
	}
}

// Subscribe registers fn for change notifications and returns a func that
// removes it
func (r *Registry) Subscribe(fn Observer) (unsubscribe func()) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()

	id := r.nextObs
	r.nextObs++
	r.observers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			r.obsMu.Lock()
			delete(r.observers, id)
			r.obsMu.Unlock()
		})
	}
}

func (r *Registry) notify(p *Parameter) {
	r.obsMu.Lock()
	fns := make([]Observer, 0, len(r.observers))
	for _, fn := range r.observers {
		fns = append(fns, fn)
	}
	r.obsMu.Unlock()

	v := p.GetValue()
	for _, fn := range fns {
		fn(p, v)
	}
}
