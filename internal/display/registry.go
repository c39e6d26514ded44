package display

import "sync"

// Registry is the display-code namespace: a code resolves to at most one
// event id at any instant. Regenerating an event's code frees the old one.
type Registry struct {
	mu    sync.Mutex
	codes map[string]int64
	gen   *Generator
}

// NewRegistry creates an empty display-code registry.
func NewRegistry(gen *Generator) *Registry {
	return &Registry{
		codes: make(map[string]int64),
		gen:   gen,
	}
}

// Assign generates a fresh code and binds it to the event.
func (r *Registry) Assign(eventID int64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, err := r.gen.Generate(func(c string) bool {
		_, exists := r.codes[c]
		return exists
	})
	if err != nil {
		return "", err
	}
	r.codes[code] = eventID
	return code, nil
}

// Release frees a code. Releasing an unknown code is a no-op.
func (r *Registry) Release(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.codes, code)
}

// Resolve looks up the event bound to a code.
func (r *Registry) Resolve(code string) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.codes[code]
	return id, ok
}
