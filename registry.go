package dsp

// Descriptor identifies one kind of plugin a Registry knows how to build.
type Descriptor struct {
	Kind        string
	DisplayName string
}

// Factory constructs a new Plugin instance of a Descriptor's kind.
type Factory func() Plugin

// Registry is a process-wide, read-only-after-init catalog of plugin
// kinds and their default constructors. Populate it once at program
// startup; it must not be mutated while any Chain built from it is
// processing.
type Registry struct {
	order   []string
	entries map[string]registryEntry
}

type registryEntry struct {
	descriptor Descriptor
	factory    Factory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registryEntry)}
}

// Register adds a plugin kind. Registering the same kind twice replaces
// its factory but preserves its original position in Kinds.
func (r *Registry) Register(d Descriptor, factory Factory) {
	if _, exists := r.entries[d.Kind]; !exists {
		r.order = append(r.order, d.Kind)
	}
	r.entries[d.Kind] = registryEntry{descriptor: d, factory: factory}
}

// Kinds returns the registered kinds in registration order.
func (r *Registry) Kinds() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Descriptor returns the Descriptor for a kind, and whether it is known.
func (r *Registry) Descriptor(kind string) (Descriptor, bool) {
	e, ok := r.entries[kind]
	return e.descriptor, ok
}

// New constructs a fresh Plugin of the given kind using its registered
// factory. ok is false if the kind was never registered.
func (r *Registry) New(kind string) (plugin Plugin, ok bool) {
	e, exists := r.entries[kind]
	if !exists {
		return nil, false
	}
	return e.factory(), true
}
