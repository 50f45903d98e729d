package tables

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Row is a generated row keyed by column name.
type Row map[string]string

// GenerateFunc produces the rows of a table at query time.
type GenerateFunc func(ctx context.Context) ([]Row, error)

// Registry holds table descriptors by name.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

// NewRegistry returns an empty table registry.
func NewRegistry() *Registry {
	return &Registry{tables: make(map[string]*Table)}
}

// Register adds t. A second table with the same name is rejected.
func (r *Registry) Register(t *Table) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tables[t.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTable, t.Name())
	}
	r.tables[t.Name()] = t
	return nil
}

// Load registers the tables in order and stops at the first failure.
func (r *Registry) Load(ts ...*Table) error {
	for _, t := range ts {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// Get returns a registered table by name.
func (r *Registry) Get(name string) (*Table, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[name]
	return t, ok
}

// Names returns sorted names of all registered tables.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tables returns all registered tables sorted by name.
func (r *Registry) Tables() []*Table {
	var out []*Table
	for _, name := range r.Names() {
		t, _ := r.Get(name)
		out = append(out, t)
	}
	return out
}

// UtilityTables returns the tables marked utility=true, sorted by name.
func (r *Registry) UtilityTables() []*Table {
	var out []*Table
	for _, t := range r.Tables() {
		if t.Utility() {
			out = append(out, t)
		}
	}
	return out
}

// Implementations maps "<module>@<symbol>" references to generators.
type Implementations struct {
	mu    sync.RWMutex
	funcs map[string]GenerateFunc
}

// NewImplementations returns an empty implementation registry.
func NewImplementations() *Implementations {
	return &Implementations{funcs: make(map[string]GenerateFunc)}
}

// RegisterImpl binds ref to fn.
func (im *Implementations) RegisterImpl(ref string, fn GenerateFunc) error {
	parsed, err := ParseImplRef(ref)
	if err != nil {
		return err
	}
	key := parsed.String()
	im.mu.Lock()
	defer im.mu.Unlock()
	if _, ok := im.funcs[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateImpl, key)
	}
	im.funcs[key] = fn
	return nil
}

// Lookup returns the generator bound to ref.
func (im *Implementations) Lookup(ref ImplRef) (GenerateFunc, bool) {
	im.mu.RLock()
	defer im.mu.RUnlock()
	fn, ok := im.funcs[ref.String()]
	return fn, ok
}

// Has reports whether ref is bound.
func (im *Implementations) Has(ref ImplRef) bool {
	_, ok := im.Lookup(ref)
	return ok
}

// Refs returns all bound references sorted.
func (im *Implementations) Refs() []string {
	im.mu.RLock()
	defer im.mu.RUnlock()
	refs := make([]string, 0, len(im.funcs))
	for ref := range im.funcs {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// Resolve checks that every table in ts has a bound implementation. All
// misses are reported together.
func Resolve(impls *Implementations, ts ...*Table) error {
	var errs []error
	for _, t := range ts {
		if !impls.Has(t.Implementation()) {
			errs = append(errs, fmt.Errorf("table %s: %w %s", t.Name(), ErrUnresolvedImpl, t.Implementation()))
		}
	}
	return errors.Join(errs...)
}

var (
	registry = NewRegistry()
	impls    = NewImplementations()
)

// Default returns the process-wide table registry filled by init() functions.
func Default() *Registry { return registry }

// DefaultImpls returns the process-wide implementation registry.
func DefaultImpls() *Implementations { return impls }

// Register adds a table to the global registry.
func Register(t *Table) error { return registry.Register(t) }

// MustRegister is like Register but panics on a duplicate name.
func MustRegister(t *Table) {
	if err := registry.Register(t); err != nil {
		panic(err)
	}
}

// Get returns a table from the global registry.
func Get(name string) (*Table, bool) { return registry.Get(name) }

// Names returns sorted names of all globally registered tables.
func Names() []string { return registry.Names() }

// RegisterImpl binds a generator in the global implementation registry.
func RegisterImpl(ref string, fn GenerateFunc) error { return impls.RegisterImpl(ref, fn) }

// MustRegisterImpl is like RegisterImpl but panics on error.
func MustRegisterImpl(ref string, fn GenerateFunc) {
	if err := impls.RegisterImpl(ref, fn); err != nil {
		panic(err)
	}
}
