package record

import (
	"cmp"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
)

var (
	ErrNotDefined = errors.New("record type is not defined")
	ErrRedefined  = errors.New("record type is already defined with a different declaration")
	ErrNotStruct  = errors.New("record type must be a struct")
	ErrKind       = errors.New("invalid record kind")
)

// Catalog owns the defined record types and the named transformers.
//
// Definition takes a write lock; lookups are safe for concurrent use.
type Catalog struct {
	mu         sync.RWMutex
	types      map[reflect.Type]*Type
	transforms map[string]*Transformer
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		types:      make(map[reflect.Type]*Type),
		transforms: make(map[string]*Transformer),
	}
}

// RegisterTransform makes fn available to `transform=name` tags.
func (c *Catalog) RegisterTransform(name string, fn any) error {
	t, err := ParseTransformer(fn)
	if err != nil {
		return fmt.Errorf("failed to register transformer %q: %w", name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.transforms[name]; ok {
		return fmt.Errorf("failed to register transformer %q: name already taken", name)
	}

	c.transforms[name] = t

	return nil
}

// Transform returns the transformer registered under name.
func (c *Catalog) Transform(name string) (*Transformer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.transforms[name]

	return t, ok
}

// Lookup returns the record type defined for the Go type rt.
func (c *Catalog) Lookup(rt reflect.Type) (*Type, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.types[rt]

	return t, ok
}

// TypeOf returns the record type of v, which may be a struct value or a pointer to one.
func (c *Catalog) TypeOf(v any) (*Type, error) {
	rt := reflect.TypeOf(v)
	if rt == nil {
		return nil, fmt.Errorf("%w: nil value", ErrNotDefined)
	}

	if rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}

	t, ok := c.Lookup(rt)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotDefined, rt)
	}

	return t, nil
}

// Types returns every defined type sorted by name.
func (c *Catalog) Types() []*Type {
	c.mu.RLock()
	defer c.mu.RUnlock()

	types := make([]*Type, 0, len(c.types))
	for _, t := range c.types {
		types = append(types, t)
	}

	slices.SortFunc(types, func(a, b *Type) int { return cmp.Compare(a.name, b.name) })

	return types
}

// Define validates the declaration of T and adds it to the catalog.
func Define[T any](c *Catalog, kind Kind, opts ...Option) (*Type, error) {
	return c.DefineType(reflect.TypeFor[T](), kind, opts...)
}

// MustDefine is like Define but panics on an invalid declaration.
func MustDefine[T any](c *Catalog, kind Kind, opts ...Option) *Type {
	t, err := Define[T](c, kind, opts...)
	if err != nil {
		panic(err)
	}

	return t
}

// DefineType validates the declaration of the struct type rt and adds it to the catalog.
//
// Nested record types must be defined first. Defining the same Go type twice
// returns the existing type when both declarations are equal.
func (c *Catalog) DefineType(rt reflect.Type, kind Kind, opts ...Option) (*Type, error) {
	if rt == nil || rt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("failed to define record %v: %w", rt, ErrNotStruct)
	}

	if !kind.IsValid() {
		return nil, fmt.Errorf("failed to define record %s: %w", rt.Name(), ErrKind)
	}

	def := &definition{name: rt.Name()}
	for _, opt := range opts {
		opt(def)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := c.build(rt, kind, def)
	if err != nil {
		return nil, fmt.Errorf("failed to define record %s: %w", def.name, err)
	}

	if existing, ok := c.types[rt]; ok {
		if existing.Equal(t) {
			return existing, nil
		}

		return nil, fmt.Errorf("failed to define record %s: %w", def.name, ErrRedefined)
	}

	c.types[rt] = t

	return t, nil
}
