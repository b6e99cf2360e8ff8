package registry

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"record-mapper/record"
	"record-mapper/schema"
)

var (
	ErrParentMismatch = errors.New("record type is already registered with a different parent")
	ErrNameCollision  = errors.New("table name is already registered")
)

// Option configures a registration.
type Option func(*registration)

type registration struct {
	namespace string
	parent    *schema.Parent
}

// InNamespace derives the tables into namespace ns (a PostgreSQL schema or MySQL database).
func InNamespace(ns string) Option {
	return func(r *registration) { r.namespace = ns }
}

// WithParent links the root table to an existing table through a "parent"
// foreign key. unique makes the relation 1-to-1.
func WithParent(table schema.Parent, unique bool) Option {
	return func(r *registration) {
		table.Unique = unique
		r.parent = &table
	}
}

type entry struct {
	record *record.Type
	schema *schema.Schema
}

// Registry owns the derived schemas. Registration is serialized by a mutex.
type Registry struct {
	mu      sync.Mutex
	entries []*entry
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{}
}

// Register derives and stores the schema of t. It returns false when an
// equal record type is already registered with the same parent. A different
// parent, or a table name already taken by another registration, is an error
// and leaves the registry unchanged. Registrations may share a table both
// derive identically.
func (r *Registry) Register(t *record.Type, opts ...Option) (bool, error) {
	var reg registration
	for _, opt := range opts {
		opt(&reg)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e := r.find(t); e != nil {
		if reg.parent != nil && !sameParent(e.schema.Parent, reg.parent) {
			return false, fmt.Errorf("failed to register %s: %w", t.Name(), ErrParentMismatch)
		}

		return false, nil
	}

	s, err := schema.Derive(t, reg.namespace, reg.parent)
	if err != nil {
		return false, fmt.Errorf("failed to register %s: %w", t.Name(), err)
	}

	taken := r.all()
	for _, tb := range s.Tables() {
		if other, ok := taken[tb.QualifiedName()]; ok && !sameTable(other, tb) {
			return false, fmt.Errorf("failed to register %s: %w: %s", t.Name(), ErrNameCollision, tb.QualifiedName())
		}
	}

	r.entries = append(r.entries, &entry{record: t, schema: s})

	return true, nil
}

// Lookup returns the schema registered for t.
func (r *Registry) Lookup(t *record.Type) (*schema.Schema, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.find(t)
	if e == nil {
		return nil, false
	}

	return e.schema, true
}

// Contains reports whether t is registered.
func (r *Registry) Contains(t *record.Type) bool {
	_, ok := r.Lookup(t)
	return ok
}

// Namespace returns the namespace t was registered in.
func (r *Registry) Namespace(t *record.Type) (string, bool) {
	s, ok := r.Lookup(t)
	if !ok {
		return "", false
	}

	return s.Namespace, true
}

// Len returns the number of registered record types.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries)
}

// All returns every registered table and every parent table, keyed by
// "namespace.name". Parent tables map to nil.
func (r *Registry) All() map[string]*schema.Table {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.all()
}

// Schemas returns the registered schemas in registration order.
func (r *Registry) Schemas() []*schema.Schema {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*schema.Schema, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.schema
	}

	return out
}

// Names returns the sorted keys of All.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.All()))
}

func (r *Registry) all() map[string]*schema.Table {
	tables := make(map[string]*schema.Table)

	for _, e := range r.entries {
		for _, tb := range e.schema.Tables() {
			tables[tb.QualifiedName()] = tb
		}

		if p := e.schema.Parent; p != nil {
			if _, ok := tables[p.QualifiedName()]; !ok {
				tables[p.QualifiedName()] = nil
			}
		}
	}

	return tables
}

// find matches by declaration, not by Go type: an equal redeclaration is the same record.
func (r *Registry) find(t *record.Type) *entry {
	for _, e := range r.entries {
		if e.record.Equal(t) {
			return e
		}
	}

	return nil
}

// sameTable allows registrations to share a table, typically a Unique one,
// when both derive it identically.
func sameTable(a, b *schema.Table) bool {
	if a == nil || b == nil {
		return false
	}

	return a.Record.Equal(b.Record) && a.CreateStatement(schema.SQLite) == b.CreateStatement(schema.SQLite)
}

func sameParent(a, b *schema.Parent) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}
