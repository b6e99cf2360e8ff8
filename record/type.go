package record

import (
	"reflect"
	"slices"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"record-mapper/internal/common"
)

// Type is a validated, immutable record type.
type Type struct {
	name       string
	goType     reflect.Type
	kind       Kind
	external   bool
	fields     []*Descriptor
	byName     map[string]*Descriptor
	seriesKeys []string
	hash       uint64
}

func (t *Type) Name() string         { return t.name }
func (t *Type) GoType() reflect.Type { return t.goType }
func (t *Type) Kind() Kind           { return t.kind }
func (t *Type) External() bool       { return t.external }

// Fields returns the descriptors in declaration order. The slice must not be modified.
func (t *Type) Fields() []*Descriptor { return t.fields }

// Field returns the descriptor with the given column name.
func (t *Type) Field(name string) (*Descriptor, bool) {
	d, ok := t.byName[name]
	return d, ok
}

// Fingerprint hashes the name and every descriptor of the type.
func (t *Type) Fingerprint() uint64 { return t.hash }

// Equal reports whether t and o declare the same name and the same fields.
// Distinct Go types may be equal.
func (t *Type) Equal(o *Type) bool {
	if t == o {
		return true
	}

	if t == nil || o == nil {
		return false
	}

	return t.name == o.name && t.hash == o.hash && slices.EqualFunc(t.fields, o.fields,
		func(a, b *Descriptor) bool { return a.String() == b.String() })
}

// String returns the package-qualified type name.
func (t *Type) String() string {
	if alias := common.PkgAlias(t.goType.PkgPath()); alias != "" {
		return alias + "." + t.name
	}

	return t.name
}

// SeriesKeys returns the sorted union of series keys declared across the
// type's field tree. It is empty for non-series types.
func (t *Type) SeriesKeys() []string { return t.seriesKeys }

// IdentField returns the primary key passthrough field, if any.
func (t *Type) IdentField() *Descriptor {
	return t.find(func(d *Descriptor) bool { return d.Ident })
}

// ErrorSink returns the error sink field, if any.
func (t *Type) ErrorSink() *Descriptor {
	return t.find(func(d *Descriptor) bool { return d.ErrorSink })
}

// SeriesIdentField returns the field receiving the series key, if any.
func (t *Type) SeriesIdentField() *Descriptor {
	return t.find(func(d *Descriptor) bool { return d.SeriesIdent })
}

// SeriesIdentRecord returns the synthesized identity field of a head-series type.
func (t *Type) SeriesIdentRecord() *Descriptor {
	return t.find(func(d *Descriptor) bool { return d.Shape == ShapeSeriesIdent })
}

func (t *Type) find(pred func(*Descriptor) bool) *Descriptor {
	for _, d := range t.fields {
		if pred(d) {
			return d
		}
	}

	return nil
}

func (t *Type) seal() {
	t.byName = make(map[string]*Descriptor, len(t.fields))
	for _, d := range t.fields {
		t.byName[d.Name] = d
	}

	h := xxhash.New()
	_, _ = h.WriteString(t.name)
	_, _ = h.WriteString("|" + t.kind.String() + "|" + strconv.FormatBool(t.external))

	for _, d := range t.fields {
		_, _ = h.WriteString("|" + d.String())
	}

	t.hash = h.Sum64()
	t.seriesKeys = collectSeriesKeys(t)
}

// collectSeriesKeys unions the series keys of every field, recursing into
// nested-series children.
func collectSeriesKeys(t *Type) []string {
	if !t.kind.IsSeries() {
		return nil
	}

	seen := map[string]struct{}{}

	var walk func(*Type)
	walk = func(rt *Type) {
		for _, d := range rt.fields {
			switch {
			case d.Shape == ShapeSeriesIdent:
				continue
			case d.Shape == ShapeRecord && d.Record.kind == NestedSeries:
				walk(d.Record)
			case d.Input.IsSeries():
				for _, k := range d.Input.SeriesKeys() {
					seen[k] = struct{}{}
				}
			}
		}
	}

	walk(t)

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}
