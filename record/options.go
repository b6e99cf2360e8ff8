package record

import "slices"

// Option configures a record definition.
type Option func(*definition)

// FieldOption configures one field of a record definition.
type FieldOption func(*fieldSpec)

type definition struct {
	name     string
	external bool
	fields   map[string][]FieldOption
	order    []string
}

// fieldSpec is a field declaration before validation.
type fieldSpec struct {
	declared bool

	name        string
	input       InputSource
	transform   string
	transformFn any
	nullMarkers []string
	hasNull     bool
	comment     string

	defaultValue any
	defaultRaw   string
	hasDefault   bool
	rawDefault   bool

	temporary   bool
	compare     bool
	ident       bool
	seriesIdent bool
	errorSink   bool
	unique      bool
}

// Named overrides the record type name, which otherwise is the Go type name.
func Named(name string) Option {
	return func(d *definition) { d.name = name }
}

// External marks the record as populated by a transformer or an outside
// system: its fields need neither descriptors nor input sources.
func External() Option {
	return func(d *definition) { d.external = true }
}

// WithField applies field options to the Go struct field goName.
func WithField(goName string, opts ...FieldOption) Option {
	return func(d *definition) {
		if d.fields == nil {
			d.fields = make(map[string][]FieldOption)
		}

		if _, ok := d.fields[goName]; !ok {
			d.order = append(d.order, goName)
		}

		d.fields[goName] = append(d.fields[goName], opts...)
	}
}

// Column sets the column name.
func Column(name string) FieldOption {
	return func(s *fieldSpec) { s.name = name }
}

// Input reads the field from a single source key.
func Input(key string) FieldOption {
	return func(s *fieldSpec) { s.input = Key(key) }
}

// InputTuple reads the field from a tuple of source keys.
func InputTuple(keys ...string) FieldOption {
	return func(s *fieldSpec) { s.input = Tuple(keys...) }
}

// SeriesInput reads the field of a series record from one source key per series key.
func SeriesInput(m map[string]string) FieldOption {
	return func(s *fieldSpec) { s.input = SeriesKey(m) }
}

// SeriesInputTuple reads the field of a series record from a tuple of source keys per series key.
func SeriesInputTuple(m map[string][]string) FieldOption {
	return func(s *fieldSpec) { s.input = SeriesTuple(m) }
}

// Source sets a prepared input source.
func Source(src InputSource) FieldOption {
	return func(s *fieldSpec) { s.input = src }
}

// Transform sets the transformer. A nil fn refers to a transformer
// registered on the catalog under name.
func Transform(name string, fn any) FieldOption {
	return func(s *fieldSpec) {
		s.transform = name
		s.transformFn = fn
	}
}

// NullMarkers sets the raw values that mean "no value". Calling it without
// markers still counts as a reason for optionality.
func NullMarkers(markers ...string) FieldOption {
	return func(s *fieldSpec) {
		s.nullMarkers = slices.Clone(markers)
		s.hasNull = true
	}
}

// Default sets a static default. Integers are widened for float fields.
func Default(v any) FieldOption {
	return func(s *fieldSpec) {
		s.defaultValue = v
		s.hasDefault = true
		s.rawDefault = false
	}
}

// DefaultText sets a static default written as text, parsed by the field
// type like the default= tag.
func DefaultText(raw string) FieldOption {
	return func(s *fieldSpec) {
		s.defaultRaw = raw
		s.hasDefault = true
		s.rawDefault = true
	}
}

// Comment sets the column comment.
func Comment(text string) FieldOption {
	return func(s *fieldSpec) { s.comment = text }
}

// UniqueIndex makes the column unique and indexed.
func UniqueIndex() FieldOption {
	return func(s *fieldSpec) { s.unique = true }
}

// Temporary excludes the field from storage and comparison.
func Temporary() FieldOption {
	return func(s *fieldSpec) { s.temporary = true }
}

// Compare explicitly requests comparison. It is rejected on temporary fields.
func Compare() FieldOption {
	return func(s *fieldSpec) { s.compare = true }
}

// AsIdent marks the primary key passthrough field.
func AsIdent() FieldOption {
	return func(s *fieldSpec) { s.ident = true }
}

// AsSeriesIdent marks the field receiving the series key.
func AsSeriesIdent() FieldOption {
	return func(s *fieldSpec) { s.seriesIdent = true }
}

// AsErrorSink marks the field receiving the serialized error map.
func AsErrorSink() FieldOption {
	return func(s *fieldSpec) { s.errorSink = true }
}
