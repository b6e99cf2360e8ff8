package record

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"record-mapper/primitive"
)

// Descriptor is the frozen metadata of one record field.
type Descriptor struct {
	Name   string       // column and error-report name
	GoName string       // struct field name
	Index  int          // struct field index
	GoType reflect.Type // declared field type

	Shape    Shape
	Scalar   primitive.KindEnum // for ShapeScalar
	Record   *Type              // for ShapeRecord and ShapeCollection
	Optional bool               // pointer-wrapped scalar or record

	Default    any // value of the field's value type
	HasDefault bool

	Temporary   bool
	Compare     bool
	Ident       bool
	SeriesIdent bool
	ErrorSink   bool

	Input          InputSource
	Transform      *Transformer
	NullMarkers    []string // sorted
	HasNullMarkers bool
	UniqueIndex    bool
	Comment        string
}

// ValueType returns the field type without pointer or slice wrapping.
func (d *Descriptor) ValueType() reflect.Type {
	t := d.GoType
	if d.Shape == ShapeCollection || t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return t
}

// IsNull reports whether raw is one of the field's null markers.
func (d *Descriptor) IsNull(raw string) bool {
	_, found := slices.BinarySearch(d.NullMarkers, raw)
	return found
}

// IsColumn reports whether the field is stored as a plain column of its owner's table.
func (d *Descriptor) IsColumn() bool {
	return d.Shape == ShapeScalar && !d.Temporary && !d.Ident
}

// Get returns the field of the struct value v.
func (d *Descriptor) Get(v reflect.Value) reflect.Value {
	return v.Field(d.Index)
}

// String renders every attribute of the descriptor. Two descriptors are
// interchangeable iff their strings are equal.
func (d *Descriptor) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s:%s:%s:%s", d.Name, d.GoName, d.GoType, d.Shape)

	if d.Shape == ShapeScalar {
		b.WriteString(":" + d.Scalar.String())
	}

	if d.Record != nil {
		fmt.Fprintf(&b, ":%s@%x", d.Record.Name(), d.Record.Fingerprint())
	}

	flags := []struct {
		set  bool
		name string
	}{
		{d.Optional, "optional"},
		{d.Temporary, "temporary"},
		{d.Compare, "compare"},
		{d.Ident, "ident"},
		{d.SeriesIdent, "series_ident"},
		{d.ErrorSink, "error"},
		{d.UniqueIndex, "unique"},
	}

	for _, f := range flags {
		if f.set {
			b.WriteString("," + f.name)
		}
	}

	if d.HasDefault {
		fmt.Fprintf(&b, ",default=%#v", d.Default)
	}

	if !d.Input.IsZero() {
		b.WriteString(",input=" + d.Input.String())
	}

	if d.Transform != nil {
		b.WriteString(",transform=" + d.Transform.PackageAlias + "." + d.Transform.Name)
	}

	if d.HasNullMarkers {
		b.WriteString(",null=" + strconv.Quote(strings.Join(d.NullMarkers, "|")))
	}

	if d.Comment != "" {
		b.WriteString(",comment=" + strconv.Quote(d.Comment))
	}

	return b.String()
}
