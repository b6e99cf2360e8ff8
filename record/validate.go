package record

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"time"

	"record-mapper/internal/diagnostic"
	"record-mapper/internal/naming"
	"record-mapper/primitive"
)

// Diagnostic codes reported by Define.
const (
	CodeInvalidTag             = "invalid_tag"
	CodeUnknownField           = "unknown_field"
	CodeUnexportedField        = "unexported_field"
	CodeDuplicateField         = "duplicate_field"
	CodeFieldWithoutDescriptor = "field_without_descriptor"
	CodeUnsupportedType        = "unsupported_type"
	CodeTupleNotTemporary      = "tuple_not_temporary"
	CodeUndefinedRecord        = "undefined_record"
	CodeOptionalWithoutReason  = "optional_without_reason"
	CodeMissingInput           = "missing_input"
	CodeTemporaryCompare       = "temporary_compare"
	CodeUnknownTransform       = "unknown_transform"
	CodeInvalidTransform       = "invalid_transform"
	CodeTransformWithoutTuple  = "transform_without_tuple"
	CodeTupleWithoutTransform  = "tuple_without_transform"
	CodeTransformArity         = "transform_arity"
	CodeTransformResult        = "transform_result"
	CodeSeriesInputMismatch    = "series_input_mismatch"
	CodeRecordInput            = "record_input_without_transform"
	CodeCollectionInSeries     = "collection_in_series"
	CodeCollectionElement      = "collection_not_head_series"
	CodeNestedSeriesOutside    = "nested_series_outside_series"
	CodeHeadSeriesAsRecord     = "head_series_as_record"
	CodeUniqueReference        = "unique_references_non_unique"
	CodeMissingSeriesIdent     = "missing_series_ident"
	CodeSeriesIdentOutside     = "series_ident_outside_head"
	CodeInvalidSeriesIdent     = "invalid_series_ident"
	CodeInvalidIdent           = "invalid_ident"
	CodeInvalidErrorSink       = "invalid_error_sink"
	CodeDuplicateSpecial       = "duplicate_special_field"
	CodeUniqueWithoutColumns   = "unique_without_columns"
	CodeDefaultTypeMismatch    = "default_type_mismatch"
	CodeDefaultOnRecord        = "default_on_record"
)

var stringPtrType = reflect.TypeFor[*string]()

// build validates the whole declaration and returns a sealed type. The caller holds c.mu.
func (c *Catalog) build(rt reflect.Type, kind Kind, def *definition) (*Type, error) {
	var diags diagnostic.Diagnostics

	t := &Type{
		name:     def.name,
		goType:   rt,
		kind:     kind,
		external: def.external,
	}

	seen := make(map[string]string)
	used := make(map[string]bool)

	for i := range rt.NumField() {
		sf := rt.Field(i)

		tag, hasTag := sf.Tag.Lookup(TagName)
		fieldOpts, hasOpts := def.fields[sf.Name]
		used[sf.Name] = hasOpts

		if tag == "-" && !hasOpts {
			continue
		}

		if !sf.IsExported() {
			if hasTag || hasOpts {
				diags.AddErrorf(CodeUnexportedField, t.name, sf.Name, "field is not exported")
			}

			continue
		}

		spec := &fieldSpec{}
		if hasTag && tag != "-" {
			if err := parseTag(tag, spec); err != nil {
				diags.AddErrorf(CodeInvalidTag, t.name, sf.Name, "%v", err)
				continue
			}
		}

		for _, opt := range fieldOpts {
			opt(spec)
		}

		spec.declared = spec.declared || hasOpts

		d := c.buildField(t, sf, i, spec, &diags)
		if d == nil {
			continue
		}

		if other, dup := seen[d.Name]; dup {
			diags.AddErrorf(CodeDuplicateField, t.name, sf.Name, "name %q already used by field %s", d.Name, other)
			continue
		}

		seen[d.Name] = sf.Name
		t.fields = append(t.fields, d)
	}

	for _, name := range def.order {
		if !used[name] {
			diags.AddErrorf(CodeUnknownField, t.name, name, "struct has no field %s", name)
		}
	}

	validateType(t, &diags)

	if err := diags.Error(); err != nil {
		return nil, err
	}

	t.seal()

	return t, nil
}

// buildField classifies one struct field and checks it in isolation.
func (c *Catalog) buildField(t *Type, sf reflect.StructField, index int, spec *fieldSpec,
	diags *diagnostic.Diagnostics,
) *Descriptor {
	d := &Descriptor{
		Name:           spec.name,
		GoName:         sf.Name,
		Index:          index,
		GoType:         sf.Type,
		Temporary:      spec.temporary,
		Compare:        !spec.temporary,
		Ident:          spec.ident,
		SeriesIdent:    spec.seriesIdent,
		ErrorSink:      spec.errorSink,
		Input:          spec.input,
		HasNullMarkers: spec.hasNull,
		UniqueIndex:    spec.unique,
		Comment:        spec.comment,
	}

	if d.Name == "" {
		d.Name = naming.Snake(sf.Name)
	}

	if spec.hasNull {
		d.NullMarkers = slices.Clone(spec.nullMarkers)
		slices.Sort(d.NullMarkers)
		d.NullMarkers = slices.Compact(d.NullMarkers)
	}

	if spec.temporary && spec.compare {
		diags.AddErrorf(CodeTemporaryCompare, t.name, d.Name, "temporary field cannot be compared")
	}

	if !c.classify(t, d, diags) {
		return nil
	}

	if spec.name == "" && d.Shape == ShapeSeriesIdent {
		d.Name = SeriesIdentColumn
	}

	if !spec.declared && !t.external {
		switch d.Shape {
		case ShapeRecord, ShapeCollection, ShapeSeriesIdent:
		default:
			diags.AddErrorf(CodeFieldWithoutDescriptor, t.name, d.Name,
				"field of type %s needs a %q tag or field options", sf.Type, TagName)

			return nil
		}
	}

	switch {
	case spec.transformFn != nil:
		tr, err := ParseTransformer(spec.transformFn)
		if err != nil {
			diags.AddErrorf(CodeInvalidTransform, t.name, d.Name, "%v", err)
		} else {
			d.Transform = tr
		}
	case spec.transform != "":
		tr, ok := c.transforms[spec.transform]
		if !ok {
			diags.AddErrorf(CodeUnknownTransform, t.name, d.Name, "transformer %q is not registered", spec.transform)
		} else {
			d.Transform = tr
		}
	}

	if spec.hasDefault {
		c.reconcileDefault(t, d, spec, diags)
	}

	validateField(t, d, diags)

	return d
}

// classify sets Shape, Scalar, Record and Optional from the Go field type.
func (c *Catalog) classify(t *Type, d *Descriptor, diags *diagnostic.Diagnostics) bool {
	ft := d.GoType
	base := ft

	if ft.Kind() == reflect.Pointer {
		base = ft.Elem()
		d.Optional = true
	}

	switch {
	case base == seriesIdentType:
		if !d.Optional {
			diags.AddErrorf(CodeInvalidSeriesIdent, t.name, d.Name, "series identity must be declared as *%s", seriesIdentType)
			return false
		}

		d.Shape = ShapeSeriesIdent
		d.Record = newSeriesIdentType(t.name)

	case primitive.IsPrimitive(base):
		d.Shape = ShapeScalar
		d.Scalar = primitive.FromReflectType(base)

	case base.Kind() == reflect.Struct:
		rec, ok := c.types[base]
		if !ok {
			diags.AddErrorf(CodeUndefinedRecord, t.name, d.Name, "record type %s must be defined before use", base)
			return false
		}

		d.Shape = ShapeRecord
		d.Record = rec

	case ft.Kind() == reflect.Slice && ft.Elem().Kind() == reflect.Struct:
		rec, ok := c.types[ft.Elem()]
		if !ok {
			diags.AddErrorf(CodeUndefinedRecord, t.name, d.Name, "record type %s must be defined before use", ft.Elem())
			return false
		}

		d.Shape = ShapeCollection
		d.Record = rec

	case d.Temporary:
		d.Shape = ShapeOpaque

	case base.Kind() == reflect.Array:
		diags.AddErrorf(CodeTupleNotTemporary, t.name, d.Name, "tuple field %s must be temporary", ft)
		return false

	default:
		diags.AddErrorf(CodeUnsupportedType, t.name, d.Name, "unsupported field type %s", ft)
		return false
	}

	return true
}

func (c *Catalog) reconcileDefault(t *Type, d *Descriptor, spec *fieldSpec, diags *diagnostic.Diagnostics) {
	if d.Shape != ShapeScalar {
		diags.AddErrorf(CodeDefaultOnRecord, t.name, d.Name, "only scalar fields take a default")
		return
	}

	var (
		v   any
		err error
	)

	if spec.rawDefault {
		v, err = parseDefault(d.Scalar, spec.defaultRaw)
	} else {
		v, err = widenDefault(spec.defaultValue, d.ValueType())
	}

	if err != nil {
		diags.AddErrorf(CodeDefaultTypeMismatch, t.name, d.Name, "%v", err)
		return
	}

	rv := reflect.ValueOf(v)
	if !rv.Type().ConvertibleTo(d.ValueType()) {
		diags.AddErrorf(CodeDefaultTypeMismatch, t.name, d.Name, "default %v is not a %s", v, d.ValueType())
		return
	}

	d.Default = rv.Convert(d.ValueType()).Interface()
	d.HasDefault = true
}

// widenDefault accepts a value of the field type itself, any integer for an
// integer field, and any integer for a float field.
func widenDefault(v any, target reflect.Type) (any, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, fmt.Errorf("default is nil")
	}

	if rv.Type() == target {
		return v, nil
	}

	switch {
	case isIntKind(rv.Kind()) && (isIntKind(target.Kind()) || isFloatKind(target.Kind())):
		return rv.Convert(target).Interface(), nil
	default:
		return nil, fmt.Errorf("default of type %s does not match field type %s", rv.Type(), target)
	}
}

func parseDefault(kind primitive.KindEnum, raw string) (any, error) {
	switch kind {
	case primitive.KindInt:
		return strconv.ParseInt(raw, 10, 64)
	case primitive.KindFloat:
		return strconv.ParseFloat(raw, 64)
	case primitive.KindString:
		return raw, nil
	case primitive.KindBytes:
		return []byte(raw), nil
	case primitive.KindBool:
		return strconv.ParseBool(raw)
	case primitive.KindDate:
		return primitive.ParseISODate(raw)
	case primitive.KindDateTime:
		return time.Parse(time.RFC3339, raw)
	case primitive.KindDuration:
		return time.ParseDuration(raw)
	case primitive.KindMap:
		var m map[string]any
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, err
		}

		return m, nil
	default:
		return nil, fmt.Errorf("no default for %s", kind)
	}
}

// validateField checks the rules that only concern one field and its owner's kind.
func validateField(t *Type, d *Descriptor, diags *diagnostic.Diagnostics) {
	series := t.kind.IsSeries()

	if d.Ident && (d.Shape != ShapeScalar || d.Scalar != primitive.KindInt || d.Optional || d.Name != "ident") {
		diags.AddErrorf(CodeInvalidIdent, t.name, d.Name, "ident field must be a non-optional integer named \"ident\"")
	}

	if d.SeriesIdent {
		switch {
		case !series:
			diags.AddErrorf(CodeInvalidSeriesIdent, t.name, d.Name, "series key field requires a series record")
		case d.Shape != ShapeScalar || (d.Scalar != primitive.KindString && d.Scalar != primitive.KindInt):
			diags.AddErrorf(CodeInvalidSeriesIdent, t.name, d.Name, "series key field must be a string or an integer")
		}
	}

	if d.ErrorSink && d.GoType != stringPtrType {
		diags.AddErrorf(CodeInvalidErrorSink, t.name, d.Name, "error sink must be *string, got %s", d.GoType)
	}

	special := d.Temporary || d.ErrorSink || d.SeriesIdent || d.Ident

	if d.Optional && d.Shape == ShapeScalar && !special &&
		!t.external && d.Transform == nil && !d.HasNullMarkers {
		diags.AddErrorf(CodeOptionalWithoutReason, t.name, d.Name,
			"optional field needs a transformer, null markers or an external record")
	}

	if d.Input.IsZero() {
		if d.Shape == ShapeScalar && !special && !t.external && !d.HasDefault {
			diags.AddErrorf(CodeMissingInput, t.name, d.Name, "field has no input source and no default")
		}

		if d.Transform != nil {
			diags.AddErrorf(CodeTransformWithoutTuple, t.name, d.Name, "transformer requires a tuple input")
		}
	} else {
		validateInput(t, d, diags)
	}

	switch d.Shape {
	case ShapeCollection:
		if series {
			diags.AddErrorf(CodeCollectionInSeries, t.name, d.Name, "series records cannot own collections")
		}

		if d.Record.kind != HeadSeries {
			diags.AddErrorf(CodeCollectionElement, t.name, d.Name, "collection element %s is not a head-series record", d.Record.name)
		}

	case ShapeRecord:
		switch {
		case d.Record.kind == NestedSeries && !series:
			diags.AddErrorf(CodeNestedSeriesOutside, t.name, d.Name, "nested-series record %s requires a series owner", d.Record.name)
		case d.Record.kind == HeadSeries:
			diags.AddErrorf(CodeHeadSeriesAsRecord, t.name, d.Name, "head-series record %s must be held in a collection", d.Record.name)
		}

	case ShapeSeriesIdent:
		if t.kind != HeadSeries {
			diags.AddErrorf(CodeSeriesIdentOutside, t.name, d.Name, "series identity requires a head-series record")
		}
	}

	if t.kind == Unique && (d.Shape == ShapeRecord || d.Shape == ShapeCollection) && d.Record.kind != Unique {
		diags.AddErrorf(CodeUniqueReference, t.name, d.Name, "unique record cannot reference %s record %s", d.Record.kind, d.Record.name)
	}
}

func validateInput(t *Type, d *Descriptor, diags *diagnostic.Diagnostics) {
	if d.Input.IsSeries() != t.kind.IsSeries() {
		diags.AddErrorf(CodeSeriesInputMismatch, t.name, d.Name, "series input is used iff the owner is a series record")
	}

	if (d.Shape == ShapeRecord || d.Shape == ShapeCollection) && d.Transform == nil {
		diags.AddErrorf(CodeRecordInput, t.name, d.Name, "record fields take input only through a transformer")
	}

	if d.Transform == nil {
		if d.Input.IsTuple() {
			diags.AddErrorf(CodeTupleWithoutTransform, t.name, d.Name, "tuple input requires a transformer")
		}

		return
	}

	if !d.Input.IsTuple() {
		diags.AddErrorf(CodeTransformWithoutTuple, t.name, d.Name, "transformer requires a tuple input")
		return
	}

	widths := []int{len(d.Input.Keys())}
	if d.Input.IsSeries() {
		widths = widths[:0]
		for _, k := range d.Input.SeriesKeys() {
			keys, _ := d.Input.For(k)
			widths = append(widths, len(keys))
		}
	}

	for _, w := range widths {
		if !d.Transform.Accepts(w) {
			diags.AddErrorf(CodeTransformArity, t.name, d.Name,
				"transformer %s takes %d values, input has %d", d.Transform.Name, d.Transform.Arity, w)

			break
		}
	}

	if !d.Transform.Out.AssignableTo(d.ValueType()) && !d.Transform.Out.AssignableTo(d.GoType) {
		diags.AddErrorf(CodeTransformResult, t.name, d.Name,
			"transformer %s returns %s, field is %s", d.Transform.Name, d.Transform.Out, d.GoType)
	}
}

// validateType checks the rules spanning several fields.
func validateType(t *Type, diags *diagnostic.Diagnostics) {
	counts := map[string]int{}

	for _, d := range t.fields {
		switch {
		case d.Ident:
			counts["ident"]++
		case d.SeriesIdent:
			counts["series key"]++
		case d.ErrorSink:
			counts["error sink"]++
		case d.Shape == ShapeSeriesIdent:
			counts["series identity"]++
		}
	}

	for _, what := range []string{"ident", "series key", "error sink", "series identity"} {
		if counts[what] > 1 {
			diags.AddErrorf(CodeDuplicateSpecial, t.name, "", "at most one %s field is allowed", what)
		}
	}

	if t.kind == HeadSeries && counts["series identity"] == 0 {
		diags.AddErrorf(CodeMissingSeriesIdent, t.name, "", "head-series record needs a *record.SeriesIdent field")
	}

	if t.kind == Unique && !slices.ContainsFunc(t.fields, (*Descriptor).IsColumn) {
		diags.AddErrorf(CodeUniqueWithoutColumns, t.name, "", "unique record needs at least one column")
	}
}

func isIntKind(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isFloatKind(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}
