// Package record defines typed records: Go structs whose fields describe
// where their values come from in a flat input row and how they are stored.
//
// A record type is declared once per Go type with Define, which reads the
// `feature` struct tags and the functional options, validates the whole
// declaration and freezes it into an immutable *Type:
//
//	type Reading struct {
//		Value float64 `feature:"value,input=v,comment=mg/dL"`
//		Flag  bool    `feature:"flag,input=f"`
//	}
//
//	catalog := record.NewCatalog()
//	readingType, err := record.Define[Reading](catalog, record.Plain)
//
// # Kinds
//
// Every record type has exactly one Kind:
//   - Plain: an ordinary nested structure (1-to-1 or 1-to-0/1).
//   - Unique: persisted once per distinct value tuple and referenced by
//     foreign key from many owners (N-to-1).
//   - HeadSeries: the element type of a repeated collection ([]T field on a
//     non-series record). It carries one *SeriesIdent field that receives
//     the series key.
//   - NestedSeries: a sub-structure of a series record, ingested with the
//     same series key as its owner.
//
// # Tag syntax
//
// The first tag element is the column name (default: snake_case of the Go
// name). The remaining elements are key=value pairs or flags:
//
//	input=k                  single source key
//	inputs=a|b               tuple of source keys (required by transformers)
//	series=k0:a|k1:b         series key -> source key
//	series_inputs=k0:a+b     series key -> tuple of source keys
//	null=NA|n/a              raw values meaning "no value"
//	transform=name           transformer registered on the catalog
//	default=raw              static default, parsed by the field type
//	comment=text             column comment, typically the unit
//	unique                   unique indexed column
//	temporary                neither persisted nor compared
//	compare                  explicitly compared (rejected with temporary)
//	ident                    primary key passthrough
//	series_ident             receives the series key
//	error                    receives the serialized error map (*string)
//
// Options passed to Define override tags field by field.
//
// # Optionality
//
// Pointer fields are optional. An optional field must have a reason: it is a
// nested record, its record type is External, or it carries a transformer
// or null markers.
package record
