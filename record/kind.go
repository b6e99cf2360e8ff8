package record

import "record-mapper/internal/common"

// Kind is the closed taxonomy of record types.
type Kind int

const (
	_ Kind = iota

	Plain
	Unique
	HeadSeries
	NestedSeries
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case Plain:
		return "plain"
	case Unique:
		return "unique"
	case HeadSeries:
		return "head_series"
	case NestedSeries:
		return "nested_series"
	default:
		return common.UnknownStr
	}
}

// IsValid reports whether k is one of the four kinds.
func (k Kind) IsValid() bool {
	return k >= Plain && k <= NestedSeries
}

// IsSeries reports whether records of this kind are ingested per series key.
func (k Kind) IsSeries() bool {
	return k == HeadSeries || k == NestedSeries
}

// Shape is how a field participates in ingestion and schema derivation.
type Shape int

const (
	_ Shape = iota

	ShapeScalar      // single column, including string-keyed maps
	ShapeRecord      // nested record, embedded or referenced
	ShapeCollection  // []T of head-series records
	ShapeSeriesIdent // synthesized *SeriesIdent of a head-series record
	ShapeOpaque      // temporary field of any other type
)

// String returns a human-readable shape name.
func (s Shape) String() string {
	switch s {
	case ShapeScalar:
		return "scalar"
	case ShapeRecord:
		return "record"
	case ShapeCollection:
		return "collection"
	case ShapeSeriesIdent:
		return "series_ident"
	case ShapeOpaque:
		return "opaque"
	default:
		return common.UnknownStr
	}
}
