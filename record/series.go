package record

import (
	"reflect"

	"record-mapper/primitive"
)

// SeriesIdent identifies one element of a head-series collection by its series key.
//
// Every head-series record declares exactly one *SeriesIdent field. Its
// record type is synthesized as a Unique type named "<Head>Ident".
type SeriesIdent struct {
	Key string
}

var seriesIdentType = reflect.TypeFor[SeriesIdent]()

// SeriesIdentColumn is the column holding the series key.
const SeriesIdentColumn = "series_ident"

func newSeriesIdentType(head string) *Type {
	t := &Type{
		name:   head + "Ident",
		goType: seriesIdentType,
		kind:   Unique,
		fields: []*Descriptor{{
			Name:    SeriesIdentColumn,
			GoName:  "Key",
			Index:   0,
			GoType:  reflect.TypeFor[string](),
			Shape:   ShapeScalar,
			Scalar:  primitive.KindString,
			Compare: true,
		}},
	}
	t.seal()

	return t
}
