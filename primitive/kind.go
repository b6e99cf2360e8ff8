package primitive

import (
	"reflect"
	"time"
)

//go:generate go tool stringer -type=KindEnum -output=kind_string.go

// KindEnum is the storable scalar classification of a record field.
type KindEnum int

const (
	_ KindEnum = iota // skip zero value, use it as a default (invalid) value for KindEnum

	KindInt
	KindFloat
	KindString
	KindBytes
	KindBool
	KindDate
	KindDateTime
	KindDuration
	KindMap // string-keyed map of arbitrary values

	// KindTotal is a constant that represents the total number of kinds defined
	KindTotal = int(iota)
)

var (
	bytesType    = reflect.TypeFor[[]byte]()
	dateType     = reflect.TypeFor[Date]()
	timeType     = reflect.TypeFor[time.Time]()
	durationType = reflect.TypeFor[time.Duration]()
	mapType      = reflect.TypeFor[map[string]any]()
)

func (k KindEnum) IsValid() bool {
	return k > 0 && int(k) < KindTotal
}

func (k KindEnum) IsNumber() bool {
	switch k {
	default:
		return false
	case KindInt, KindFloat:
		return true
	}
}

func (k KindEnum) IsTemporal() bool {
	switch k {
	default:
		return false
	case KindDate, KindDateTime, KindDuration:
		return true
	}
}

// FromReflectType classifies rtype. Pointers are not unwrapped: optionality is
// decided by the caller.
func FromReflectType(rtype reflect.Type) KindEnum {
	if rtype == nil {
		return 0
	}

	// named types first, their kinds would otherwise be misread
	switch rtype {
	case dateType:
		return KindDate
	case timeType:
		return KindDateTime
	case durationType:
		return KindDuration
	case bytesType:
		return KindBytes
	case mapType:
		return KindMap
	}

	switch rtype.Kind() {
	default:
		return 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return KindInt
	case reflect.Float32, reflect.Float64:
		return KindFloat
	case reflect.String:
		return KindString
	case reflect.Bool:
		return KindBool
	}
}

// IsPrimitive reports whether values of rtype map to a single column.
func IsPrimitive(rtype reflect.Type) bool {
	return FromReflectType(rtype) != 0
}
