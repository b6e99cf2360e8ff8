package ingest

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"record-mapper/internal/dateparse"
	"record-mapper/primitive"
	"record-mapper/record"
)

// Fallback sentinels substituted for failed required scalars.
var (
	FallbackBool     = false
	FallbackBytes    = []byte("112358")
	FallbackInt      = int64(-112358)
	FallbackFloat    = -112358.13
	FallbackString   = "112358"
	FallbackDate     = primitive.NewDate(2358, time.January, 1)
	FallbackDateTime = time.Date(2358, time.January, 1, 13, 21, 0, 0, time.UTC)
	FallbackDuration = time.Second
)

// convert coerces raw into a value of type rt. ok is false for a null boolean token.
func (e *Engine) convert(kind primitive.KindEnum, rt reflect.Type, raw string) (v reflect.Value, ok bool, msg string) {
	v = reflect.New(rt).Elem()

	switch kind {
	case primitive.KindString:
		v.SetString(raw)

	case primitive.KindBytes:
		v.SetBytes([]byte(raw))

	case primitive.KindBool:
		b, present, known := e.bools.Parse(raw)
		if !known {
			return v, false, "Unknown boolean value: " + raw
		}

		if !present {
			return v, false, ""
		}

		v.SetBool(b)

	case primitive.KindInt:
		s := cleanNumeric(raw)

		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil || v.OverflowInt(n) {
			return v, false, "Invalid numeric: " + s
		}

		v.SetInt(n)

	case primitive.KindFloat:
		s := cleanNumeric(raw)
		if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
			s = strings.Replace(s, ",", ".", 1)
		}

		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return v, false, "Invalid numeric: " + s
		}

		v.SetFloat(f)

	case primitive.KindDate:
		d, err := dateparse.ParseDate(raw)
		if err != nil {
			return v, false, "Invalid date: " + raw
		}

		v.Set(reflect.ValueOf(d))

	case primitive.KindDateTime:
		t, err := dateparse.ParseDateTime(raw)
		if err != nil {
			return v, false, "Invalid datetime: " + raw
		}

		v.Set(reflect.ValueOf(t))

	case primitive.KindDuration:
		d, err := time.ParseDuration(strings.TrimSpace(raw))
		if err != nil {
			return v, false, "Invalid duration: " + raw
		}

		v.SetInt(int64(d))

	case primitive.KindMap:
		var m map[string]any
		if err := json.Unmarshal([]byte(raw), &m); err != nil || m == nil {
			return v, false, "Invalid mapping: " + raw
		}

		v.Set(reflect.ValueOf(m))

	default:
		return v, false, fmt.Sprintf("Unsupported kind %s: %s", kind, raw)
	}

	return v, true, ""
}

// cleanNumeric strips a single inequality marker.
func cleanNumeric(s string) string {
	switch {
	case strings.Count(s, ">") == 1:
		return strings.Replace(s, ">", "", 1)
	case strings.Count(s, "<") == 1:
		return strings.Replace(s, "<", "", 1)
	default:
		return s
	}
}

// FallbackScalar returns the sentinel of a scalar kind converted to rt.
func FallbackScalar(kind primitive.KindEnum, rt reflect.Type) reflect.Value {
	var src any

	switch kind {
	case primitive.KindBool:
		src = FallbackBool
	case primitive.KindBytes:
		src = FallbackBytes
	case primitive.KindInt:
		src = FallbackInt
	case primitive.KindFloat:
		src = FallbackFloat
	case primitive.KindString:
		src = FallbackString
	case primitive.KindDate:
		src = FallbackDate
	case primitive.KindDateTime:
		src = FallbackDateTime
	case primitive.KindDuration:
		src = FallbackDuration
	default:
		return reflect.New(rt).Elem()
	}

	sv := reflect.ValueOf(src)
	if !sv.Type().ConvertibleTo(rt) {
		return reflect.New(rt).Elem()
	}

	return sv.Convert(rt)
}

// Fallback builds the fallback instance of t: sentinels for required
// scalars, nil for optional fields, recursive fallbacks for required records.
// It returns a pointer to a new value of t's Go type.
func Fallback(t *record.Type) any {
	return fallbackValue(t).Addr().Interface()
}

func fallbackValue(t *record.Type) reflect.Value {
	v := reflect.New(t.GoType()).Elem()

	for _, d := range t.Fields() {
		if d.Optional || d.Temporary {
			continue
		}

		f := d.Get(v)

		switch d.Shape {
		case record.ShapeScalar:
			f.Set(FallbackScalar(d.Scalar, d.ValueType()))
		case record.ShapeRecord:
			f.Set(fallbackValue(d.Record))
		}
	}

	return v
}
