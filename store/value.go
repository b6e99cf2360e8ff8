package store

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"record-mapper/primitive"
	"record-mapper/record"
)

// timeLayouts are tried in order when a driver returns a timestamp as text.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	time.DateOnly,
}

// encodeField returns the driver argument for a scalar field of the struct v.
// Absent optional values encode as nil.
func encodeField(d *record.Descriptor, v reflect.Value) (any, error) {
	f := d.Get(v)
	if f.Kind() == reflect.Pointer {
		if f.IsNil() {
			return nil, nil
		}

		f = f.Elem()
	}

	return encodeScalar(d.Scalar, f)
}

func encodeScalar(kind primitive.KindEnum, v reflect.Value) (any, error) {
	switch kind {
	case primitive.KindInt, primitive.KindDuration:
		return v.Int(), nil
	case primitive.KindFloat:
		return v.Float(), nil
	case primitive.KindString:
		return v.String(), nil
	case primitive.KindBytes:
		if v.IsNil() {
			return nil, nil
		}

		return v.Bytes(), nil
	case primitive.KindBool:
		return v.Bool(), nil
	case primitive.KindDate:
		return v.Interface().(primitive.Date).Time(), nil
	case primitive.KindDateTime:
		return v.Interface().(time.Time).UTC(), nil
	case primitive.KindMap:
		if v.IsNil() {
			return nil, nil
		}

		raw, err := json.Marshal(v.Interface())
		if err != nil {
			return nil, fmt.Errorf("failed to encode mapping: %w", err)
		}

		return string(raw), nil
	default:
		return nil, fmt.Errorf("unsupported scalar kind %s", kind)
	}
}

// decodeField stores the scanned driver value src into the scalar field of
// the struct v. NULL leaves the field at its zero value.
func decodeField(d *record.Descriptor, v reflect.Value, src any) error {
	if src == nil {
		return nil
	}

	rt := d.ValueType()

	val, err := decodeScalar(d.Scalar, rt, src)
	if err != nil {
		return fmt.Errorf("failed to decode column %s: %w", d.Name, err)
	}

	f := d.Get(v)
	if f.Kind() == reflect.Pointer {
		p := reflect.New(rt)
		p.Elem().Set(val)
		f.Set(p)

		return nil
	}

	f.Set(val)

	return nil
}

func decodeScalar(kind primitive.KindEnum, rt reflect.Type, src any) (reflect.Value, error) {
	var out any

	switch kind {
	case primitive.KindInt, primitive.KindDuration:
		n, err := asInt(src)
		if err != nil {
			return reflect.Value{}, err
		}

		out = n
	case primitive.KindFloat:
		f, err := asFloat(src)
		if err != nil {
			return reflect.Value{}, err
		}

		out = f
	case primitive.KindString:
		out = asString(src)
	case primitive.KindBytes:
		switch b := src.(type) {
		case []byte:
			out = append([]byte(nil), b...)
		case string:
			out = []byte(b)
		default:
			return reflect.Value{}, fmt.Errorf("unexpected %T for bytes", src)
		}
	case primitive.KindBool:
		b, err := asBool(src)
		if err != nil {
			return reflect.Value{}, err
		}

		out = b
	case primitive.KindDate:
		t, err := asTime(src)
		if err != nil {
			return reflect.Value{}, err
		}

		// drivers return DATE at midnight, possibly in a local zone
		out = primitive.NewDate(t.Year(), t.Month(), t.Day())
	case primitive.KindDateTime:
		t, err := asTime(src)
		if err != nil {
			return reflect.Value{}, err
		}

		out = t.UTC()
	case primitive.KindMap:
		// pgx decodes JSONB itself
		if m, ok := src.(map[string]any); ok {
			out = m
			break
		}

		m := map[string]any{}
		if err := json.Unmarshal([]byte(asString(src)), &m); err != nil {
			return reflect.Value{}, fmt.Errorf("failed to decode mapping: %w", err)
		}

		out = m
	default:
		return reflect.Value{}, fmt.Errorf("unsupported scalar kind %s", kind)
	}

	return reflect.ValueOf(out).Convert(rt), nil
}

func asInt(src any) (int64, error) {
	switch v := src.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}

		return 0, nil
	case []byte, string:
		return strconv.ParseInt(asString(v), 10, 64)
	default:
		return 0, fmt.Errorf("unexpected %T for integer", src)
	}
}

func asFloat(src any) (float64, error) {
	switch v := src.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case []byte, string:
		return strconv.ParseFloat(asString(v), 64)
	default:
		return 0, fmt.Errorf("unexpected %T for float", src)
	}
}

func asBool(src any) (bool, error) {
	switch v := src.(type) {
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case []byte, string:
		return strconv.ParseBool(asString(v))
	default:
		return false, fmt.Errorf("unexpected %T for boolean", src)
	}
}

func asTime(src any) (time.Time, error) {
	switch v := src.(type) {
	case time.Time:
		return v, nil
	case []byte, string:
		s := asString(v)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}

		return time.Time{}, fmt.Errorf("unrecognized time %q", s)
	default:
		return time.Time{}, fmt.Errorf("unexpected %T for time", src)
	}
}

func asString(src any) string {
	switch v := src.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
