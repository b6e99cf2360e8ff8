package record

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"record-mapper/primitive"
)

// Equal reports whether a and b hold the same values in every compared field
// of t. Temporary fields are ignored, collections compare as multisets.
// a and b may be struct values or pointers to them.
func Equal(t *Type, a, b any) bool {
	return Canonical(t, a) == Canonical(t, b)
}

// Hash returns the xxhash of the canonical encoding of v.
func Hash(t *Type, v any) uint64 {
	return xxhash.Sum64String(Canonical(t, v))
}

// Canonical encodes the compared fields of v in declaration order. Values
// that are Equal have the same encoding.
func Canonical(t *Type, v any) string {
	var b strings.Builder

	encodeRecord(&b, t, reflect.ValueOf(v))

	return b.String()
}

func encodeRecord(b *strings.Builder, t *Type, v reflect.Value) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			b.WriteString("nil")
			return
		}

		v = v.Elem()
	}

	if !v.IsValid() {
		b.WriteString("nil")
		return
	}

	b.WriteString(t.name + "{")

	for _, d := range t.fields {
		if !d.Compare {
			continue
		}

		b.WriteString(d.Name + "=")
		encodeField(b, d, d.Get(v))
		b.WriteByte(';')
	}

	b.WriteByte('}')
}

func encodeField(b *strings.Builder, d *Descriptor, v reflect.Value) {
	switch d.Shape {
	case ShapeRecord, ShapeSeriesIdent:
		encodeRecord(b, d.Record, v)

	case ShapeCollection:
		parts := make([]string, v.Len())
		for i := range v.Len() {
			var eb strings.Builder
			encodeRecord(&eb, d.Record, v.Index(i))
			parts[i] = eb.String()
		}

		slices.Sort(parts)
		b.WriteString("[" + strings.Join(parts, ",") + "]")

	case ShapeScalar:
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				b.WriteString("nil")
				return
			}

			v = v.Elem()
		}

		b.WriteString(EncodeScalar(d.Scalar, v))

	default:
		fmt.Fprintf(b, "%v", v.Interface())
	}
}

// EncodeScalar renders a non-pointer scalar value canonically.
func EncodeScalar(kind primitive.KindEnum, v reflect.Value) string {
	switch kind {
	case primitive.KindInt:
		return strconv.FormatInt(v.Int(), 10)
	case primitive.KindFloat:
		f := v.Float()
		if f == 0 {
			f = math.Abs(f)
		}

		return strconv.FormatFloat(f, 'g', -1, 64)
	case primitive.KindString:
		return strconv.Quote(v.String())
	case primitive.KindBytes:
		if v.IsNil() {
			return "nil"
		}

		return "0x" + hex.EncodeToString(v.Bytes())
	case primitive.KindBool:
		return strconv.FormatBool(v.Bool())
	case primitive.KindDate:
		return v.Interface().(primitive.Date).String()
	case primitive.KindDateTime:
		return v.Interface().(time.Time).UTC().Format(time.RFC3339Nano)
	case primitive.KindDuration:
		return strconv.FormatInt(v.Int(), 10) + "ns"
	case primitive.KindMap:
		if v.IsNil() {
			return "nil"
		}

		// json.Marshal sorts map keys
		raw, err := json.Marshal(v.Interface())
		if err != nil {
			return fmt.Sprintf("%v", v.Interface())
		}

		return string(raw)
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}
