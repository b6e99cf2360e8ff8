package ingest

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"record-mapper/primitive"
	"record-mapper/record"
)

// ErrSeriesKey is returned when the series keys passed to Ingest do not fit
// the record: exactly one for series records, none otherwise.
var ErrSeriesKey = errors.New("series key must be given exactly for series records")

// MissingValue is reported for a required field without a value in a
// record that has other values.
const MissingValue = "Missing value"

// Option configures an Engine.
type Option func(*Engine)

// WithBooleanCases sets the boolean tokens.
func WithBooleanCases(b BooleanCases) Option {
	return func(e *Engine) { e.bools = b }
}

// WithOptionalErrors also reports conversion failures of optional fields.
// By default an optional field that fails conversion is silently absent.
func WithOptionalErrors() Option {
	return func(e *Engine) { e.optionalErrors = true }
}

// Engine ingests rows into records. It holds no per-call state and is safe
// for concurrent use.
type Engine struct {
	bools          BooleanCases
	optionalErrors bool
}

// New returns an engine with DefaultBooleanCases unless overridden.
func New(opts ...Option) *Engine {
	e := &Engine{bools: DefaultBooleanCases()}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Result is the outcome of one ingestion.
type Result struct {
	// Value is a pointer to a new instance of the record's Go type, or nil
	// when the record is absent.
	Value any
	// Report is keyed by record type name, plus "_<series key>" for series records.
	Report *Report
}

// Present reports whether a record was produced.
func (r Result) Present() bool { return r.Value != nil }

// Ingest converts row into an instance of t. A series key must be given
// exactly when t is a series record.
func (e *Engine) Ingest(t *record.Type, row map[string]string, seriesKey ...string) (Result, error) {
	var key *string

	switch len(seriesKey) {
	case 0:
	case 1:
		key = &seriesKey[0]
	default:
		return Result{}, fmt.Errorf("%w: got %d keys", ErrSeriesKey, len(seriesKey))
	}

	if t.Kind().IsSeries() != (key != nil) {
		return Result{}, fmt.Errorf("%w: record %s of kind %s", ErrSeriesKey, t.Name(), t.Kind())
	}

	out := e.record(t, row, key)

	report := &Report{}
	report.addSub(errorKey(t.Name(), key), out.report)

	res := Result{Report: report}
	if out.state == present {
		res.Value = out.value.Addr().Interface()
	}

	return res, nil
}

// Must is like Ingest but panics on a usage error.
func (e *Engine) Must(t *record.Type, row map[string]string, seriesKey ...string) Result {
	res, err := e.Ingest(t, row, seriesKey...)
	if err != nil {
		panic(err)
	}

	return res
}

type state int

const (
	present state = iota
	empty
	poisoned
)

type outcome struct {
	value  reflect.Value // addressable struct value
	state  state
	report *Report // field errors of the record itself
}

// fieldResult is the resolution of one field.
type fieldResult struct {
	value  reflect.Value // invalid for no value
	failed bool          // conversion failed, value holds the fallback
	msg    string
	sub    *Report
	counts bool // contributes to the record being non-empty
}

func (e *Engine) record(t *record.Type, row map[string]string, key *string) outcome {
	v := reflect.New(t.GoType()).Elem()
	series := t.Kind().IsSeries()
	report := &Report{}

	var (
		poison   bool
		hasValue bool
		missing  []*record.Descriptor
	)

	for _, d := range t.Fields() {
		if d.ErrorSink || d.Temporary {
			continue
		}

		r := e.field(d, row, key)
		errKey := d.Name
		if series && key != nil {
			errKey = errorKey(d.Name, key)
		}

		if r.sub != nil {
			report.addSub(errKey, r.sub)
		}

		if r.msg != "" && (!d.Optional || e.optionalErrors) {
			report.addMessage(errKey, r.msg)
		}

		if r.failed && !d.Optional {
			poison = true
		}

		if r.value.IsValid() {
			assign(d, d.Get(v), r.value)

			if r.counts {
				hasValue = true
			}

			continue
		}

		if required(d) {
			missing = append(missing, d)
		}
	}

	switch {
	case poison:
		return outcome{value: v, state: poisoned, report: report}
	case !hasValue:
		return outcome{value: v, state: empty, report: report}
	}

	for _, d := range missing {
		errKey := d.Name
		if series && key != nil {
			errKey = errorKey(d.Name, key)
		}

		if _, recorded := report.entries[errKey]; !recorded {
			report.addMessage(errKey, MissingValue)
		}
	}

	if len(missing) > 0 {
		return outcome{value: v, state: poisoned, report: report}
	}

	if sink := t.ErrorSink(); sink != nil && !report.IsEmpty() {
		msg := report.String()
		sink.Get(v).Set(reflect.ValueOf(&msg))
	}

	return outcome{value: v, state: present, report: report}
}

// required reports whether a field without a value poisons its record.
func required(d *record.Descriptor) bool {
	if d.Optional || d.HasDefault {
		return false
	}

	switch d.Shape {
	case record.ShapeScalar, record.ShapeRecord:
		return !d.Ident && !d.SeriesIdent
	default:
		return false
	}
}

func (e *Engine) field(d *record.Descriptor, row map[string]string, key *string) fieldResult {
	switch {
	case d.SeriesIdent:
		return seriesKeyValue(d, key)

	case d.Shape == record.ShapeSeriesIdent:
		if key == nil {
			return fieldResult{}
		}

		return fieldResult{value: reflect.ValueOf(record.SeriesIdent{Key: *key})}

	case d.Transform != nil:
		return e.transform(d, row, key)

	case d.Shape == record.ShapeRecord:
		return e.nested(d, row, key)

	case d.Shape == record.ShapeCollection:
		return e.collection(d, row)

	case d.Shape == record.ShapeScalar:
		return e.scalar(d, row, key)

	default:
		return fieldResult{}
	}
}

func seriesKeyValue(d *record.Descriptor, key *string) fieldResult {
	if key == nil {
		return fieldResult{}
	}

	if d.Scalar == primitive.KindInt {
		n, err := strconv.ParseInt(*key, 10, 64)
		if err != nil {
			return fieldResult{failed: true, msg: "Invalid numeric: " + *key,
				value: FallbackScalar(d.Scalar, d.ValueType())}
		}

		return fieldResult{value: reflect.ValueOf(n).Convert(d.ValueType())}
	}

	return fieldResult{value: reflect.ValueOf(*key).Convert(d.ValueType())}
}

// lookup returns the source keys of d for the series key.
func lookup(d *record.Descriptor, key *string) ([]string, bool) {
	if d.Input.IsZero() {
		return nil, false
	}

	if d.Input.IsSeries() {
		if key == nil {
			return nil, false
		}

		return d.Input.For(*key)
	}

	return d.Input.Keys(), true
}

func (e *Engine) scalar(d *record.Descriptor, row map[string]string, key *string) fieldResult {
	keys, ok := lookup(d, key)
	if !ok {
		return defaultValue(d)
	}

	raw, ok := row[keys[0]]
	if !ok {
		return defaultValue(d)
	}

	if raw == "" || d.IsNull(raw) {
		return fieldResult{}
	}

	v, ok, msg := e.convert(d.Scalar, d.ValueType(), raw)
	if msg != "" {
		return fieldResult{failed: true, msg: msg, value: e.fallbackFor(d)}
	}

	if !ok {
		return fieldResult{}
	}

	return fieldResult{value: v, counts: true}
}

// fallbackFor returns the sentinel of a required field, or no value for an optional one.
func (e *Engine) fallbackFor(d *record.Descriptor) reflect.Value {
	if d.Optional {
		return reflect.Value{}
	}

	switch d.Shape {
	case record.ShapeScalar:
		return FallbackScalar(d.Scalar, d.ValueType())
	case record.ShapeRecord:
		return fallbackValue(d.Record)
	default:
		return reflect.Value{}
	}
}

func defaultValue(d *record.Descriptor) fieldResult {
	if !d.HasDefault {
		return fieldResult{}
	}

	return fieldResult{value: reflect.ValueOf(d.Default)}
}

func (e *Engine) transform(d *record.Descriptor, row map[string]string, key *string) fieldResult {
	keys, ok := lookup(d, key)
	if !ok {
		return defaultValue(d)
	}

	raw := make([]string, len(keys))
	for i, k := range keys {
		raw[i] = row[k]
	}

	out, ok, err := d.Transform.Call(raw)
	if err != nil {
		return fieldResult{
			failed: true,
			msg:    fmt.Sprintf("Transformer failed for %s with input=%s", d.Name, tupleString(raw)),
			value:  e.fallbackFor(d),
		}
	}

	if !ok {
		return fieldResult{}
	}

	return fieldResult{value: out, counts: true}
}

func (e *Engine) nested(d *record.Descriptor, row map[string]string, key *string) fieldResult {
	var childKey *string
	if d.Record.Kind().IsSeries() {
		childKey = key
	}

	out := e.record(d.Record, row, childKey)

	switch out.state {
	case present:
		return fieldResult{value: out.value, counts: true, sub: out.report}
	case poisoned:
		return fieldResult{failed: true, sub: out.report, value: e.fallbackFor(d)}
	default:
		return fieldResult{sub: out.report}
	}
}

func (e *Engine) collection(d *record.Descriptor, row map[string]string) fieldResult {
	elems := reflect.MakeSlice(d.GoType, 0, len(d.Record.SeriesKeys()))
	sub := &Report{}

	for _, k := range d.Record.SeriesKeys() {
		out := e.record(d.Record, row, &k)
		sub.addSub(errorKey(d.Record.Name(), &k), out.report)

		if out.state == present {
			elems = reflect.Append(elems, out.value)
		}
	}

	if elems.Len() == 0 {
		return fieldResult{sub: sub}
	}

	return fieldResult{value: elems, counts: true, sub: sub}
}

// assign stores v into the field f, taking the address for pointer fields.
func assign(d *record.Descriptor, f reflect.Value, v reflect.Value) {
	switch {
	case v.Type().AssignableTo(f.Type()):
		f.Set(v)
	case f.Kind() == reflect.Pointer && v.Type().AssignableTo(f.Type().Elem()):
		p := reflect.New(f.Type().Elem())
		p.Elem().Set(v)
		f.Set(p)
	case v.Type().ConvertibleTo(d.ValueType()):
		assign(d, f, v.Convert(d.ValueType()))
	}
}

func errorKey(name string, key *string) string {
	if key == nil {
		return name
	}

	return name + "_" + *key
}

// tupleString renders raw values like ('a', 'b') or ('a',).
func tupleString(raw []string) string {
	parts := make([]string, len(raw))
	for i, s := range raw {
		parts[i] = quote(s)
	}

	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}

	return "(" + strings.Join(parts, ", ") + ")"
}
