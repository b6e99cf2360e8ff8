package warehouse

import (
	"fmt"
	"strconv"
	"strings"

	"record-mapper/internal/dateparse"
	"record-mapper/internal/mapping"
	"record-mapper/internal/units"
	"record-mapper/record"
)

// Units the measurements are stored in.
const (
	GlucoseUnit = "mg/dL"
	LactateUnit = "mmol/L"
)

// Catalog holds the defined assessment record types.
type Catalog struct {
	Records *record.Catalog

	Lab        *record.Type
	Range      *record.Type
	Glucose    *record.Type
	Hemolysis  *record.Type
	Draw       *record.Type
	Assessment *record.Type
}

// NewCatalog defines the assessment records. conv normalizes concentrations;
// mf, when not nil, overrides the declared input sources.
func NewCatalog(conv *units.Converter, mf *mapping.MappingFile) (*Catalog, error) {
	if conv == nil {
		conv = units.Default()
	}

	rc := record.NewCatalog()

	transforms := []struct {
		name string
		fn   any
	}{
		{"date", optional(dateparse.ParseDate)},
		{"clock", optional(dateparse.ParseTime)},
		{"datetime", optional(dateparse.ParseDateTime)},
		{"glucose", concentration(conv, "density", GlucoseUnit)},
		{"lactate", concentration(conv, "molar_density", LactateUnit)},
	}

	for _, t := range transforms {
		if err := rc.RegisterTransform(t.name, t.fn); err != nil {
			return nil, err
		}
	}

	c := &Catalog{Records: rc}

	var err error

	if c.Lab, err = record.Define[Lab](rc, record.Unique, mf.Options("Lab")...); err != nil {
		return nil, err
	}

	if c.Range, err = record.Define[Range](rc, record.Unique, mf.Options("Range")...); err != nil {
		return nil, err
	}

	if c.Glucose, err = record.Define[Glucose](rc, record.Plain, mf.Options("Glucose")...); err != nil {
		return nil, err
	}

	if c.Hemolysis, err = record.Define[Hemolysis](rc, record.NestedSeries, mf.Options("Hemolysis")...); err != nil {
		return nil, err
	}

	if c.Draw, err = record.Define[Draw](rc, record.HeadSeries, mf.Options("Draw")...); err != nil {
		return nil, err
	}

	if c.Assessment, err = record.Define[Assessment](rc, record.Plain, mf.Options("Assessment")...); err != nil {
		return nil, err
	}

	return c, nil
}

// Roots returns the record types loaded from input rows.
func (c *Catalog) Roots() []*record.Type {
	return []*record.Type{c.Assessment}
}

// Root returns the root record type with the given name.
func (c *Catalog) Root(name string) (*record.Type, bool) {
	for _, t := range c.Roots() {
		if t.Name() == name {
			return t, true
		}
	}

	return nil, false
}

// optional turns an empty raw value into "no value".
func optional[T any](parse func(string) (T, error)) func(string) (T, bool, error) {
	return func(raw string) (T, bool, error) {
		var zero T

		raw = strings.TrimSpace(raw)
		if raw == "" {
			return zero, false, nil
		}

		v, err := parse(raw)
		if err != nil {
			return zero, false, err
		}

		return v, true, nil
	}
}

// concentration parses a value and converts it from its unit to target. An
// empty unit means the value is already in target; an empty value is no
// value whatever the unit.
func concentration(conv *units.Converter, dimension, target string) func(value, unit string) (float64, bool, error) {
	return func(value, unit string) (float64, bool, error) {
		value = strings.TrimSpace(value)
		unit = strings.TrimSpace(unit)

		if value == "" {
			return 0, false, nil
		}

		v, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", "."), 64)
		if err != nil {
			return 0, false, fmt.Errorf("failed to parse concentration %q: %w", value, err)
		}

		if unit == "" || unit == target {
			return v, true, nil
		}

		v, err = conv.Convert(v, dimension, unit, target)
		if err != nil {
			return 0, false, err
		}

		return v, true, nil
	}
}
