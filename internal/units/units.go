package units

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed dimensions.yaml
var defaultTable []byte

var (
	ErrUnknownDimension = errors.New("unknown dimension")
	ErrUnknownUnit      = errors.New("unknown unit")
)

// Dimension is one entry of the conversion table.
type Dimension struct {
	RefUnit    string             `yaml:"ref_unit"`
	Conversion map[string]float64 `yaml:"conversion"`
}

// Converter converts values between units of the same dimension. It is immutable
// after loading and safe for concurrent use.
type Converter struct {
	dims map[string]Dimension
}

var defaultConverter = sync.OnceValue(func() *Converter {
	c, err := Parse(defaultTable)
	if err != nil {
		panic("embedded unit table is invalid: " + err.Error())
	}

	return c
})

// Default returns the converter for the embedded conversion table.
func Default() *Converter {
	return defaultConverter()
}

// LoadFile loads a conversion table from a YAML file.
func LoadFile(path string) (*Converter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read unit table %s: %w", path, err)
	}

	return Parse(data)
}

// Parse parses a YAML conversion table.
func Parse(data []byte) (*Converter, error) {
	var dims map[string]Dimension

	if err := yaml.Unmarshal(data, &dims); err != nil {
		return nil, fmt.Errorf("failed to parse unit table: %w", err)
	}

	for name, dim := range dims {
		if dim.RefUnit == "" {
			return nil, fmt.Errorf("dimension %q: missing ref_unit", name)
		}

		if dim.Conversion == nil {
			dim.Conversion = make(map[string]float64)
		}

		for unit, factor := range dim.Conversion {
			if factor <= 0 {
				return nil, fmt.Errorf("dimension %q: invalid factor for %s: %v", name, unit, factor)
			}
		}

		dim.Conversion[dim.RefUnit] = 1
		dims[name] = dim
	}

	return &Converter{dims: dims}, nil
}

func (c *Converter) dimension(name string) (Dimension, error) {
	dim, ok := c.dims[name]
	if !ok {
		return Dimension{}, fmt.Errorf("%w: %s", ErrUnknownDimension, name)
	}

	return dim, nil
}

// Factor returns the multiplicative factor turning a value in source into a value in target.
func (c *Converter) Factor(dimension, source, target string) (float64, error) {
	dim, err := c.dimension(dimension)
	if err != nil {
		return 0, err
	}

	from, ok := dim.Conversion[source]
	if !ok {
		return 0, fmt.Errorf("%w: %s in %s", ErrUnknownUnit, source, dimension)
	}

	to, ok := dim.Conversion[target]
	if !ok {
		return 0, fmt.Errorf("%w: %s in %s", ErrUnknownUnit, target, dimension)
	}

	return to / from, nil
}

// Convert converts value from source to target unit.
func (c *Converter) Convert(value float64, dimension, source, target string) (float64, error) {
	factor, err := c.Factor(dimension, source, target)
	if err != nil {
		return 0, err
	}

	return value * factor, nil
}

// Valid reports whether unit belongs to dimension.
func (c *Converter) Valid(dimension, unit string) bool {
	dim, err := c.dimension(dimension)
	if err != nil {
		return false
	}

	_, ok := dim.Conversion[unit]

	return ok
}

// Units returns the sorted units of dimension.
func (c *Converter) Units(dimension string) ([]string, error) {
	dim, err := c.dimension(dimension)
	if err != nil {
		return nil, err
	}

	units := make([]string, 0, len(dim.Conversion))
	for unit := range dim.Conversion {
		units = append(units, unit)
	}

	slices.Sort(units)

	return units, nil
}

// RefUnit returns the reference unit of dimension.
func (c *Converter) RefUnit(dimension string) (string, error) {
	dim, err := c.dimension(dimension)
	if err != nil {
		return "", err
	}

	return dim.RefUnit, nil
}

// Dimensions returns the sorted dimension names.
func (c *Converter) Dimensions() []string {
	names := make([]string, 0, len(c.dims))
	for name := range c.dims {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}
