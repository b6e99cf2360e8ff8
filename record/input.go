package record

import (
	"maps"
	"slices"
	"strings"
)

// InputSource locates the raw values of a field in a flat input row.
//
// It has one of four forms: a single key, a tuple of keys, a series map
// from series key to a single key, or a series map from series key to a
// tuple of keys. The zero value has no source.
type InputSource struct {
	keys   []string
	series map[string][]string
	tuple  bool
}

// Key returns a single-key source.
func Key(key string) InputSource {
	return InputSource{keys: []string{key}}
}

// Tuple returns a tuple source. A tuple of one key is still a tuple.
func Tuple(keys ...string) InputSource {
	return InputSource{keys: slices.Clone(keys), tuple: true}
}

// SeriesKey returns a series source mapping every series key to one source key.
func SeriesKey(m map[string]string) InputSource {
	series := make(map[string][]string, len(m))
	for k, v := range m {
		series[k] = []string{v}
	}

	return InputSource{series: series}
}

// SeriesTuple returns a series source mapping every series key to a tuple of source keys.
func SeriesTuple(m map[string][]string) InputSource {
	series := make(map[string][]string, len(m))
	for k, v := range m {
		series[k] = slices.Clone(v)
	}

	return InputSource{series: series, tuple: true}
}

// IsZero reports whether the source is absent.
func (s InputSource) IsZero() bool {
	return len(s.keys) == 0 && s.series == nil
}

// IsSeries reports whether the source is keyed by series key.
func (s InputSource) IsSeries() bool {
	return s.series != nil
}

// IsTuple reports whether the source yields a tuple of raw values.
func (s InputSource) IsTuple() bool {
	return s.tuple
}

// Keys returns the source keys of a non-series source.
func (s InputSource) Keys() []string {
	return slices.Clone(s.keys)
}

// For returns the source keys for one series key.
func (s InputSource) For(seriesKey string) ([]string, bool) {
	keys, ok := s.series[seriesKey]
	return keys, ok
}

// SeriesKeys returns the sorted series keys of a series source.
func (s InputSource) SeriesKeys() []string {
	return slices.Sorted(maps.Keys(s.series))
}

// String renders the source canonically, e.g. "v", "(a,b)" or "{k0:a,k1:(b,c)}".
func (s InputSource) String() string {
	if s.IsZero() {
		return ""
	}

	if !s.IsSeries() {
		return renderKeys(s.keys, s.tuple)
	}

	parts := make([]string, 0, len(s.series))
	for _, k := range s.SeriesKeys() {
		parts = append(parts, k+":"+renderKeys(s.series[k], s.tuple))
	}

	return "{" + strings.Join(parts, ",") + "}"
}

func renderKeys(keys []string, tuple bool) string {
	if !tuple && len(keys) == 1 {
		return keys[0]
	}

	return "(" + strings.Join(keys, ",") + ")"
}
