package match

import (
	"cmp"
	"slices"

	"record-mapper/record"
)

// KeyUse is one source key read by a field.
type KeyUse struct {
	Key string
	// Path is the dotted path of the field from the root record, e.g.
	// "Assessment.draws.lactate".
	Path string
	// SeriesKey is set for keys read by series records.
	SeriesKey string
}

// InputKeys returns every source key read by t and its nested records, in
// field order. A key read by several fields is listed once per field.
func InputKeys(t *record.Type) []KeyUse {
	var uses []KeyUse

	collectKeys(t, t.Name(), map[*record.Type]bool{}, &uses)

	return uses
}

func collectKeys(t *record.Type, path string, seen map[*record.Type]bool, uses *[]KeyUse) {
	if seen[t] {
		return
	}

	seen[t] = true
	defer delete(seen, t)

	for _, d := range t.Fields() {
		fieldPath := path + "." + d.Name

		switch {
		case d.Input.IsSeries():
			for _, sk := range d.Input.SeriesKeys() {
				keys, _ := d.Input.For(sk)
				for _, k := range keys {
					*uses = append(*uses, KeyUse{Key: k, Path: fieldPath, SeriesKey: sk})
				}
			}
		case !d.Input.IsZero():
			for _, k := range d.Input.Keys() {
				*uses = append(*uses, KeyUse{Key: k, Path: fieldPath})
			}
		}

		if d.Record != nil && (d.Shape == record.ShapeRecord || d.Shape == record.ShapeCollection) {
			collectKeys(d.Record, fieldPath, seen, uses)
		}
	}
}

// Missing is a source key absent from a header.
type Missing struct {
	Key string
	// Paths lists the fields reading the key.
	Paths       []string
	Suggestions CandidateList
}

// CheckHeader returns the source keys of t missing from header, sorted by
// key, with up to three suggested columns each. Header columns that are
// source keys themselves are not suggested.
func CheckHeader(t *record.Type, header []string) []Missing {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}

	wanted := map[string]bool{}
	byKey := map[string]*Missing{}

	for _, use := range InputKeys(t) {
		wanted[use.Key] = true

		if present[use.Key] {
			continue
		}

		m, ok := byKey[use.Key]
		if !ok {
			m = &Missing{Key: use.Key}
			byKey[use.Key] = m
		}

		if !slices.Contains(m.Paths, use.Path) {
			m.Paths = append(m.Paths, use.Path)
		}
	}

	var spare []string

	for _, h := range header {
		if !wanted[h] {
			spare = append(spare, h)
		}
	}

	out := make([]Missing, 0, len(byKey))
	for _, m := range byKey {
		m.Suggestions = Suggest(m.Key, spare, DefaultThreshold, 3)
		out = append(out, *m)
	}

	slices.SortFunc(out, func(a, b Missing) int { return cmp.Compare(a.Key, b.Key) })

	return out
}
