package record

import (
	"fmt"
	"strings"
)

// TagName is the struct tag key read by Define.
const TagName = "feature"

// parseTag parses a `feature` tag into spec.
func parseTag(tag string, spec *fieldSpec) error {
	if tag == "" {
		return nil
	}

	spec.declared = true

	parts := strings.Split(tag, ",")
	spec.name = strings.TrimSpace(parts[0])

	for _, part := range parts[1:] {
		key, value, hasValue := strings.Cut(strings.TrimSpace(part), "=")

		switch key {
		case "":
			continue
		case "input":
			spec.input = Key(value)
		case "inputs":
			spec.input = Tuple(splitList(value)...)
		case "series":
			m, err := parseSeries(value)
			if err != nil {
				return err
			}

			single := make(map[string]string, len(m))
			for k, v := range m {
				if len(v) != 1 {
					return fmt.Errorf("series entry %q needs exactly one source key, use series_inputs", k)
				}

				single[k] = v[0]
			}

			spec.input = SeriesKey(single)
		case "series_inputs":
			m, err := parseSeries(value)
			if err != nil {
				return err
			}

			spec.input = SeriesTuple(m)
		case "null":
			spec.nullMarkers = splitList(value)
			spec.hasNull = true
		case "transform":
			spec.transform = value
		case "default":
			spec.defaultRaw = value
			spec.hasDefault = true
			spec.rawDefault = true
		case "comment":
			spec.comment = value
		case "unique":
			spec.unique = true
		case "temporary":
			spec.temporary = true
		case "compare":
			spec.compare = true
		case "ident":
			spec.ident = true
		case "series_ident":
			spec.seriesIdent = true
		case "error":
			spec.errorSink = true
		default:
			return fmt.Errorf("unknown tag option %q", key)
		}

		if needsValue(key) && !hasValue {
			return fmt.Errorf("tag option %q needs a value", key)
		}
	}

	return nil
}

func needsValue(key string) bool {
	switch key {
	case "input", "inputs", "series", "series_inputs", "null", "transform", "default", "comment":
		return true
	default:
		return false
	}
}

// splitList splits "a|b|c"; an empty string is an empty list.
func splitList(s string) []string {
	if s == "" {
		return []string{}
	}

	return strings.Split(s, "|")
}

// parseSeries parses "k0:a+b|k1:c".
func parseSeries(s string) (map[string][]string, error) {
	m := make(map[string][]string)

	for _, entry := range splitList(s) {
		key, keys, ok := strings.Cut(entry, ":")
		if !ok || key == "" || keys == "" {
			return nil, fmt.Errorf("invalid series entry %q", entry)
		}

		if _, dup := m[key]; dup {
			return nil, fmt.Errorf("duplicate series key %q", key)
		}

		m[key] = strings.Split(keys, "+")
	}

	return m, nil
}
