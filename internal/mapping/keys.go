package mapping

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"record-mapper/internal/common"
)

// Keys names the source columns of a field: one key, written as a plain
// string, or a tuple, written as a sequence.
type Keys []string

// UnmarshalYAML accepts a string or a sequence of strings. Keys are trimmed;
// an empty string means no key.
func (k *Keys) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}

		*k = Keys{}
		if s = strings.TrimSpace(s); s != "" {
			*k = Keys{s}
		}

		return nil
	case yaml.SequenceNode:
		var keys []string
		if err := node.Decode(&keys); err != nil {
			return err
		}

		for i, s := range keys {
			s = strings.TrimSpace(s)
			if s == "" {
				return fmt.Errorf("line %d: key #%d is empty", node.Line, i+1)
			}

			keys[i] = s
		}

		*k = keys

		return nil
	default:
		return fmt.Errorf("line %d: expected a key or a list of keys", node.Line)
	}
}

// MarshalYAML writes a single key as a plain string.
func (k Keys) MarshalYAML() (any, error) {
	if len(k) == 1 {
		return k[0], nil
	}

	return []string(k), nil
}

// First returns the first key, or "" when there is none.
func (k Keys) First() string {
	v, _ := common.First(k)
	return v
}

func (k Keys) IsEmpty() bool { return common.IsEmpty(k) }

// IsTuple reports whether more than one key is given.
func (k Keys) IsTuple() bool { return common.IsMultiple(k) }
