package ingest

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
	"strings"
)

// Report is a nested error map. Values are messages or sub-reports.
//
// The zero value is an empty report ready to use.
type Report struct {
	entries map[string]any
}

// Len returns the number of entries.
func (r *Report) Len() int {
	if r == nil {
		return 0
	}

	return len(r.entries)
}

// IsEmpty reports whether nothing was recorded.
func (r *Report) IsEmpty() bool { return r.Len() == 0 }

// Keys returns the sorted entry keys.
func (r *Report) Keys() []string {
	if r == nil {
		return nil
	}

	return slices.Sorted(maps.Keys(r.entries))
}

// Message returns the message recorded under key, if it is a message.
func (r *Report) Message(key string) (string, bool) {
	if r == nil {
		return "", false
	}

	msg, ok := r.entries[key].(string)

	return msg, ok
}

// Sub returns the sub-report recorded under key, if it is a report.
func (r *Report) Sub(key string) (*Report, bool) {
	if r == nil {
		return nil, false
	}

	sub, ok := r.entries[key].(*Report)

	return sub, ok
}

// Flatten returns every message keyed by its dotted path.
func (r *Report) Flatten() map[string]string {
	out := make(map[string]string)
	r.flatten("", out)

	return out
}

func (r *Report) flatten(prefix string, out map[string]string) {
	for _, k := range r.Keys() {
		switch v := r.entries[k].(type) {
		case string:
			out[prefix+k] = v
		case *Report:
			v.flatten(prefix+k+".", out)
		}
	}
}

func (r *Report) set(key string, value any) {
	if r.entries == nil {
		r.entries = make(map[string]any)
	}

	r.entries[key] = value
}

func (r *Report) addMessage(key, msg string) { r.set(key, msg) }

func (r *Report) addSub(key string, sub *Report) {
	if sub.IsEmpty() {
		return
	}

	r.set(key, sub)
}

// Merge copies the entries of other into r. Entries of other win.
func (r *Report) Merge(other *Report) {
	for _, k := range other.Keys() {
		r.set(k, other.entries[k])
	}
}

// MarshalJSON renders the report as a JSON object with sorted keys.
func (r *Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	if err := r.writeJSON(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (r *Report) writeJSON(buf *bytes.Buffer) error {
	buf.WriteByte('{')

	for i, k := range r.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(k)
		if err != nil {
			return err
		}

		buf.Write(key)
		buf.WriteByte(':')

		switch v := r.entries[k].(type) {
		case *Report:
			if err := v.writeJSON(buf); err != nil {
				return err
			}
		default:
			raw, err := json.Marshal(v)
			if err != nil {
				return err
			}

			buf.Write(raw)
		}
	}

	buf.WriteByte('}')

	return nil
}

// String renders the report as a dict literal with sorted keys, e.g.
// {'Reading': {'value': 'Invalid numeric: abc'}}.
func (r *Report) String() string {
	var b strings.Builder

	r.writeDict(&b)

	return b.String()
}

func (r *Report) writeDict(b *strings.Builder) {
	b.WriteByte('{')

	for i, k := range r.Keys() {
		if i > 0 {
			b.WriteString(", ")
		}

		b.WriteString(quote(k))
		b.WriteString(": ")

		switch v := r.entries[k].(type) {
		case *Report:
			v.writeDict(b)
		case string:
			b.WriteString(quote(v))
		}
	}

	b.WriteByte('}')
}

var (
	singleQuoter = strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`)
	doubleQuoter = strings.NewReplacer(`\`, `\\`, "\n", `\n`)
)

// quote renders s as a string literal, double-quoted when s contains only single quotes.
func quote(s string) string {
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		return `"` + doubleQuoter.Replace(s) + `"`
	}

	return "'" + singleQuoter.Replace(s) + "'"
}
