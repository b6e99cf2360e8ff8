package mapping

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"record-mapper/internal/diagnostic"
	"record-mapper/record"
)

const sample = `
records:
  - record: Reading
    name: Glucose
    fields:
      - field: Value
        column: glucose
        input: glc
        null: [NA, n/a]
        default: "5.5"
        comment: mg/dL
      - field: Flag
        input: [f]
  - record: Sample
    fields:
      - field: Level
        series:
          s0: level_0
          s1: level_1
`

type Reading struct {
	Value *float64 `feature:"value,input=v"`
	Flag  bool     `feature:"flag,input=f"`
}

type Sample struct {
	Ident *record.SeriesIdent
	Level float64 `feature:"level,series=s0:l0"`
}

func TestParse(t *testing.T) {
	t.Parallel()

	mf, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, CurrentVersion, mf.Version)
	require.Len(t, mf.Records, 2)

	rm, ok := mf.Record("Reading")
	require.True(t, ok)
	assert.Equal(t, "Glucose", rm.Name)
	require.Len(t, rm.Fields, 2)

	value := rm.Fields[0]
	assert.Equal(t, Keys{"glc"}, value.Input)
	require.NotNil(t, value.Null)
	assert.Equal(t, Keys{"NA", "n/a"}, *value.Null)
	require.NotNil(t, value.Default)
	assert.Equal(t, "5.5", *value.Default)
	assert.Equal(t, Keys{"f"}, rm.Fields[1].Input)
	assert.False(t, rm.Fields[1].Input.IsTuple())

	_, ok = mf.Record("Missing")
	assert.False(t, ok)
	assert.Nil(t, mf.Options("Missing"))
}

func TestOptions(t *testing.T) {
	t.Parallel()

	mf, err := Parse([]byte(sample))
	require.NoError(t, err)

	c := record.NewCatalog()

	rt, err := record.Define[Reading](c, record.Plain, mf.Options("Reading")...)
	require.NoError(t, err)
	assert.Equal(t, "Glucose", rt.Name())

	d, ok := rt.Field("glucose")
	require.True(t, ok)
	assert.Equal(t, []string{"glc"}, d.Input.Keys())
	assert.True(t, d.IsNull("n/a"))
	assert.Equal(t, "mg/dL", d.Comment)
	require.True(t, d.HasDefault)
	assert.InDelta(t, 5.5, d.Default, 1e-9)

	st, err := record.Define[Sample](c, record.HeadSeries, mf.Options("Sample")...)
	require.NoError(t, err)
	assert.Equal(t, []string{"s0", "s1"}, st.SeriesKeys())
}

func TestSeriesTuple(t *testing.T) {
	t.Parallel()

	rm := RecordMapping{Record: "Sample", Fields: []FieldMapping{{
		Field:     "Level",
		Series:    map[string]Keys{"s0": {"a", "b"}, "s1": {"c"}},
		Transform: "mean",
	}}}

	c := record.NewCatalog()
	require.NoError(t, c.RegisterTransform("mean", func(parts ...string) (float64, error) {
		return float64(len(parts)), nil
	}))

	st, err := record.Define[Sample](c, record.HeadSeries, rm.Options()...)
	require.NoError(t, err)

	d, _ := st.Field("level")
	keys, ok := d.Input.For("s0")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
		code string
	}{
		{"version", "version: \"2\"\nrecords: []\n", "unsupported_version"},
		{"empty record", "records:\n  - fields: []\n", "empty_record"},
		{"duplicate record", "records:\n  - record: A\n  - record: A\n", "duplicate_record"},
		{"empty field", "records:\n  - record: A\n    fields:\n      - input: x\n", "empty_field"},
		{"duplicate field", "records:\n  - record: A\n    fields:\n      - field: X\n      - field: X\n", "duplicate_field"},
		{"conflicting input", "records:\n  - record: A\n    fields:\n      - field: X\n        input: x\n        series: {s0: y}\n", "conflicting_input"},
		{"empty series input", "records:\n  - record: A\n    fields:\n      - field: X\n        series: {s0: []}\n", "empty_series_input"},
		{"temporary unique", "records:\n  - record: A\n    fields:\n      - field: X\n        temporary: true\n        unique: true\n", "temporary_unique"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, diagnostic.Codes(err), tt.code)
		})
	}

	assert.True(t, Validate(nil).HasCode("mapping_is_nil"))
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mapping.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	mf, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, mf.Records, 2)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = Parse([]byte("records: ["))
	require.Error(t, err)

	_, err = Parse([]byte("records:\n  - record: A\n    colour: red\n"))
	require.ErrorContains(t, err, "field colour not found")

	_, err = Parse([]byte("records:\n  - record: A\n    fields:\n      - field: X\n        input: [a, \" \"]\n"))
	require.ErrorContains(t, err, "key #2 is empty")

	mf, err = Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, mf.Records)
}

func TestMarshalSingleInput(t *testing.T) {
	t.Parallel()

	out, err := Marshal(&MappingFile{Version: "1", Records: []RecordMapping{{
		Record: "A",
		Fields: []FieldMapping{{Field: "X", Input: Keys{"x"}}},
	}}})
	require.NoError(t, err)
	assert.Contains(t, string(out), "input: x\n")
}
