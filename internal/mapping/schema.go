package mapping

// CurrentVersion is the only supported mapping file version.
const CurrentVersion = "1"

// MappingFile represents the root of a YAML source-mapping file.
type MappingFile struct {
	// Version of the mapping schema (for future compatibility).
	Version string `yaml:"version,omitempty"`

	// Records lists the per-record overrides.
	Records []RecordMapping `yaml:"records"`
}

// RecordMapping overrides the declaration of one record type.
type RecordMapping struct {
	// Record is the Go type name the record is defined from.
	Record string `yaml:"record"`

	// Name renames the record type, and with it its table.
	Name string `yaml:"name,omitempty"`

	// Fields are applied in order after the struct tags.
	Fields []FieldMapping `yaml:"fields,omitempty"`
}

// FieldMapping overrides one struct field. Unset keys keep the value from
// the struct tag.
type FieldMapping struct {
	// Field is the Go struct field name.
	Field string `yaml:"field"`

	// Column renames the column.
	Column string `yaml:"column,omitempty"`

	// Input is one source key, or a tuple of keys for transformers.
	Input Keys `yaml:"input,omitempty"`

	// Series maps series keys to source keys inside series records.
	Series map[string]Keys `yaml:"series,omitempty"`

	// Null lists raw values meaning "no value". An empty list is still a
	// reason for optionality.
	Null *Keys `yaml:"null,omitempty"`

	// Transform names a transformer registered on the catalog.
	Transform string `yaml:"transform,omitempty"`

	// Default is parsed by the field type.
	Default *string `yaml:"default,omitempty"`

	Comment   string `yaml:"comment,omitempty"`
	Unique    bool   `yaml:"unique,omitempty"`
	Temporary bool   `yaml:"temporary,omitempty"`
}

// Record returns the mapping of the record defined from the Go type name.
func (mf *MappingFile) Record(name string) (*RecordMapping, bool) {
	if mf == nil {
		return nil, false
	}

	for i := range mf.Records {
		if mf.Records[i].Record == name {
			return &mf.Records[i], true
		}
	}

	return nil, false
}
