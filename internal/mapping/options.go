package mapping

import (
	"record-mapper/record"
)

// Options returns the record options of the record defined from the Go type
// name. They are meant to be passed to record.Define after the kind.
func (mf *MappingFile) Options(name string) []record.Option {
	rm, ok := mf.Record(name)
	if !ok {
		return nil
	}

	return rm.Options()
}

// Options translates the mapping into record options.
func (rm *RecordMapping) Options() []record.Option {
	var opts []record.Option

	if rm.Name != "" {
		opts = append(opts, record.Named(rm.Name))
	}

	for i := range rm.Fields {
		fm := &rm.Fields[i]
		opts = append(opts, record.WithField(fm.Field, fm.fieldOptions()...))
	}

	return opts
}

func (fm *FieldMapping) fieldOptions() []record.FieldOption {
	var opts []record.FieldOption

	if fm.Column != "" {
		opts = append(opts, record.Column(fm.Column))
	}

	// transformers always take a tuple, even of one key
	tuple := fm.Transform != ""

	switch {
	case fm.Input.IsEmpty():
	case tuple || fm.Input.IsTuple():
		opts = append(opts, record.InputTuple(fm.Input...))
	default:
		opts = append(opts, record.Input(fm.Input.First()))
	}

	if fm.Series != nil {
		opts = append(opts, seriesOption(fm.Series, tuple))
	}

	if fm.Null != nil {
		opts = append(opts, record.NullMarkers(*fm.Null...))
	}

	if fm.Transform != "" {
		opts = append(opts, record.Transform(fm.Transform, nil))
	}

	if fm.Default != nil {
		opts = append(opts, record.DefaultText(*fm.Default))
	}

	if fm.Comment != "" {
		opts = append(opts, record.Comment(fm.Comment))
	}

	if fm.Unique {
		opts = append(opts, record.UniqueIndex())
	}

	if fm.Temporary {
		opts = append(opts, record.Temporary())
	}

	return opts
}

// seriesOption uses single keys unless some series key maps to a tuple.
func seriesOption(series map[string]Keys, tuple bool) record.FieldOption {
	for _, src := range series {
		if src.IsTuple() {
			tuple = true
			break
		}
	}

	if tuple {
		m := make(map[string][]string, len(series))
		for k, src := range series {
			m[k] = src
		}

		return record.SeriesInputTuple(m)
	}

	m := make(map[string]string, len(series))
	for k, src := range series {
		m[k] = src.First()
	}

	return record.SeriesInput(m)
}
