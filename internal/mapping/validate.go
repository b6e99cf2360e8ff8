package mapping

import (
	"record-mapper/internal/diagnostic"
)

// Validate checks the structure of a mapping file. Field names are checked
// against the record types only when the options are applied by record.Define.
func Validate(mf *MappingFile) *diagnostic.Diagnostics {
	res := &diagnostic.Diagnostics{}
	if mf == nil {
		res.AddError("mapping_is_nil", "mapping file is nil", "", "")
		return res
	}

	if mf.Version != CurrentVersion {
		res.AddErrorf("unsupported_version", "", "", "unsupported mapping version %q", mf.Version)
	}

	seenRecords := map[string]struct{}{}

	for i := range mf.Records {
		rm := &mf.Records[i]

		if rm.Record == "" {
			res.AddErrorf("empty_record", "", "", "record mapping #%d has no record name", i+1)
			continue
		}

		if _, ok := seenRecords[rm.Record]; ok {
			res.AddErrorf("duplicate_record", rm.Record, "", "duplicate record mapping %q", rm.Record)
			continue
		}

		seenRecords[rm.Record] = struct{}{}

		validateFields(res, rm)
	}

	return res
}

func validateFields(res *diagnostic.Diagnostics, rm *RecordMapping) {
	seen := map[string]struct{}{}

	for i := range rm.Fields {
		fm := &rm.Fields[i]

		if fm.Field == "" {
			res.AddErrorf("empty_field", rm.Record, "", "field mapping #%d has no field name", i+1)
			continue
		}

		if _, ok := seen[fm.Field]; ok {
			res.AddErrorf("duplicate_field", rm.Record, fm.Field, "duplicate field mapping %q", fm.Field)
			continue
		}

		seen[fm.Field] = struct{}{}

		if !fm.Input.IsEmpty() && fm.Series != nil {
			res.AddErrorf("conflicting_input", rm.Record, fm.Field, "input and series are mutually exclusive")
		}

		for key, src := range fm.Series {
			if key == "" {
				res.AddErrorf("empty_series_key", rm.Record, fm.Field, "series key must not be empty")
			}

			if src.IsEmpty() {
				res.AddErrorf("empty_series_input", rm.Record, fm.Field, "series key %q has no source key", key)
			}
		}

		if fm.Temporary && fm.Unique {
			res.AddErrorf("temporary_unique", rm.Record, fm.Field, "a temporary field has no column to index")
		}
	}
}
