package ingest

// BooleanCases holds the raw tokens recognized for boolean fields.
type BooleanCases struct {
	True  map[string]struct{}
	False map[string]struct{}
	Null  map[string]struct{} // tokens meaning "no value"
}

// NewBooleanCases builds token sets from lists.
func NewBooleanCases(trueTokens, falseTokens, nullTokens []string) BooleanCases {
	return BooleanCases{
		True:  toSet(trueTokens),
		False: toSet(falseTokens),
		Null:  toSet(nullTokens),
	}
}

// DefaultBooleanCases recognizes the usual English and numeric spellings.
func DefaultBooleanCases() BooleanCases {
	return NewBooleanCases(
		[]string{"1", "true", "True", "TRUE", "yes", "Yes", "YES", "y", "Y"},
		[]string{"0", "false", "False", "FALSE", "no", "No", "NO", "n", "N"},
		nil,
	)
}

// Parse returns the value of raw. ok is false for a null token, known is
// false for a token in none of the sets.
func (b BooleanCases) Parse(raw string) (value, ok bool, known bool) {
	if _, null := b.Null[raw]; null {
		return false, false, true
	}

	if _, t := b.True[raw]; t {
		return true, true, true
	}

	if _, f := b.False[raw]; f {
		return false, true, true
	}

	return false, false, false
}

func toSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}

	return set
}
