package match

import (
	"cmp"
	"slices"
)

// DefaultThreshold is the lowest similarity Suggest reports.
const DefaultThreshold = 0.6

// Candidate is a header column that may be meant by a missing source key.
type Candidate struct {
	Column string
	// Score is the KeySimilarity of the key and the column.
	Score float64
}

// CandidateList is ranked best first.
type CandidateList []Candidate

// Columns returns the column names in rank order.
func (cl CandidateList) Columns() []string {
	out := make([]string, len(cl))
	for i, c := range cl {
		out[i] = c.Column
	}

	return out
}

// Best returns the highest-ranked candidate, if any.
func (cl CandidateList) Best() (Candidate, bool) {
	if len(cl) == 0 {
		return Candidate{}, false
	}

	return cl[0], true
}

// Suggest ranks the columns scoring at least threshold against key, best
// first; equal scores keep alphabetical order. At most limit candidates are
// returned when limit > 0.
func Suggest(key string, columns []string, threshold float64, limit int) CandidateList {
	var cl CandidateList

	for _, col := range columns {
		score := KeySimilarity(key, col)
		if score >= threshold {
			cl = append(cl, Candidate{Column: col, Score: score})
		}
	}

	slices.SortFunc(cl, func(a, b Candidate) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}

		return cmp.Compare(a.Column, b.Column)
	})

	if limit > 0 && len(cl) > limit {
		cl = cl[:limit]
	}

	return cl
}
