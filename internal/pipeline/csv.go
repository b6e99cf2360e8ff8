package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Reader yields CSV data rows as input rows keyed by the header.
type Reader struct {
	r      *csv.Reader
	header []string
	line   int
}

// NewReader reads the header line of r. comma is the field delimiter; zero
// means ','.
func NewReader(r io.Reader, comma rune) (*Reader, error) {
	cr := csv.NewReader(r)
	if comma != 0 {
		cr.Comma = comma
	}

	cr.FieldsPerRecord = 0
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("failed to read CSV header: empty input")
		}

		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	h := make([]string, len(header))
	for i, name := range header {
		h[i] = strings.TrimSpace(name)
	}

	h[0] = strings.TrimPrefix(h[0], "\ufeff")

	seen := make(map[string]struct{}, len(h))
	for _, name := range h {
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("duplicate CSV column %q", name)
		}

		seen[name] = struct{}{}
	}

	return &Reader{r: cr, header: h, line: 1}, nil
}

// Header returns the column names.
func (r *Reader) Header() []string { return r.header }

// Next returns up to n rows. It returns io.EOF once no rows are left.
func (r *Reader) Next(n int) ([]map[string]string, error) {
	var rows []map[string]string

	for len(rows) < n {
		fields, err := r.r.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		r.line++

		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}

		row := make(map[string]string, len(r.header))
		for i, name := range r.header {
			row[name] = fields[i]
		}

		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, io.EOF
	}

	return rows, nil
}
