package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"record-mapper/ingest"
	"record-mapper/internal/match"
	"record-mapper/record"
	"record-mapper/store"
)

const defaultBatchSize = 500

// Pipeline ingests CSV rows into records and saves them.
type Pipeline struct {
	db      *store.DB
	schemas store.Schemas
	engine  *ingest.Engine
	logger  *slog.Logger
	metrics *Metrics
	workers int
	batch   int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithMetrics enables metric collection.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithWorkers bounds the ingestion goroutines; 0 means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(p *Pipeline) { p.workers = n }
}

// WithBatchSize sets the rows per transaction.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.batch = n
		}
	}
}

// New returns a pipeline saving into db. schemas must know the record types
// passed to Run.
func New(db *store.DB, schemas store.Schemas, engine *ingest.Engine, opts ...Option) *Pipeline {
	p := &Pipeline{
		db:      db,
		schemas: schemas,
		engine:  engine,
		logger:  slog.New(slog.DiscardHandler),
		batch:   defaultBatchSize,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Summary describes one run.
type Summary struct {
	RunID  uuid.UUID
	Record string
	// Rows counts the data rows read.
	Rows int
	// Present rows produced a record, Absent rows were empty and Invalid
	// rows failed a required field.
	Present int
	Absent  int
	Invalid int
	Saved   int
	// Reports holds the non-empty error reports by data row number,
	// counting from 1.
	Reports map[int]*ingest.Report
	// MissingKeys are the source keys of the record absent from the header.
	MissingKeys []string
	Duration    time.Duration
}

// Run reads every row of r as an instance of t and saves the present
// records. On error the summary covers the batches committed so far.
func (p *Pipeline) Run(ctx context.Context, t *record.Type, r *Reader) (*Summary, error) {
	sum := &Summary{
		RunID:   uuid.New(),
		Record:  t.Name(),
		Reports: map[int]*ingest.Report{},
	}
	log := p.logger.With("run", sum.RunID.String(), "record", t.Name())
	start := time.Now()

	defer func() { sum.Duration = time.Since(start) }()

	log.Info("run started", "batch_size", p.batch, "workers", p.workers)

	for _, m := range match.CheckHeader(t, r.Header()) {
		args := []any{"key", m.Key, "fields", m.Paths}
		if len(m.Suggestions) > 0 {
			args = append(args, "similar", m.Suggestions.Columns())
		}

		log.Warn("source key missing from header", args...)

		sum.MissingKeys = append(sum.MissingKeys, m.Key)
	}

	for {
		rows, err := r.Next(p.batch)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return sum, err
		}

		if err := p.runBatch(ctx, log, t, rows, sum); err != nil {
			if p.metrics != nil {
				p.metrics.Failures.WithLabelValues(t.Name()).Inc()
			}

			return sum, err
		}
	}

	log.Info("run finished",
		"rows", sum.Rows, "saved", sum.Saved, "absent", sum.Absent, "invalid", sum.Invalid,
		"duration", time.Since(start))

	return sum, nil
}

func (p *Pipeline) runBatch(ctx context.Context, log *slog.Logger, t *record.Type, rows []map[string]string, sum *Summary) error {
	start := time.Now()
	first := sum.Rows + 1

	results, err := p.engine.IngestMany(ctx, t, rows, p.workers)
	if err != nil {
		return fmt.Errorf("failed to ingest rows %d-%d: %w", first, first+len(rows)-1, err)
	}

	sess, err := p.db.Begin(ctx, p.schemas)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Rollback() }()

	var present, absent, invalid, saved int

	reports := map[int]*ingest.Report{}

	for i, res := range results {
		line := first + i

		if !res.Report.IsEmpty() {
			reports[line] = res.Report
			log.Debug("row has errors", "row", line, "errors", res.Report.String())
		}

		switch {
		case res.Present():
			present++

			if _, err := sess.Save(ctx, t, res.Value); err != nil {
				return fmt.Errorf("failed to save row %d: %w", line, err)
			}

			saved++
		case res.Report.IsEmpty():
			absent++
		default:
			invalid++
		}
	}

	if err := sess.Commit(); err != nil {
		return err
	}

	sum.Rows += len(rows)
	sum.Present += present
	sum.Absent += absent
	sum.Invalid += invalid
	sum.Saved += saved

	for line, rep := range reports {
		sum.Reports[line] = rep
	}

	if m := p.metrics; m != nil {
		m.Rows.WithLabelValues(t.Name(), OutcomePresent).Add(float64(present))
		m.Rows.WithLabelValues(t.Name(), OutcomeAbsent).Add(float64(absent))
		m.Rows.WithLabelValues(t.Name(), OutcomeInvalid).Add(float64(invalid))
		m.Saved.WithLabelValues(t.Name()).Add(float64(saved))
		m.BatchDuration.WithLabelValues(t.Name()).Observe(time.Since(start).Seconds())
	}

	log.Info("batch committed", "first_row", first, "rows", len(rows), "saved", saved)

	return nil
}
