package pipeline_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"record-mapper/ingest"
	"record-mapper/internal/pipeline"
	"record-mapper/record"
	"record-mapper/registry"
	"record-mapper/store"
)

type Unit struct {
	Symbol string `feature:"symbol,input=unit"`
}

type Reading struct {
	Value float64 `feature:"value,input=value"`
	Flag  bool    `feature:"flag,input=flag"`
	Unit  *Unit
}

type Stray struct {
	Value float64 `feature:"value,input=value"`
}

const readings = `value,unit,flag
12.5,mg/dL,yes
,,
abc,mg/dL,no
7,mg/dL,no
`

type fixture struct {
	db      *store.DB
	reg     *registry.Registry
	reading *record.Type
	unit    *record.Type
	catalog *record.Catalog
}

func setup(t *testing.T) fixture {
	t.Helper()

	c := record.NewCatalog()
	unit := record.MustDefine[Unit](c, record.Unique)
	reading := record.MustDefine[Reading](c, record.Plain)

	reg := registry.New()
	_, err := reg.Register(reading)
	require.NoError(t, err)

	ctx := context.Background()

	db, err := store.Open(ctx, store.Config{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.CreateAll(ctx, reg))

	return fixture{db: db, reg: reg, reading: reading, unit: unit, catalog: c}
}

func (f fixture) count(t *testing.T, rt *record.Type) int64 {
	t.Helper()

	sess, err := f.db.Begin(context.Background(), f.reg)
	require.NoError(t, err)

	defer func() { _ = sess.Rollback() }()

	n, err := sess.Count(context.Background(), rt)
	require.NoError(t, err)

	return n
}

func TestRun(t *testing.T) {
	t.Parallel()

	f := setup(t)

	metrics, err := pipeline.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	var logs bytes.Buffer

	p := pipeline.New(f.db, f.reg, ingest.New(),
		pipeline.WithBatchSize(2),
		pipeline.WithWorkers(2),
		pipeline.WithMetrics(metrics),
		pipeline.WithLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))),
	)

	r, err := pipeline.NewReader(strings.NewReader(readings), 0)
	require.NoError(t, err)

	sum, err := p.Run(context.Background(), f.reading, r)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, sum.RunID)
	assert.Equal(t, "Reading", sum.Record)
	assert.Equal(t, 4, sum.Rows)
	assert.Equal(t, 2, sum.Present)
	assert.Equal(t, 1, sum.Absent)
	assert.Equal(t, 1, sum.Invalid)
	assert.Equal(t, 2, sum.Saved)

	require.Contains(t, sum.Reports, 3)
	assert.Equal(t, map[string]string{"Reading.value": "Invalid numeric: abc"}, sum.Reports[3].Flatten())
	assert.Len(t, sum.Reports, 1)
	assert.Empty(t, sum.MissingKeys)

	assert.Equal(t, int64(2), f.count(t, f.reading))
	assert.Equal(t, int64(1), f.count(t, f.unit))

	assert.InDelta(t, 2, testutil.ToFloat64(metrics.Rows.WithLabelValues("Reading", pipeline.OutcomePresent)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Rows.WithLabelValues("Reading", pipeline.OutcomeAbsent)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Rows.WithLabelValues("Reading", pipeline.OutcomeInvalid)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.Saved.WithLabelValues("Reading")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.BatchDuration))

	assert.Contains(t, logs.String(), "run="+sum.RunID.String())
	assert.Contains(t, logs.String(), "batch committed")
	assert.Contains(t, logs.String(), "row has errors")
}

func TestRunUnregistered(t *testing.T) {
	t.Parallel()

	f := setup(t)
	stray := record.MustDefine[Stray](f.catalog, record.Plain)

	metrics, err := pipeline.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	p := pipeline.New(f.db, f.reg, ingest.New(), pipeline.WithMetrics(metrics))

	r, err := pipeline.NewReader(strings.NewReader("value\n1\n2\n"), 0)
	require.NoError(t, err)

	sum, err := p.Run(context.Background(), stray, r)
	require.ErrorIs(t, err, store.ErrNotRegistered)
	assert.Contains(t, err.Error(), "failed to save row 1")
	assert.Equal(t, 0, sum.Saved)
	assert.Equal(t, 0, sum.Rows)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Failures.WithLabelValues("Stray")), 0)
}

func TestRunSeriesRecord(t *testing.T) {
	t.Parallel()

	type Sample struct {
		Ident *record.SeriesIdent
		Level float64 `feature:"level,series=s0:level_0"`
	}

	f := setup(t)
	sample := record.MustDefine[Sample](f.catalog, record.HeadSeries)

	p := pipeline.New(f.db, f.reg, ingest.New())

	r, err := pipeline.NewReader(strings.NewReader("level_0\n1\n"), 0)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), sample, r)
	require.ErrorIs(t, err, ingest.ErrSeriesKey)
}

func TestRunMissingColumns(t *testing.T) {
	t.Parallel()

	f := setup(t)

	var logs bytes.Buffer

	p := pipeline.New(f.db, f.reg, ingest.New(), pipeline.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	r, err := pipeline.NewReader(strings.NewReader("Value,unit\n1,mg/dL\n"), 0)
	require.NoError(t, err)

	sum, err := p.Run(context.Background(), f.reading, r)
	require.NoError(t, err)

	assert.Equal(t, []string{"flag", "value"}, sum.MissingKeys)
	assert.Equal(t, 1, sum.Invalid)
	assert.Contains(t, logs.String(), "source key missing from header")
	assert.Contains(t, logs.String(), "similar=[Value]")
}

func TestNewMetricsTwice(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()

	first, err := pipeline.NewMetrics(reg)
	require.NoError(t, err)

	second, err := pipeline.NewMetrics(reg)
	require.NoError(t, err)

	assert.Same(t, first.Rows, second.Rows)
	assert.Same(t, first.BatchDuration, second.BatchDuration)
}

func TestReader(t *testing.T) {
	t.Parallel()

	r, err := pipeline.NewReader(strings.NewReader("\ufeffa; b\n1;2\n3;4\n5;6\n"), ';')
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, r.Header())

	rows, err := r.Next(2)
	require.NoError(t, err)
	assert.Equal(t, []map[string]string{{"a": "1", "b": "2"}, {"a": "3", "b": "4"}}, rows)

	rows, err = r.Next(2)
	require.NoError(t, err)
	assert.Equal(t, []map[string]string{{"a": "5", "b": "6"}}, rows)

	_, err = r.Next(2)
	require.ErrorIs(t, err, io.EOF)
}

func TestReaderErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		msg   string
	}{
		{"empty", "", "empty input"},
		{"duplicate column", "a,b,a\n", `duplicate CSV column "a"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := pipeline.NewReader(strings.NewReader(tt.input), 0)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}

	r, err := pipeline.NewReader(strings.NewReader("a,b\n1\n"), 0)
	require.NoError(t, err)

	_, err = r.Next(10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read CSV")
}
