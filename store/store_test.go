package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"record-mapper/ingest"
	"record-mapper/primitive"
	"record-mapper/record"
	"record-mapper/registry"
	"record-mapper/store"
)

type Unit struct {
	Symbol string   `feature:"symbol,input=unit"`
	Scale  *float64 `feature:"scale,input=scale,null=NA"`
}

type Reading struct {
	Value float64        `feature:"value,input=v"`
	Taken primitive.Date `feature:"taken,input=taken"`
	Unit  *Unit
}

type Sample struct {
	Ident  *record.SeriesIdent
	Level  float64  `feature:"level,series=s0:level_0|s1:level_1"`
	Marker *float64 `feature:"marker,series=s1:marker_1,null=NA"`
}

type Visit struct {
	Site     string         `feature:"site,input=site"`
	At       time.Time      `feature:"at,input=at"`
	Rest     time.Duration  `feature:"rest,input=rest"`
	Flags    map[string]any `feature:"flags,input=flags"`
	Reading  Reading
	Samples  []Sample
	Scratch  string  `feature:",temporary"`
	Problems *string `feature:"problems,error"`
}

type fixture struct {
	db    *store.DB
	reg   *registry.Registry
	visit *record.Type
	unit  *record.Type
}

func setup(t *testing.T) fixture {
	t.Helper()

	c := record.NewCatalog()
	unit := record.MustDefine[Unit](c, record.Unique)
	record.MustDefine[Reading](c, record.Plain)
	record.MustDefine[Sample](c, record.HeadSeries)
	visit := record.MustDefine[Visit](c, record.Plain)

	reg := registry.New()
	_, err := reg.Register(visit)
	require.NoError(t, err)

	ctx := context.Background()

	db, err := store.Open(ctx, store.Config{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.CreateAll(ctx, reg))

	return fixture{db: db, reg: reg, visit: visit, unit: unit}
}

func (f fixture) begin(t *testing.T) *store.Session {
	t.Helper()

	sess, err := f.db.Begin(context.Background(), f.reg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Rollback() })

	return sess
}

func ptr[T any](v T) *T { return &v }

func sampleVisit(symbol string) *Visit {
	return &Visit{
		Site:  "north",
		At:    time.Date(2024, 3, 1, 10, 30, 0, 0, time.FixedZone("CET", 3600)),
		Rest:  90 * time.Second,
		Flags: map[string]any{"fasting": true, "score": 1.5},
		Reading: Reading{
			Value: 12.5,
			Taken: primitive.NewDate(2024, 2, 29),
			Unit:  &Unit{Symbol: symbol, Scale: ptr(0.1)},
		},
		Samples: []Sample{
			{Ident: &record.SeriesIdent{Key: "s0"}, Level: 1},
			{Ident: &record.SeriesIdent{Key: "s1"}, Level: 2, Marker: ptr(0.5)},
		},
		Scratch: "dropped",
	}
}

func TestSaveLoad(t *testing.T) {
	t.Parallel()

	f := setup(t)
	sess := f.begin(t)
	ctx := context.Background()

	in := sampleVisit("mg/dL")

	id, err := sess.Save(ctx, f.visit, in)
	require.NoError(t, err)

	loaded, err := sess.Load(ctx, f.visit, id)
	require.NoError(t, err)

	out, ok := loaded.(*Visit)
	require.True(t, ok)

	assert.True(t, record.Equal(f.visit, in, out), "stored %s\nloaded %s", spew.Sdump(in), spew.Sdump(out))
	assert.True(t, in.At.Equal(out.At))
	assert.Equal(t, in.Flags, out.Flags)
	assert.Equal(t, in.Reading.Taken, out.Reading.Taken)
	assert.Equal(t, "", out.Scratch)
	assert.Nil(t, out.Problems)
	require.Len(t, out.Samples, 2)
	assert.Equal(t, "s1", out.Samples[1].Ident.Key)
	assert.Nil(t, out.Samples[0].Marker)

	_, err = sess.Load(ctx, f.visit, id+100)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, sess.Commit())
}

func TestIngestRoundTrip(t *testing.T) {
	t.Parallel()

	f := setup(t)
	ctx := context.Background()

	rows := []map[string]string{
		{
			"site": "north", "at": "2024-03-01 10:30:00", "rest": "1m30s", "flags": `{"score": 2}`,
			"v": "12,5", "taken": "2024-02-29", "unit": "mg/dL", "scale": "NA",
			"level_0": "1", "level_1": "<2", "marker_1": "NA",
		},
		{
			"site": "south", "at": "2024-03-02T08:00:00", "rest": "0s", "flags": "{}",
			"v": "7", "taken": "2024", "unit": "", "scale": "",
			"level_0": "", "level_1": "3", "marker_1": "0,25",
		},
	}

	results, err := ingest.New().IngestMany(ctx, f.visit, rows, 2)
	require.NoError(t, err)

	sess := f.begin(t)

	for _, res := range results {
		require.True(t, res.Present(), res.Report.String())

		id, err := sess.Save(ctx, f.visit, res.Value)
		require.NoError(t, err)

		loaded, err := sess.Load(ctx, f.visit, id)
		require.NoError(t, err)
		assert.True(t, record.Equal(f.visit, res.Value, loaded), spew.Sdump(res.Value, loaded))
	}

	all, err := sess.LoadAll(ctx, f.visit)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "south", all[1].(*Visit).Site)
	assert.Nil(t, all[1].(*Visit).Reading.Unit)
}

func TestDeduplication(t *testing.T) {
	t.Parallel()

	f := setup(t)
	ctx := context.Background()
	sess := f.begin(t)

	first, err := sess.Save(ctx, f.visit, sampleVisit("mg/dL"))
	require.NoError(t, err)

	second, err := sess.Save(ctx, f.visit, sampleVisit("mg/dL"))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	n, err := sess.Count(ctx, f.unit)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = sess.Save(ctx, f.visit, sampleVisit("mmol/L"))
	require.NoError(t, err)

	n, err = sess.Count(ctx, f.unit)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	a, err := sess.Load(ctx, f.visit, first)
	require.NoError(t, err)

	b, err := sess.Load(ctx, f.visit, second)
	require.NoError(t, err)
	assert.Equal(t, a.(*Visit).Reading.Unit, b.(*Visit).Reading.Unit)

	// two series identities, shared by every visit
	samples, ok := f.visit.Field("samples")
	require.True(t, ok)

	idents, err := sess.Count(ctx, samples.Record.SeriesIdentRecord().Record)
	require.NoError(t, err)
	assert.EqualValues(t, 2, idents)

	require.NoError(t, sess.Commit())
}

func TestGetOrCreate(t *testing.T) {
	t.Parallel()

	f := setup(t)
	ctx := context.Background()

	sess := f.begin(t)

	id, err := sess.GetOrCreate(ctx, f.unit, &Unit{Symbol: "g/L"})
	require.NoError(t, err)

	again, err := sess.GetOrCreate(ctx, f.unit, Unit{Symbol: "g/L"})
	require.NoError(t, err)
	assert.Equal(t, id, again)

	scaled, err := sess.GetOrCreate(ctx, f.unit, &Unit{Symbol: "g/L", Scale: ptr(1.0)})
	require.NoError(t, err)
	assert.NotEqual(t, id, scaled)

	require.NoError(t, sess.Commit())

	// a new session finds the committed row by querying
	next := f.begin(t)

	found, err := next.GetOrCreate(ctx, f.unit, &Unit{Symbol: "g/L"})
	require.NoError(t, err)
	assert.Equal(t, id, found)

	_, err = next.GetOrCreate(ctx, f.visit, sampleVisit("g/L"))
	require.ErrorIs(t, err, store.ErrNotUnique)

	type Stray struct {
		Code string `feature:"code,input=code"`
	}

	stray := record.MustDefine[Stray](record.NewCatalog(), record.Unique)
	_, err = next.GetOrCreate(ctx, stray, &Stray{Code: "x"})
	require.ErrorIs(t, err, store.ErrNotRegistered)
}

type Lab struct {
	Name string `feature:"name,input=lab"`
}

type Bounds struct {
	Low float64 `feature:"low,input=low"`
	Lab Lab
}

type Holder struct {
	Note   string `feature:"note,input=note"`
	Bounds Bounds
}

func TestUniqueReferencesUnique(t *testing.T) {
	t.Parallel()

	c := record.NewCatalog()
	lab := record.MustDefine[Lab](c, record.Unique)
	bounds := record.MustDefine[Bounds](c, record.Unique)
	holder := record.MustDefine[Holder](c, record.Plain)

	reg := registry.New()
	_, err := reg.Register(holder)
	require.NoError(t, err)

	s, ok := reg.Lookup(holder)
	require.True(t, ok)

	tb, ok := s.Table("bounds")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"low", "lab"}, tb.Unique)

	ctx := context.Background()

	db, err := store.Open(ctx, store.Config{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.CreateAll(ctx, reg))

	sess, err := db.Begin(ctx, reg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Rollback() })

	north := &Holder{Note: "a", Bounds: Bounds{Low: 1, Lab: Lab{Name: "north"}}}
	south := &Holder{Note: "b", Bounds: Bounds{Low: 1, Lab: Lab{Name: "south"}}}
	northAgain := &Holder{Note: "c", Bounds: Bounds{Low: 1, Lab: Lab{Name: "north"}}}

	ids := make([]int64, 0, 3)

	for _, h := range []*Holder{north, south, northAgain} {
		id, err := sess.Save(ctx, holder, h)
		require.NoError(t, err)

		ids = append(ids, id)
	}

	n, err := sess.Count(ctx, bounds)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = sess.Count(ctx, lab)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	for i, want := range []*Holder{north, south, northAgain} {
		loaded, err := sess.Load(ctx, holder, ids[i])
		require.NoError(t, err)
		assert.Equal(t, want, loaded, spew.Sdump(loaded))
	}

	first, err := sess.GetOrCreate(ctx, bounds, Bounds{Low: 1, Lab: Lab{Name: "south"}})
	require.NoError(t, err)

	second, err := sess.GetOrCreate(ctx, bounds, &Bounds{Low: 1, Lab: Lab{Name: "south"}})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := sess.GetOrCreate(ctx, bounds, &Bounds{Low: 1, Lab: Lab{Name: "west"}})
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestIsDuplicate(t *testing.T) {
	t.Parallel()

	f := setup(t)
	ctx := context.Background()

	_, err := f.db.SQL().ExecContext(ctx, `INSERT INTO "unit" ("symbol", "scale") VALUES ('x', 1)`)
	require.NoError(t, err)

	_, err = f.db.SQL().ExecContext(ctx, `INSERT INTO "unit" ("symbol", "scale") VALUES ('x', 1)`)
	require.Error(t, err)
	assert.True(t, store.IsDuplicate(err))

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"postgres unique violation", &pgconn.PgError{Code: "23505"}, true},
		{"postgres other", &pgconn.PgError{Code: "23503"}, false},
		{"mysql duplicate key", &mysql.MySQLError{Number: 1062}, true},
		{"mysql other", &mysql.MySQLError{Number: 1452}, false},
		{"wrapped", errors.Join(errors.New("insert"), store.ErrDuplicate), true},
		{"plain", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, store.IsDuplicate(tt.err))
		})
	}
}

func TestMySQLDSN(t *testing.T) {
	t.Parallel()

	dsn := store.MySQLDSN("db", 3306, "assessments", "reader", "secret")

	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "db:3306", cfg.Addr)
	assert.Equal(t, "assessments", cfg.DBName)
	assert.True(t, cfg.ParseTime)
}

func TestOpenUnsupportedDriver(t *testing.T) {
	t.Parallel()

	_, err := store.Open(context.Background(), store.Config{Driver: "oracle"})
	require.Error(t, err)
}
