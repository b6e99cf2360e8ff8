package warehouse_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"record-mapper/ingest"
	"record-mapper/internal/mapping"
	"record-mapper/primitive"
	"record-mapper/record"
	"record-mapper/registry"
	"record-mapper/store"
	"record-mapper/warehouse"
)

func ptr[T any](v T) *T { return &v }

func row() map[string]string {
	return map[string]string{
		"case_id":      "C-001",
		"visit_date":   "01.03.24",
		"arrival_time": "08:15",
		"lab":          "Central",
		"lab_site":     "NA",
		"glucose":      "0,9",
		"glucose_unit": "g/L",
		"fasting":      "yes",
		"range_low":    "70",
		"range_high":   "100",
		"range_unit":   "mg/dL",
		"draw_0":       "2024-03-01 08:30",
		"lactate_0":    "1.2",
		"lactate_unit": "mmol/L",
		"hemolysis_0":  "0",
		"draw_1":       "2024-03-01 09:30",
		"lactate_1":    "",
		"hemolysis_1":  "NA",
		"draw_2":       "",
		"lactate_2":    "",
		"hemolysis_2":  "",
	}
}

func TestNewCatalog(t *testing.T) {
	t.Parallel()

	c, err := warehouse.NewCatalog(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, record.Unique, c.Lab.Kind())
	assert.Equal(t, record.Unique, c.Range.Kind())
	assert.Equal(t, record.HeadSeries, c.Draw.Kind())
	assert.Equal(t, record.NestedSeries, c.Hemolysis.Kind())
	assert.Equal(t, []string{"t0", "t1", "t2"}, c.Draw.SeriesKeys())

	root, ok := c.Root("Assessment")
	require.True(t, ok)
	assert.Same(t, c.Assessment, root)

	_, ok = c.Root("Draw")
	assert.False(t, ok)

	reg := registry.New()
	_, err = reg.Register(c.Assessment)
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"assessment", "draw", "draw_ident", "glucose", "hemolysis", "lab", "range"},
		reg.Names())
}

func TestIngestAssessment(t *testing.T) {
	t.Parallel()

	c, err := warehouse.NewCatalog(nil, nil)
	require.NoError(t, err)

	res, err := ingest.New().Ingest(c.Assessment, row())
	require.NoError(t, err)
	require.True(t, res.Present(), res.Report.String())
	assert.True(t, res.Report.IsEmpty())

	got := res.Value.(*warehouse.Assessment)

	assert.Equal(t, "C-001", got.Case)
	assert.Equal(t, primitive.NewDate(2024, 3, 1), got.Visit)
	assert.Equal(t, ptr(8*time.Hour+15*time.Minute), got.Arrival)
	assert.Equal(t, "main", got.Site)
	assert.Equal(t, warehouse.Lab{Name: "Central"}, got.Lab)
	assert.Nil(t, got.Problems)

	require.NotNil(t, got.Glucose)
	assert.InDelta(t, 90, got.Glucose.Value, 1e-9)
	assert.Equal(t, ptr(true), got.Glucose.Fasting)
	assert.Equal(t, &warehouse.Range{Low: 70, High: 100, Unit: "mg/dL"}, got.Glucose.Range)

	require.Len(t, got.Draws, 2)

	first := got.Draws[0]
	assert.Equal(t, &record.SeriesIdent{Key: "t0"}, first.Ident)
	assert.Equal(t, time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC), first.Taken)
	require.NotNil(t, first.Lactate)
	assert.InDelta(t, 1.2, *first.Lactate, 1e-9)
	assert.Equal(t, &warehouse.Hemolysis{Index: ptr(0)}, first.Hemolysis)

	second := got.Draws[1]
	assert.Equal(t, &record.SeriesIdent{Key: "t1"}, second.Ident)
	assert.Nil(t, second.Lactate)
	assert.Nil(t, second.Hemolysis)
}

func TestIngestAssessmentErrors(t *testing.T) {
	t.Parallel()

	c, err := warehouse.NewCatalog(nil, nil)
	require.NoError(t, err)

	in := row()
	in["visit_date"] = "31.02.2024"
	in["lactate_1"] = "2.5"
	in["lactate_unit"] = "furlong"

	res, err := ingest.New().Ingest(c.Assessment, in)
	require.NoError(t, err)
	assert.False(t, res.Present())

	errs := res.Report.Flatten()
	assert.True(t, strings.HasPrefix(errs["Assessment.visit"], "Transformer failed for visit"), errs)
	assert.NotContains(t, errs, "Assessment.draws.Draw_t1.lactate_t1")

	res, err = ingest.New(ingest.WithOptionalErrors()).Ingest(c.Assessment, in)
	require.NoError(t, err)

	errs = res.Report.Flatten()
	assert.Contains(t, errs, "Assessment.draws.Draw_t1.lactate_t1")
}

func TestMapping(t *testing.T) {
	t.Parallel()

	mf, err := mapping.Parse([]byte(`
records:
  - record: Lab
    fields:
      - field: Name
        input: laboratory
  - record: Glucose
    fields:
      - field: Value
        input: [glc, glc_unit]
        transform: glucose
`))
	require.NoError(t, err)

	c, err := warehouse.NewCatalog(nil, mf)
	require.NoError(t, err)

	in := row()
	in["laboratory"] = in["lab"]
	in["glc"], in["glc_unit"] = "5", ""
	delete(in, "lab")
	delete(in, "glucose")

	res, err := ingest.New().Ingest(c.Assessment, in)
	require.NoError(t, err)
	require.True(t, res.Present(), res.Report.String())

	got := res.Value.(*warehouse.Assessment)
	assert.Equal(t, "Central", got.Lab.Name)
	assert.InDelta(t, 5, got.Glucose.Value, 1e-9)
}

func TestSaveLoadAssessment(t *testing.T) {
	t.Parallel()

	c, err := warehouse.NewCatalog(nil, nil)
	require.NoError(t, err)

	reg := registry.New()
	_, err = reg.Register(c.Assessment)
	require.NoError(t, err)

	ctx := context.Background()

	db, err := store.Open(ctx, store.Config{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.CreateAll(ctx, reg))

	res, err := ingest.New().Ingest(c.Assessment, row())
	require.NoError(t, err)
	require.True(t, res.Present())

	other := row()
	other["case_id"] = "C-002"

	res2, err := ingest.New().Ingest(c.Assessment, other)
	require.NoError(t, err)
	require.True(t, res2.Present())

	sess, err := db.Begin(ctx, reg)
	require.NoError(t, err)

	defer func() { _ = sess.Rollback() }()

	id, err := sess.Save(ctx, c.Assessment, res.Value)
	require.NoError(t, err)

	_, err = sess.Save(ctx, c.Assessment, res2.Value)
	require.NoError(t, err)

	labs, err := sess.Count(ctx, c.Lab)
	require.NoError(t, err)
	assert.Equal(t, int64(1), labs)

	loaded, err := sess.Load(ctx, c.Assessment, id)
	require.NoError(t, err)
	assert.True(t, record.Equal(c.Assessment, res.Value, loaded))
}
