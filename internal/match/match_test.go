package match_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"record-mapper/internal/match"
	"record-mapper/record"
)

type Unit struct {
	Symbol string `feature:"symbol,input=unit"`
}

type Sample struct {
	Ident *record.SeriesIdent
	Level float64  `feature:"level,series=s0:level_0|s1:level_1"`
	Ratio *float64 `feature:"ratio,series_inputs=s0:num_0+den|s1:num_1+den,transform=ratio"`
}

type Visit struct {
	Site    string `feature:"site,input=site"`
	Unit    *Unit
	Samples []Sample
	Scratch string `feature:",temporary"`
}

func ratio(num, den string) (float64, bool) { return 0, num != "" && den != "" }

func visitType(t *testing.T) *record.Type {
	t.Helper()

	c := record.NewCatalog()
	require.NoError(t, c.RegisterTransform("ratio", ratio))
	record.MustDefine[Unit](c, record.Unique)
	record.MustDefine[Sample](c, record.HeadSeries)

	return record.MustDefine[Visit](c, record.Plain)
}

func TestInputKeys(t *testing.T) {
	t.Parallel()

	keys := match.InputKeys(visitType(t))

	assert.Equal(t, []match.KeyUse{
		{Key: "site", Path: "Visit.site"},
		{Key: "unit", Path: "Visit.unit.symbol"},
		{Key: "level_0", Path: "Visit.samples.level", SeriesKey: "s0"},
		{Key: "level_1", Path: "Visit.samples.level", SeriesKey: "s1"},
		{Key: "num_0", Path: "Visit.samples.ratio", SeriesKey: "s0"},
		{Key: "den", Path: "Visit.samples.ratio", SeriesKey: "s0"},
		{Key: "num_1", Path: "Visit.samples.ratio", SeriesKey: "s1"},
		{Key: "den", Path: "Visit.samples.ratio", SeriesKey: "s1"},
	}, keys)
}

func TestCheckHeader(t *testing.T) {
	t.Parallel()

	vt := visitType(t)

	missing := match.CheckHeader(vt, []string{"site", "unit", "level_0", "level_1", "num_0", "num_1", "den"})
	assert.Empty(t, missing)

	missing = match.CheckHeader(vt, []string{"Site", "unit", "level_0", "Level-1", "num_0", "num_1", "denominator"})
	require.Len(t, missing, 3)

	assert.Equal(t, "den", missing[0].Key)
	assert.Equal(t, []string{"Visit.samples.ratio"}, missing[0].Paths)
	assert.Empty(t, missing[0].Suggestions)

	assert.Equal(t, "level_1", missing[1].Key)
	assert.Equal(t, []string{"Level-1"}, missing[1].Suggestions.Columns())

	assert.Equal(t, "site", missing[2].Key)

	best, ok := missing[2].Suggestions.Best()
	require.True(t, ok)
	assert.Equal(t, "Site", best.Column)
	assert.InDelta(t, 1.0, best.Score, 1e-9)
}

func TestSuggest(t *testing.T) {
	t.Parallel()

	columns := []string{"lactate_1", "lactate_0", "Lactate-0", "glucose", "lactate_unit"}

	got := match.Suggest("lactate_0", columns, match.DefaultThreshold, 0)
	assert.Equal(t, []string{"Lactate-0", "lactate_0", "lactate_1", "lactate_unit"}, got.Columns())

	got = match.Suggest("lactate_0", columns, 0.9, 1)
	assert.Equal(t, []string{"Lactate-0"}, got.Columns())

	got = match.Suggest("arrival", columns, match.DefaultThreshold, 3)
	assert.Empty(t, got)

	_, ok := got.Best()
	assert.False(t, ok)
}
