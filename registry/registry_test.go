package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"record-mapper/record"
	"record-mapper/registry"
	"record-mapper/schema"
)

type SubAssessment struct {
	SubValue float64 `feature:"sub_value,input=sub,comment=m^2"`
}

type Status struct {
	Ident  int    `feature:"ident,ident"`
	Status string `feature:"status"`
}

type MainAssessment struct {
	MainValue float64 `feature:"main_value,input=main,comment=m^2"`
	SubAss    SubAssessment
	Uni       *Status
}

type OtherConfig struct {
	Value float64 `feature:"value,input=v,comment=K"`
}

type SecondAssessment struct {
	Config OtherConfig
}

type ThirdAssessment struct {
	Config OtherConfig
	Score  int `feature:"score,input=score"`
}

var root = schema.Parent{Name: "root"}

func TestRegisterNamespaces(t *testing.T) {
	t.Parallel()

	c := record.NewCatalog()
	record.MustDefine[SubAssessment](c, record.Plain)
	record.MustDefine[Status](c, record.Unique, record.External(), record.Named("Unique"))
	main := record.MustDefine[MainAssessment](c, record.Plain)

	r := registry.New()
	ok, err := r.Register(main,
		registry.InNamespace("a_schema"),
		registry.WithParent(schema.Parent{Namespace: "p_schema", Name: "parent_test"}, true))
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, []string{
		"a_schema.main_assessment",
		"a_schema.sub_assessment",
		"a_schema.unique",
		"p_schema.parent_test",
	}, r.Names())

	ns, ok := r.Namespace(main)
	require.True(t, ok)
	assert.Equal(t, "a_schema", ns)

	s, ok := r.Lookup(main)
	require.True(t, ok)

	parent, _ := s.Root.Column(schema.ParentColumn)
	assert.True(t, parent.Unique)
}

func TestRegisterTwice(t *testing.T) {
	t.Parallel()

	c := record.NewCatalog()
	record.MustDefine[OtherConfig](c, record.Unique)
	second := record.MustDefine[SecondAssessment](c, record.Plain)
	third := record.MustDefine[ThirdAssessment](c, record.Plain)

	r := registry.New()

	ok, err := r.Register(second, registry.WithParent(root, false))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Register(second, registry.WithParent(root, false))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())

	_, err = r.Register(second, registry.WithParent(schema.Parent{Name: "oncle"}, false))
	require.ErrorIs(t, err, registry.ErrParentMismatch)

	// the Unique table is shared, not a collision
	ok, err = r.Register(third, registry.WithParent(root, false))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, r.Len())
	assert.True(t, r.Contains(third))

	assert.Equal(t, []string{"other_config", "root", "second_assessment", "third_assessment"}, r.Names())
}

type GoodAssessment struct {
	SomeValue float64 `feature:"some_value,input=v,comment=°C"`
}

type otherGoodAssessment struct {
	SomeOtherValue float64 `feature:"some_other_value,input=v,comment=°C"`
}

type sameGoodAssessment struct {
	SomeValue float64 `feature:"some_value,input=v,comment=°C"`
}

func TestRegisterSameName(t *testing.T) {
	t.Parallel()

	c := record.NewCatalog()
	good := record.MustDefine[GoodAssessment](c, record.Plain)
	same := record.MustDefine[sameGoodAssessment](c, record.Plain, record.Named("GoodAssessment"))
	other := record.MustDefine[otherGoodAssessment](c, record.Plain, record.Named("GoodAssessment"))

	r := registry.New()

	ok, err := r.Register(good, registry.WithParent(root, false))
	require.NoError(t, err)
	assert.True(t, ok)

	// an equal declaration on another Go type is the same record
	ok, err = r.Register(same, registry.WithParent(root, false))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = r.Register(other, registry.WithParent(root, false))
	require.ErrorIs(t, err, registry.ErrNameCollision)

	assert.True(t, r.Contains(good))
	assert.False(t, r.Contains(other))
	assert.Equal(t, 1, r.Len())
}

type Root struct {
	Value float64 `feature:"value,input=v"`
}

func TestRegisterParentNameCollision(t *testing.T) {
	t.Parallel()

	c := record.NewCatalog()
	good := record.MustDefine[GoodAssessment](c, record.Plain)
	rt := record.MustDefine[Root](c, record.Plain)

	r := registry.New()
	_, err := r.Register(good, registry.WithParent(root, false))
	require.NoError(t, err)

	_, err = r.Register(rt)
	require.ErrorIs(t, err, registry.ErrNameCollision)
}
