package deref_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/deref"
	"github.com/jhuapl-dtnma/refda-go/pkg/semtype"
	"github.com/jhuapl-dtnma/refda-go/pkg/store"
)

func TestDereference_ResolvesAndBindsParams(t *testing.T) {
	s := store.New()
	ns, _ := s.AddNamespace(ari.NameSegment("x"), ari.NameSegment("m"), "r1")
	_, err := ns.AddObject(ari.KindCtrl, &store.Descriptor{
		Name: ari.NameSegment("inspect"),
		Params: []store.FormalParam{
			{Name: "target", Type: semtype.Builtin(ari.KindTextstr)},
		},
	})
	require.NoError(t, err)

	path := ari.ObjectPath{Org: ari.NameSegment("x"), Model: ari.NameSegment("m"), Type: ari.KindCtrl, Object: ari.NameSegment("inspect")}
	ref := ari.NewReference(path).WithParams(ari.Text("hello"))

	res, err := deref.Dereference(s, ref)
	require.NoError(t, err)
	assert.Equal(t, ari.KindCtrl, res.Kind)
	assert.True(t, res.Aparams.Get(0).Equal(ari.Text("hello")))
	assert.False(t, res.Aparams.AnyUndef)
}

func TestBindParams_CascadeAndDefaults(t *testing.T) {
	formals := []store.FormalParam{
		{Name: "a", Type: semtype.Builtin(ari.KindInt)},
		{Name: "b", Type: semtype.Builtin(ari.KindInt), Default: ari.Int(9)},
		{Name: "c", Type: semtype.Builtin(ari.KindInt)},
	}
	ap := deref.BindParams(formals, []ari.Value{ari.Int(1)}, map[string]ari.Value{"c": ari.Int(3)})

	assert.True(t, ap.Get(0).Equal(ari.Int(1)))
	assert.True(t, ap.Get(1).Equal(ari.Int(9)))
	assert.True(t, ap.Get(2).Equal(ari.Int(3)))
	assert.False(t, ap.AnyUndef)
}

func TestBindParams_UndefinedWhenNothingSupplied(t *testing.T) {
	formals := []store.FormalParam{{Name: "a", Type: semtype.Builtin(ari.KindInt)}}
	ap := deref.BindParams(formals, nil, nil)
	assert.True(t, ari.IsUndefined(ap.Get(0)))
	assert.True(t, ap.AnyUndef)
}

func TestBindParams_CoercionFailureMarksUndefined(t *testing.T) {
	formals := []store.FormalParam{{Name: "a", Type: semtype.Builtin(ari.KindBool)}}
	ap := deref.BindParams(formals, []ari.Value{ari.NewAC()}, nil)
	assert.True(t, ari.IsUndefined(ap.Get(0)))
	assert.True(t, ap.AnyUndef)
}

func TestDereference_NotFound(t *testing.T) {
	s := store.New()
	path := ari.ObjectPath{Org: ari.NameSegment("x"), Model: ari.NameSegment("m"), Type: ari.KindCtrl, Object: ari.NameSegment("nope")}
	_, err := deref.Dereference(s, ari.NewReference(path))
	assert.Error(t, err)
}
