package valprod_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/deref"
	"github.com/jhuapl-dtnma/refda-go/pkg/store"
	"github.com/jhuapl-dtnma/refda-go/pkg/valprod"
)

func TestProduce_Const(t *testing.T) {
	d := deref.Result{Kind: ari.KindConst, Desc: &store.Descriptor{ConstValue: ari.Int(5)}}
	v, err := valprod.Produce(d, nil, nil)
	require.NoError(t, err)
	assert.True(t, v.Equal(ari.Int(5)))
}

func TestProduce_VarReflectsStoreAndReset(t *testing.T) {
	desc := &store.Descriptor{InitialValue: ari.Int(1), CurrentValue: ari.Int(1)}
	d := deref.Result{Kind: ari.KindVar, Desc: desc}

	v, err := valprod.Produce(d, nil, nil)
	require.NoError(t, err)
	assert.True(t, v.Equal(ari.Int(1)))

	desc.StoreValue(ari.Int(42))
	v, err = valprod.Produce(d, nil, nil)
	require.NoError(t, err)
	assert.True(t, v.Equal(ari.Int(42)))

	desc.Reset()
	v, err = valprod.Produce(d, nil, nil)
	require.NoError(t, err)
	assert.True(t, v.Equal(ari.Int(1)))
}

func TestProduce_EDDInvokesCallback(t *testing.T) {
	desc := &store.Descriptor{
		Produce: func(ctx any, ap *store.Aparams) ari.Value {
			pctx := ctx.(*valprod.Context)
			pctx.SetResult(ari.Text("JHU/APL"))
			return nil
		},
	}
	d := deref.Result{Kind: ari.KindEDD, Desc: desc}
	v, err := valprod.Produce(d, nil, nil)
	require.NoError(t, err)
	assert.True(t, v.Equal(ari.Text("JHU/APL")))
}

func TestProduce_EDDFailsWhenResultUndefined(t *testing.T) {
	desc := &store.Descriptor{
		Produce: func(ctx any, ap *store.Aparams) ari.Value { return nil },
	}
	d := deref.Result{Kind: ari.KindEDD, Desc: desc}
	_, err := valprod.Produce(d, nil, nil)
	assert.Error(t, err)
}
