package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/semtype"
	"github.com/jhuapl-dtnma/refda-go/pkg/store"
)

func TestAddNamespace_RejectsDuplicate(t *testing.T) {
	s := store.New()
	_, err := s.AddNamespace(ari.NameSegment("ietf"), ari.NameSegment("dtnma-agent"), "2024-01-01")
	require.NoError(t, err)

	_, err = s.AddNamespace(ari.NameSegment("ietf"), ari.NameSegment("dtnma-agent"), "2024-01-01")
	assert.Error(t, err)
}

func TestAddObject_RejectsDuplicateNameOrEnum(t *testing.T) {
	s := store.New()
	ns, _ := s.AddNamespace(ari.NameSegment("ietf"), ari.NameSegment("dtnma-agent"), "r1")

	enum := int64(1)
	_, err := ns.AddObject(ari.KindEDD, &store.Descriptor{Name: ari.NameSegment("sw-vendor"), Enum: &enum})
	require.NoError(t, err)

	_, err = ns.AddObject(ari.KindEDD, &store.Descriptor{Name: ari.NameSegment("sw-vendor")})
	assert.Error(t, err, "duplicate name must fail")

	enum2 := int64(1)
	_, err = ns.AddObject(ari.KindEDD, &store.Descriptor{Name: ari.NameSegment("other"), Enum: &enum2})
	assert.Error(t, err, "duplicate enum must fail")

	// no partial state: "other" must not have been registered
	_, found := ns.FindObjectByName(ari.KindEDD, "other")
	assert.False(t, found)
}

func TestResolve_NotFoundVsWrongType(t *testing.T) {
	s := store.New()
	ns, _ := s.AddNamespace(ari.NameSegment("ietf"), ari.NameSegment("dtnma-agent"), "r1")
	_, err := ns.AddObject(ari.KindEDD, &store.Descriptor{Name: ari.NameSegment("sw-vendor")})
	require.NoError(t, err)

	_, err = s.Resolve(ari.ObjectPath{Org: ari.NameSegment("ietf"), Model: ari.NameSegment("dtnma-agent"), Type: ari.KindEDD, Object: ari.NameSegment("missing")})
	assert.ErrorContains(t, err, "not found")

	_, err = s.Resolve(ari.ObjectPath{Org: ari.NameSegment("ietf"), Model: ari.NameSegment("dtnma-agent"), Type: ari.KindVar, Object: ari.NameSegment("sw-vendor")})
	assert.ErrorContains(t, err, "expected")
}

func TestBind_ResolvesTypedefUse(t *testing.T) {
	s := store.New()
	ns, _ := s.AddNamespace(ari.NameSegment("ietf"), ari.NameSegment("amm-base"), "r1")
	_, err := ns.AddObject(ari.KindTypedef, &store.Descriptor{Name: ari.NameSegment("byte"), ValueType: semtype.Builtin(ari.KindUint)})
	require.NoError(t, err)

	use := semtype.TypedefUse(ari.NewReference(ari.ObjectPath{Org: ari.NameSegment("ietf"), Model: ari.NameSegment("amm-base"), Type: ari.KindTypedef, Object: ari.NameSegment("byte")}))

	ns2, _ := s.AddNamespace(ari.NameSegment("ietf"), ari.NameSegment("dtnma-agent"), "r1")
	_, err = ns2.AddObject(ari.KindVar, &store.Descriptor{Name: ari.NameSegment("x"), ValueType: use})
	require.NoError(t, err)

	require.NoError(t, s.Bind())
	assert.Equal(t, ari.KindUint, use.Resolved.Builtin)
}

func TestBind_FailsOnUnresolvedReference(t *testing.T) {
	s := store.New()
	ns, _ := s.AddNamespace(ari.NameSegment("ietf"), ari.NameSegment("dtnma-agent"), "r1")
	use := semtype.TypedefUse(ari.NewReference(ari.ObjectPath{Org: ari.NameSegment("ietf"), Model: ari.NameSegment("dtnma-agent"), Type: ari.KindTypedef, Object: ari.NameSegment("nope")}))
	_, err := ns.AddObject(ari.KindVar, &store.Descriptor{Name: ari.NameSegment("x"), ValueType: use})
	require.NoError(t, err)

	assert.Error(t, s.Bind())
}

func TestVarLifecycle_LoadStoreReset(t *testing.T) {
	d := &store.Descriptor{InitialValue: ari.Int(1), CurrentValue: ari.Int(1)}
	assert.True(t, d.Load().Equal(ari.Int(1)))
	d.StoreValue(ari.Int(99))
	assert.True(t, d.Load().Equal(ari.Int(99)))
	d.Reset()
	assert.True(t, d.Load().Equal(ari.Int(1)))
}

func TestObsoleteObjects_HiddenFromEnumeration(t *testing.T) {
	s := store.New()
	ns, _ := s.AddNamespace(ari.NameSegment("o"), ari.NameSegment("m"), "r1")
	_, err := ns.AddObject(ari.KindEDD, &store.Descriptor{Name: ari.NameSegment("a")})
	require.NoError(t, err)
	_, err = ns.AddObject(ari.KindEDD, &store.Descriptor{Name: ari.NameSegment("b"), Obsolete: true})
	require.NoError(t, err)

	assert.Len(t, ns.ListObjects(ari.KindEDD, false), 1)
	assert.Len(t, ns.ListObjects(ari.KindEDD, true), 2)
}
