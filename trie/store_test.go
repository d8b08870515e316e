package trie

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestSimpleTrieInsertGetRemove(t *testing.T) {
	tr := New()
	_, ok := tr.Get([]byte("k1"))
	require.False(t, ok)

	tr.Insert([]byte("k1"), []byte("v1"))
	v, ok := tr.Get([]byte("k1"))
	require.True(t, ok)
	require.Equal(t, []byte("v1"), v)

	tr.Remove([]byte("k1"))
	_, ok = tr.Get([]byte("k1"))
	require.False(t, ok)
}

func TestSimpleTrieZeroValueElidesKey(t *testing.T) {
	tr := New()
	tr.Insert([]byte("k1"), []byte("v1"))
	tr.Insert([]byte("k1"), nil)
	_, ok := tr.Get([]byte("k1"))
	require.False(t, ok)
}

func TestSimpleTrieRootDeterministicAndOrderIndependent(t *testing.T) {
	a := New()
	a.Insert([]byte("k1"), []byte("v1"))
	a.Insert([]byte("k2"), []byte("v2"))

	b := New()
	b.Insert([]byte("k2"), []byte("v2"))
	b.Insert([]byte("k1"), []byte("v1"))

	require.Equal(t, a.Root(), b.Root())
}

func TestSimpleTrieEmptyRoot(t *testing.T) {
	tr := New()
	require.Equal(t, EmptyRoot, tr.Root())
}

func TestSimpleTrieRootChangesOnMutation(t *testing.T) {
	tr := New()
	r0 := tr.Root()
	tr.Insert([]byte("k1"), []byte("v1"))
	r1 := tr.Root()
	require.NotEqual(t, r0, r1)
	tr.Remove([]byte("k1"))
	require.Equal(t, r0, tr.Root())
}

func TestSimpleTrieCopyIsIndependent(t *testing.T) {
	tr := New()
	tr.Insert([]byte("k1"), []byte("v1"))
	cpy := tr.Copy()

	tr.Insert([]byte("k2"), []byte("v2"))
	_, ok := cpy.Get([]byte("k2"))
	require.False(t, ok)
	require.NotEqual(t, tr.Root(), cpy.Root())
}

func TestCodeStoreRoundTrip(t *testing.T) {
	cs := NewCodeStore()
	h := common.Hash{1, 2, 3}
	_, ok := cs.Get(h)
	require.False(t, ok)

	cs.Put(h, []byte{0x60, 0x00})
	code, ok := cs.Get(h)
	require.True(t, ok)
	require.Equal(t, []byte{0x60, 0x00}, code)
}
