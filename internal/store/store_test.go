package store_test

import (
	"testing"

	"configas/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	st := store.NewMemoryStore()
	require.NoError(t, st.Set("k", []byte(`{"a":1}`)))

	raw, ok := st.Get("k")
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(raw))

	st.Delete("k")
	_, ok = st.Get("k")
	assert.False(t, ok)
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	st := store.NewMemoryStore()
	original := []byte("abc")
	require.NoError(t, st.Set("k", original))
	original[0] = 'x'

	raw, ok := st.Get("k")
	require.True(t, ok)
	assert.Equal(t, "abc", string(raw), "stored bytes must not alias the caller's slice")
}

func TestGetJSONMissingKey(t *testing.T) {
	st := store.NewMemoryStore()
	var out map[string]any
	assert.False(t, store.GetJSON(st, "nope", &out))
}

func TestGetJSONDropsCorruptEntry(t *testing.T) {
	st := store.NewMemoryStore()
	require.NoError(t, st.Set("k", []byte("{not json")))

	var out map[string]any
	assert.False(t, store.GetJSON(st, "k", &out))

	_, ok := st.Get("k")
	assert.False(t, ok, "a corrupt entry must be purged on read")
}

func TestSetJSONRoundTrip(t *testing.T) {
	st := store.NewMemoryStore()
	type rec struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	require.NoError(t, store.SetJSON(st, "k", rec{Name: "a", Count: 2}))

	var out rec
	require.True(t, store.GetJSON(st, "k", &out))
	assert.Equal(t, rec{Name: "a", Count: 2}, out)
}

func TestSessionKeysAreNamespaced(t *testing.T) {
	assert.NotEqual(t, store.PixKey("a"), store.PixKey("b"))
	assert.NotEqual(t, store.PixKey("a"), store.TaxPixKey("a"))
	assert.NotEqual(t, store.SentFlagsKey("a"), store.TaxSentFlagsKey("a"))
}
