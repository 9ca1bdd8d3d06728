package cpf_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"configas/pkg/cpf"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	assert.Equal(t, "52998224725", cpf.Clean("529.982.247-25"))
	assert.Equal(t, "52998224725", cpf.Clean("52998224725"))
	assert.Equal(t, "", cpf.Clean("abc"))
}

func TestValid(t *testing.T) {
	assert.True(t, cpf.Valid("529.982.247-25"))
	assert.True(t, cpf.Valid("52998224725"))

	assert.False(t, cpf.Valid("52998224724"), "wrong check digit")
	assert.False(t, cpf.Valid("11111111111"), "repeated digits are invalid")
	assert.False(t, cpf.Valid("529982247"), "too short")
	assert.False(t, cpf.Valid(""))
}

func TestLookupReturnsHolderName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cpf/52998224725", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"found": true, "nomeCompleto": "Maria da Silva"})
	}))
	defer srv.Close()

	client := cpf.NewClient(srv.URL)
	result, err := client.Lookup(context.Background(), "529.982.247-25")
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, "Maria da Silva", result.FullName)
}

func TestLookupWithoutBaseURL(t *testing.T) {
	client := cpf.NewClient("")
	result, err := client.Lookup(context.Background(), "52998224725")
	require.NoError(t, err)
	assert.False(t, result.Found)
}
