package cep_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"configas/pkg/cep"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ws/01310100/json/", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"cep":        "01310-100",
			"logradouro": "Avenida Paulista",
			"bairro":     "Bela Vista",
			"localidade": "São Paulo",
			"uf":         "SP",
		})
	}))
	defer srv.Close()

	client := cep.NewClient(srv.URL)
	address, err := client.Lookup(context.Background(), "01310-100")
	require.NoError(t, err)
	assert.Equal(t, "Avenida Paulista", address.Street)
	assert.Equal(t, "São Paulo", address.City)
	assert.Equal(t, "SP", address.State)
}

func TestLookupUnknownCep(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"erro": true})
	}))
	defer srv.Close()

	client := cep.NewClient(srv.URL)
	_, err := client.Lookup(context.Background(), "99999999")
	assert.Error(t, err)
}

func TestLookupRejectsBadLength(t *testing.T) {
	client := cep.NewClient("http://unused")
	_, err := client.Lookup(context.Background(), "123")
	assert.Error(t, err)
}
