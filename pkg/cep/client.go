// Package cep resolves delivery addresses through the ViaCEP API.
package cep

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"
)

var nonDigits = regexp.MustCompile(`\D`)

type Address struct {
	Cep          string `json:"cep"`
	Street       string `json:"logradouro"`
	Complement   string `json:"complemento"`
	Neighborhood string `json:"bairro"`
	City         string `json:"localidade"`
	State        string `json:"uf"`
	Erro         bool   `json:"erro"`
}

type Client struct {
	BaseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://viacep.com.br"
	}
	return &Client{
		BaseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Lookup resolves a CEP. Unknown CEPs return an error, not a partial
// address.
func (c *Client) Lookup(ctx context.Context, cep string) (*Address, error) {
	clean := nonDigits.ReplaceAllString(cep, "")
	if len(clean) != 8 {
		return nil, fmt.Errorf("cep: invalid length %d", len(clean))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/ws/%s/json/", c.BaseURL, clean), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cep: status %d", resp.StatusCode)
	}
	var addr Address
	if err := json.NewDecoder(resp.Body).Decode(&addr); err != nil {
		return nil, err
	}
	if addr.Erro {
		return nil, fmt.Errorf("cep: %s not found", clean)
	}
	return &addr, nil
}
