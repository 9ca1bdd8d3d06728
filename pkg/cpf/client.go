// Package cpf wraps the CPF lookup microservice used by the discount
// confirmation step, plus local check-digit validation.
package cpf

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"
)

var nonDigits = regexp.MustCompile(`\D`)

// Clean strips everything but digits.
func Clean(document string) string {
	return nonDigits.ReplaceAllString(document, "")
}

// Valid runs the standard CPF check-digit algorithm.
func Valid(document string) bool {
	d := Clean(document)
	if len(d) != 11 {
		return false
	}
	allSame := true
	for i := 1; i < 11; i++ {
		if d[i] != d[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return false
	}
	for _, n := range []int{9, 10} {
		sum := 0
		for i := 0; i < n; i++ {
			sum += int(d[i]-'0') * (n + 1 - i)
		}
		check := (sum * 10) % 11
		if check == 10 {
			check = 0
		}
		if check != int(d[n]-'0') {
			return false
		}
	}
	return true
}

type Result struct {
	Found    bool   `json:"found"`
	FullName string `json:"nomeCompleto"`
}

type Client struct {
	BaseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Lookup queries the CPF service for the holder's name. Failures report
// found=false instead of erroring; the discount step is optional.
func (c *Client) Lookup(ctx context.Context, document string) (*Result, error) {
	if c.BaseURL == "" {
		return &Result{Found: false}, nil
	}
	clean := Clean(document)
	if len(clean) != 11 {
		return nil, fmt.Errorf("cpf: invalid length %d", len(clean))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/cpf/"+clean, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &Result{Found: false}, nil
	}
	var raw struct {
		NomeCompleto string `json:"nomeCompleto"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return &Result{Found: false}, nil
	}
	return &Result{Found: raw.NomeCompleto != "", FullName: raw.NomeCompleto}, nil
}
