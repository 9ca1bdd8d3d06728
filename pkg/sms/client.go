// Package sms sends the unpaid-order reminder through the SMSDev API.
package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const ReminderMessage = "Configás: Volte ao nosso site! O Motoboy ta esperando a confirmacao pra ir, e menos de 10minutos na sua porta."

type Client struct {
	BaseURL string
	APIKey  string
	client  *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "https://api.smsdev.com.br/v1"
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type sendResponse struct {
	Situacao string `json:"situacao"`
	ID       string `json:"id"`
}

// Send delivers one SMS and returns the provider message id.
func (c *Client) Send(ctx context.Context, phone, message string) (string, error) {
	q := url.Values{}
	q.Set("key", c.APIKey)
	q.Set("type", "9")
	q.Set("number", phone)
	q.Set("msg", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/send?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("smsdev: %d %s", resp.StatusCode, string(body))
	}
	var out sendResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if out.Situacao != "OK" {
		return "", fmt.Errorf("smsdev: situacao %s", out.Situacao)
	}
	return out.ID, nil
}
