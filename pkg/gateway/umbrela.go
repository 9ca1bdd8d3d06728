package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"configas/internal/domain"
)

// UmbrelaProvider talks to the Ativo/Umbrela transactions API. Unlike the
// other providers it authenticates with an api-key header.
type UmbrelaProvider struct {
	BaseURL string
	APIKey  string
	client  *http.Client
}

func NewUmbrelaProvider(baseURL, apiKey string) *UmbrelaProvider {
	if baseURL == "" {
		baseURL = "https://api.umbrelapag.com"
	}
	return &UmbrelaProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type umbrelaCreateReq struct {
	Amount        int64  `json:"amount"`
	PaymentMethod string `json:"paymentMethod"`
	PostbackURL   string `json:"postbackUrl"`
	Customer      struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Document string `json:"document"`
	} `json:"customer"`
	Items []struct {
		Title     string `json:"title"`
		UnitPrice int64  `json:"unitPrice"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
}

type umbrelaTransaction struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount int64  `json:"amount"`
	PaidAt string `json:"paidAt"`
	Pix    struct {
		QRCode         string `json:"qrcode"`
		ExpirationDate string `json:"expirationDate"`
	} `json:"pix"`
}

func (p *UmbrelaProvider) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	payload := umbrelaCreateReq{
		Amount:        req.AmountCents,
		PaymentMethod: "pix",
		PostbackURL:   req.PostbackURL,
	}
	payload.Customer.Name = req.Customer.Name
	payload.Customer.Email = req.Customer.Email
	payload.Customer.Phone = req.Customer.Phone
	payload.Customer.Document = req.Customer.Document
	for _, item := range req.Items {
		payload.Items = append(payload.Items, struct {
			Title     string `json:"title"`
			UnitPrice int64  `json:"unitPrice"`
			Quantity  int    `json:"quantity"`
		}{item.Title, item.UnitPriceCents, item.Quantity})
	}

	var tx umbrelaTransaction
	if err := p.do(ctx, http.MethodPost, "/api/user/transactions", payload, &tx); err != nil {
		return nil, fmt.Errorf("umbrela create: %w", err)
	}
	log.Printf("[Umbrela] transaction created id=%s status=%s", tx.ID, tx.Status)
	return &Charge{
		ProviderRef: tx.ID,
		Status:      mapUmbrelaStatus(tx.Status),
		AmountCents: tx.Amount,
		QRCode:      tx.Pix.QRCode,
		ExpiresAt:   parseProviderTime(tx.Pix.ExpirationDate),
	}, nil
}

func (p *UmbrelaProvider) ChargeStatus(ctx context.Context, providerRef string) (*ChargeStatus, error) {
	var tx umbrelaTransaction
	if err := p.do(ctx, http.MethodGet, "/api/user/transactions/"+providerRef, nil, &tx); err != nil {
		return nil, fmt.Errorf("umbrela status: %w", err)
	}
	return &ChargeStatus{
		ProviderRef: tx.ID,
		Status:      mapUmbrelaStatus(tx.Status),
		PaidAt:      parseProviderTimePtr(tx.PaidAt),
	}, nil
}

func (p *UmbrelaProvider) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("x-api-key", p.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	req.Header.Set("Pragma", "no-cache")
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%d %s", resp.StatusCode, string(respBody))
	}
	return json.Unmarshal(respBody, out)
}

func mapUmbrelaStatus(status string) string {
	switch strings.ToLower(status) {
	case "paid", "approved", "completed":
		return domain.StatusPaid
	case "refused", "canceled", "cancelled", "failed":
		return domain.StatusRefused
	case "expired":
		return domain.StatusExpired
	default:
		return domain.StatusWaitingPayment
	}
}
