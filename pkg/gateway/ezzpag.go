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

// EzzpagProvider creates and queries PIX transactions on the Ezzpag API.
type EzzpagProvider struct {
	BaseURL   string
	AuthToken string // pre-encoded Basic credential
	client    *http.Client
}

func NewEzzpagProvider(baseURL, authToken string) *EzzpagProvider {
	if baseURL == "" {
		baseURL = "https://api.ezzypag.com.br/v1"
	}
	return &EzzpagProvider{
		BaseURL:   baseURL,
		AuthToken: authToken,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

type ezzpagItem struct {
	Title     string `json:"title"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	Tangible  bool   `json:"tangible"`
}

type ezzpagCreateReq struct {
	Amount        int64  `json:"amount"`
	PaymentMethod string `json:"paymentMethod"`
	PostbackURL   string `json:"postbackUrl"`
	Customer      struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Document struct {
			Number string `json:"number"`
			Type   string `json:"type"`
		} `json:"document"`
	} `json:"customer"`
	Shipping struct {
		Street       string `json:"street"`
		StreetNumber string `json:"streetNumber"`
		Complement   string `json:"complement"`
		Neighborhood string `json:"neighborhood"`
		City         string `json:"city"`
		State        string `json:"state"`
		ZipCode      string `json:"zipCode"`
	} `json:"shipping"`
	Items []ezzpagItem `json:"items"`
}

type ezzpagTransaction struct {
	ID     json.Number `json:"id"`
	Status string      `json:"status"`
	Amount int64       `json:"amount"`
	PaidAt string      `json:"paidAt"`
	Pix    struct {
		QRCode         string `json:"qrcode"`
		ExpirationDate string `json:"expirationDate"`
	} `json:"pix"`
}

func (p *EzzpagProvider) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	payload := ezzpagCreateReq{
		Amount:        req.AmountCents,
		PaymentMethod: "pix",
		PostbackURL:   req.PostbackURL,
	}
	payload.Customer.Name = req.Customer.Name
	payload.Customer.Email = req.Customer.Email
	payload.Customer.Phone = req.Customer.Phone
	payload.Customer.Document.Number = req.Customer.Document
	payload.Customer.Document.Type = "cpf"
	payload.Shipping.Street = req.Address.Street
	payload.Shipping.StreetNumber = req.Address.StreetNumber
	payload.Shipping.Complement = req.Address.Complement
	payload.Shipping.Neighborhood = req.Address.Neighborhood
	payload.Shipping.City = req.Address.City
	payload.Shipping.State = req.Address.State
	payload.Shipping.ZipCode = req.Address.ZipCode
	for _, item := range req.Items {
		payload.Items = append(payload.Items, ezzpagItem{
			Title:     item.Title,
			UnitPrice: item.UnitPriceCents,
			Quantity:  item.Quantity,
			Tangible:  true,
		})
	}

	var tx ezzpagTransaction
	if err := p.do(ctx, http.MethodPost, "/transactions", payload, &tx); err != nil {
		return nil, fmt.Errorf("ezzpag create: %w", err)
	}
	log.Printf("[Ezzpag] transaction created id=%s status=%s", tx.ID.String(), tx.Status)
	return &Charge{
		ProviderRef: tx.ID.String(),
		Status:      mapEzzpagStatus(tx.Status),
		AmountCents: tx.Amount,
		QRCode:      tx.Pix.QRCode,
		ExpiresAt:   parseProviderTime(tx.Pix.ExpirationDate),
	}, nil
}

func (p *EzzpagProvider) ChargeStatus(ctx context.Context, providerRef string) (*ChargeStatus, error) {
	var tx ezzpagTransaction
	if err := p.do(ctx, http.MethodGet, "/transactions/"+providerRef, nil, &tx); err != nil {
		return nil, fmt.Errorf("ezzpag status: %w", err)
	}
	return &ChargeStatus{
		ProviderRef: tx.ID.String(),
		Status:      mapEzzpagStatus(tx.Status),
		PaidAt:      parseProviderTimePtr(tx.PaidAt),
	}, nil
}

func (p *EzzpagProvider) do(ctx context.Context, method, path string, body, out any) error {
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
	req.Header.Set("Authorization", "Basic "+p.AuthToken)
	req.Header.Set("Content-Type", "application/json")
	// Status reads must come from the provider, not an intermediary cache.
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

func mapEzzpagStatus(status string) string {
	switch strings.ToLower(status) {
	case "paid", "approved":
		return domain.StatusPaid
	case "refused", "canceled", "cancelled":
		return domain.StatusRefused
	case "expired":
		return domain.StatusExpired
	default:
		return domain.StatusWaitingPayment
	}
}

func parseProviderTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

func parseProviderTimePtr(s string) *time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	return nil
}
