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

// BlackCatProvider talks to the BlackCat Pagamentos sales API.
type BlackCatProvider struct {
	BaseURL   string
	AuthToken string
	client    *http.Client
}

func NewBlackCatProvider(baseURL, authToken string) *BlackCatProvider {
	if baseURL == "" {
		baseURL = "https://api.blackcatpagamentos.com/v1"
	}
	return &BlackCatProvider{
		BaseURL:   baseURL,
		AuthToken: authToken,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

type blackCatCreateReq struct {
	Amount        int64  `json:"amount"`
	PaymentMethod string `json:"payment_method"`
	PostbackURL   string `json:"postback_url"`
	Customer      struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Document string `json:"document"`
	} `json:"customer"`
	Items []struct {
		Title     string `json:"title"`
		UnitPrice int64  `json:"unit_price"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
}

type blackCatSale struct {
	ID     json.Number `json:"id"`
	SaleID json.Number `json:"sale_id"`
	Status string      `json:"status"`
	Amount int64       `json:"amount"`
	Total  int64       `json:"total"`
	PaidAt string      `json:"paid_at"`
	Pix    struct {
		QRCode         string `json:"qrcode"`
		ExpirationDate string `json:"expiration_date"`
	} `json:"pix"`
}

func (s *blackCatSale) ref() string {
	if s.ID.String() != "" {
		return s.ID.String()
	}
	return s.SaleID.String()
}

func (s *blackCatSale) amount() int64 {
	if s.Amount != 0 {
		return s.Amount
	}
	return s.Total
}

func (p *BlackCatProvider) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	payload := blackCatCreateReq{
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
			UnitPrice int64  `json:"unit_price"`
			Quantity  int    `json:"quantity"`
		}{item.Title, item.UnitPriceCents, item.Quantity})
	}

	var sale blackCatSale
	if err := p.do(ctx, http.MethodPost, "/sales", payload, &sale); err != nil {
		return nil, fmt.Errorf("blackcat create: %w", err)
	}
	log.Printf("[BlackCat] sale created id=%s status=%s", sale.ref(), sale.Status)
	return &Charge{
		ProviderRef: sale.ref(),
		Status:      mapBlackCatStatus(sale.Status),
		AmountCents: sale.amount(),
		QRCode:      sale.Pix.QRCode,
		ExpiresAt:   parseProviderTime(sale.Pix.ExpirationDate),
	}, nil
}

func (p *BlackCatProvider) ChargeStatus(ctx context.Context, providerRef string) (*ChargeStatus, error) {
	var sale blackCatSale
	if err := p.do(ctx, http.MethodGet, "/sales/"+providerRef, nil, &sale); err != nil {
		return nil, fmt.Errorf("blackcat status: %w", err)
	}
	return &ChargeStatus{
		ProviderRef: sale.ref(),
		Status:      mapBlackCatStatus(sale.Status),
		PaidAt:      parseProviderTimePtr(sale.PaidAt),
	}, nil
}

func (p *BlackCatProvider) do(ctx context.Context, method, path string, body, out any) error {
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

func mapBlackCatStatus(status string) string {
	switch strings.ToLower(status) {
	case "paid", "approved":
		return domain.StatusPaid
	case "refused":
		return domain.StatusRefused
	case "canceled", "cancelled", "expired":
		return domain.StatusRefused
	default:
		return domain.StatusWaitingPayment
	}
}
