package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"configas/internal/domain"
)

// GhostProvider talks to the Ghost Pay v2 API.
type GhostProvider struct {
	BaseURL   string
	AuthToken string
	client    *http.Client
}

func NewGhostProvider(baseURL, authToken string) *GhostProvider {
	if baseURL == "" {
		baseURL = "https://api.ghostspaysv2.com/functions/v1"
	}
	return &GhostProvider{
		BaseURL:   baseURL,
		AuthToken: authToken,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

type ghostItem struct {
	Title       string `json:"title"`
	UnitPrice   int64  `json:"unitPrice"`
	Quantity    int    `json:"quantity"`
	ExternalRef string `json:"externalRef"`
}

type ghostCreateReq struct {
	Amount        int64  `json:"amount"`
	Description   string `json:"description"`
	PaymentMethod string `json:"paymentMethod"`
	Installments  int    `json:"installments"`
	PostbackURL   string `json:"postbackUrl"`
	Customer      struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Document string `json:"document"`
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
	Items []ghostItem `json:"items"`
}

type ghostTransaction struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount int64  `json:"amount"`
	PaidAt string `json:"paidAt"`
	Pix    struct {
		QRCode         string `json:"qrcode"`
		ExpirationDate string `json:"expirationDate"`
	} `json:"pix"`
}

func (p *GhostProvider) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	payload := ghostCreateReq{
		Amount:        req.AmountCents,
		Description:   req.Description,
		PaymentMethod: "PIX",
		Installments:  1,
		PostbackURL:   req.PostbackURL,
	}
	if payload.Description == "" {
		payload.Description = "Pedido de Gás"
	}
	payload.Customer.Name = req.Customer.Name
	payload.Customer.Email = req.Customer.Email
	payload.Customer.Phone = req.Customer.Phone
	payload.Customer.Document = req.Customer.Document
	payload.Shipping.Street = req.Address.Street
	payload.Shipping.StreetNumber = req.Address.StreetNumber
	payload.Shipping.Complement = req.Address.Complement
	payload.Shipping.Neighborhood = req.Address.Neighborhood
	payload.Shipping.City = req.Address.City
	payload.Shipping.State = req.Address.State
	payload.Shipping.ZipCode = req.Address.ZipCode
	for _, item := range req.Items {
		payload.Items = append(payload.Items, ghostItem{
			// Ghost Pay requires the fixed catalog code, not the real title.
			Title:       "GB_2",
			UnitPrice:   item.UnitPriceCents,
			Quantity:    item.Quantity,
			ExternalRef: fmt.Sprintf("PedG_%d", 1000+rand.Intn(9000)),
		})
	}

	var tx ghostTransaction
	if err := p.do(ctx, http.MethodPost, "/transactions", payload, &tx); err != nil {
		return nil, fmt.Errorf("ghost create: %w", err)
	}
	log.Printf("[Ghost] transaction created id=%s status=%s", tx.ID, tx.Status)
	expiresAt := parseProviderTime(tx.Pix.ExpirationDate)
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(24 * time.Hour)
	}
	return &Charge{
		ProviderRef: tx.ID,
		Status:      mapGhostStatus(tx.Status),
		AmountCents: tx.Amount,
		QRCode:      tx.Pix.QRCode,
		ExpiresAt:   expiresAt,
	}, nil
}

func (p *GhostProvider) ChargeStatus(ctx context.Context, providerRef string) (*ChargeStatus, error) {
	var tx ghostTransaction
	if err := p.do(ctx, http.MethodGet, "/transactions/"+providerRef, nil, &tx); err != nil {
		return nil, fmt.Errorf("ghost status: %w", err)
	}
	return &ChargeStatus{
		ProviderRef: tx.ID,
		Status:      mapGhostStatus(tx.Status),
		PaidAt:      parseProviderTimePtr(tx.PaidAt),
	}, nil
}

func (p *GhostProvider) do(ctx context.Context, method, path string, body, out any) error {
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

// Ghost Pay has the widest status vocabulary of the four providers.
func mapGhostStatus(status string) string {
	switch strings.ToLower(status) {
	case "paid":
		return domain.StatusPaid
	case "refused", "canceled", "refunded", "chargedback", "failed", "expired":
		return domain.StatusRefused
	case "waiting_payment", "in_analisys", "in_protest":
		return domain.StatusWaitingPayment
	default:
		return domain.StatusWaitingPayment
	}
}
