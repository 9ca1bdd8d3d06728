// Package utmify sends order-conversion events to the UTMify attribution
// API, with the fixed retry policy and at-most-once flags the checkout
// depends on.
package utmify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TrackingParameters are the campaign-attribution fields propagated from
// the landing page. Pointers so absent params serialize as null.
type TrackingParameters struct {
	Src         *string `json:"src"`
	Sck         *string `json:"sck"`
	UtmSource   *string `json:"utm_source"`
	UtmCampaign *string `json:"utm_campaign"`
	UtmMedium   *string `json:"utm_medium"`
	UtmContent  *string `json:"utm_content"`
	UtmTerm     *string `json:"utm_term"`
}

type Customer struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Document string `json:"document"`
	Country  string `json:"country"`
	IP       string `json:"ip"`
}

type Product struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	PlanID       *string `json:"planId"`
	PlanName     *string `json:"planName"`
	Quantity     int     `json:"quantity"`
	PriceInCents int64   `json:"priceInCents"`
}

type Commission struct {
	TotalPriceInCents     int64 `json:"totalPriceInCents"`
	GatewayFeeInCents     int64 `json:"gatewayFeeInCents"`
	UserCommissionInCents int64 `json:"userCommissionInCents"`
}

// OrderPayload is the conversion record POSTed to UTMify. Timestamps use
// the API's "2006-01-02 15:04:05" UTC format.
type OrderPayload struct {
	OrderID            string             `json:"orderId"`
	Platform           string             `json:"platform"`
	PaymentMethod      string             `json:"paymentMethod"`
	Status             string             `json:"status"`
	CreatedAt          string             `json:"createdAt"`
	ApprovedDate       *string            `json:"approvedDate"`
	RefundedAt         *string            `json:"refundedAt"`
	Customer           Customer           `json:"customer"`
	Products           []Product          `json:"products"`
	TrackingParameters TrackingParameters `json:"trackingParameters"`
	Commission         Commission         `json:"commission"`
	IsTest             bool               `json:"isTest"`
}

const TimeFormat = "2006-01-02 15:04:05"

// NewCommission applies the fixed 4% gateway fee split.
func NewCommission(totalCents int64) Commission {
	fee := int64(float64(totalCents)*0.04 + 0.5)
	return Commission{
		TotalPriceInCents:     totalCents,
		GatewayFeeInCents:     fee,
		UserCommissionInCents: totalCents - fee,
	}
}

type Client struct {
	BaseURL  string
	APIToken string
	client   *http.Client
}

func NewClient(baseURL, apiToken string) *Client {
	if baseURL == "" {
		baseURL = "https://api.utmify.com.br"
	}
	return &Client{
		BaseURL:  baseURL,
		APIToken: apiToken,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// SendOrder posts one conversion event.
func (c *Client) SendOrder(ctx context.Context, payload *OrderPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api-credentials/orders", bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("x-api-token", c.APIToken)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("utmify: %d %s", resp.StatusCode, string(body))
	}
	return nil
}
