// Package gateway holds the PIX payment providers, the static registry that
// describes them, and the session-sticky selector that picks one per
// checkout session.
package gateway

import (
	"context"
	"errors"
	"time"
)

// Known provider IDs.
const (
	Ezzpag   = "ezzpag"
	BlackCat = "blackcat"
	Umbrela  = "umbrela"
	Ghost    = "ghost"
)

var ErrNoGatewayEnabled = errors.New("no payment gateway enabled")

// Descriptor describes one provider in the registry. The table is fixed at
// process start; Enabled and Weight come from configuration.
type Descriptor struct {
	ID      string
	Name    string
	Alias   string // public name (gateway_a..gateway_d); real providers are never exposed to clients
	Enabled bool
	Weight  int
}

type Customer struct {
	Name     string
	Email    string
	Phone    string // digits only
	Document string // digits only
}

type Address struct {
	Street       string
	StreetNumber string
	Complement   string
	Neighborhood string
	City         string
	State        string
	ZipCode      string // digits only
}

type Item struct {
	Title          string
	UnitPriceCents int64
	Quantity       int
}

type ChargeRequest struct {
	AmountCents int64
	Description string
	PostbackURL string
	Customer    Customer
	Address     Address
	Items       []Item
}

// Charge is the provider-independent shape every client normalizes to.
type Charge struct {
	ProviderRef string
	Status      string // domain.Status* value
	AmountCents int64
	QRCode      string
	ExpiresAt   time.Time
}

type ChargeStatus struct {
	ProviderRef string
	Status      string
	PaidAt      *time.Time
}

// Provider is one PIX gateway. Status reads must reflect the provider's
// authoritative state; clients send no-cache headers on them.
type Provider interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
	ChargeStatus(ctx context.Context, providerRef string) (*ChargeStatus, error)
}
