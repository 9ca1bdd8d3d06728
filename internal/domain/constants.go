package domain

// Charge status, normalized across all gateways.
const (
	StatusWaitingPayment = "waiting_payment"
	StatusPaid           = "paid"
	StatusRefused        = "refused"
	StatusExpired        = "expired"
)

// Charge legs. Gas orders are collected in two charges: the main leg
// (70% of the total) and a second "tax" leg for the remainder.
const (
	LegMain = "main"
	LegTax  = "tax"
)

// Analytics event kinds sent to UTMify.
const (
	EventPending = "pending"
	EventPaid    = "paid"
)

const RoleOperator = "OPERATOR"

// IsTerminal reports whether a charge status admits no further transition.
func IsTerminal(status string) bool {
	return status == StatusPaid || status == StatusRefused || status == StatusExpired
}
