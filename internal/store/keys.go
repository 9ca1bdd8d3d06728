package store

import "fmt"

// Well-known keys, namespaced per checkout session. These are the same
// records the storefront used to keep client-side, moved server-side.
func GatewayKey(sessionID string) string      { return fmt.Sprintf("sess:%s:gateway", sessionID) }
func PixKey(sessionID string) string          { return fmt.Sprintf("sess:%s:pix", sessionID) }
func TaxPixKey(sessionID string) string       { return fmt.Sprintf("sess:%s:tax-pix", sessionID) }
func PaidOrderKey(sessionID string) string    { return fmt.Sprintf("sess:%s:paid-order", sessionID) }
func UtmParamsKey(sessionID string) string    { return fmt.Sprintf("sess:%s:utm-params", sessionID) }
func SentFlagsKey(sessionID string) string    { return fmt.Sprintf("sess:%s:utmify-sent", sessionID) }
func TaxSentFlagsKey(sessionID string) string { return fmt.Sprintf("sess:%s:utmify-tax-sent", sessionID) }
func PayloadKey(sessionID string) string      { return fmt.Sprintf("sess:%s:utmify-payload", sessionID) }
func RetryKey(sessionID string) string        { return fmt.Sprintf("sess:%s:utmify-retry", sessionID) }

// GatewayStatsKey is global, not per session.
const GatewayStatsKey = "gateway-stats"
