package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// VerifyShopifyWebhookSignature checks X-Shopify-Hmac-Sha256, the base64
// HMAC-SHA256 of the raw body keyed with the app's API secret.
func VerifyShopifyWebhookSignature(payload []byte, signatureHeader, apiSecret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(apiSecret)
	if sig == "" || secret == "" {
		return false
	}

	decodedSig, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), decodedSig)
}

// SignShopifyWebhook computes the header value Shopify would send for payload.
func SignShopifyWebhook(payload []byte, apiSecret string) string {
	mac := hmac.New(sha256.New, []byte(apiSecret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
