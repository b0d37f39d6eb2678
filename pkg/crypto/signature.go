package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// SignPayload returns the hex-encoded HMAC-SHA256 of body under key. Outbound
// forwards carry this so destinations can authenticate the sender.
func SignPayload(key string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a hex-encoded HMAC-SHA256 signature in constant
// time.
func VerifySignature(key string, body []byte, signature string) bool {
	expected := SignPayload(key, body)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
