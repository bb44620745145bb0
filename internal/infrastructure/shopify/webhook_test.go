package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWebhookVerifier(t *testing.T) {
	secret := "shhh"
	payload := []byte(`{"id":1}`)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	v := NewWebhookVerifier(secret)
	assert.NoError(t, v.Verify(payload, signature))
	assert.Error(t, v.Verify(payload, "bogus"))
	assert.Error(t, v.Verify(payload, ""))
	assert.Error(t, v.Verify([]byte(`{"id":2}`), signature))
}
