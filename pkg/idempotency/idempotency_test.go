package idempotency

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	r := httptest.NewRequest("POST", "/", nil)
	assert.Equal(t, "", Key(r))

	r.Header.Set(Header, "  checkout-42  ")
	assert.Equal(t, "checkout-42", Key(r))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(""))
	assert.True(t, Valid("3f2c1a9e-0b7d-4c1e-9a55-2d1f6b7e8c90"))
	assert.True(t, Valid("cart:2026.10.19_1"))
	assert.False(t, Valid("has space"))
	assert.False(t, Valid(strings.Repeat("k", 129)))
}
