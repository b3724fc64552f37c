package bind_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/storefront/pkg/bind"
)

type intentInput struct {
	Amount    int64  `json:"amount"    validate:"required,gt=0"`
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity"  validate:"required,gte=1"`
}

func TestJSONValid(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"amount":500,"productId":"p1","quantity":2}`))
	var in intentInput
	errs, err := bind.JSON(req, &in)

	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.Equal(t, int64(500), in.Amount)
}

func TestJSONFractionalAmountIsFieldError(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"amount":5.5,"productId":"p1","quantity":2}`))
	var in intentInput
	errs, err := bind.JSON(req, &in)

	require.NoError(t, err)
	assert.Contains(t, errs, "amount")
}

func TestJSONValidationErrors(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"amount":-1,"productId":"p1","quantity":0}`))
	var in intentInput
	errs, err := bind.JSON(req, &in)

	require.NoError(t, err)
	assert.Contains(t, errs, "amount")
	assert.Contains(t, errs, "quantity")
}

func TestJSONMalformedAndUnknownFields(t *testing.T) {
	var in intentInput
	_, err := bind.JSON(httptest.NewRequest("POST", "/", strings.NewReader(`{"amount":`)), &in)
	assert.Error(t, err)

	_, err = bind.JSON(httptest.NewRequest("POST", "/", strings.NewReader(`{"amount":1,"price":9}`)), &in)
	assert.Error(t, err)

	_, err = bind.JSON(httptest.NewRequest("POST", "/", strings.NewReader(``)), &in)
	assert.EqualError(t, err, "request body is empty")
}
