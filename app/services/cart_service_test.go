package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/internal/testdb"
	"github.com/shashiranjanraj/storefront/pkg/apperr"
	"github.com/shashiranjanraj/storefront/pkg/auth"
)

func newCart(t *testing.T) (*services.CartService, *repositories.CartRepository, func(role string) string, func(string) string) {
	t.Helper()
	db := testdb.Open(t)
	carts := repositories.NewCartRepository(db)
	svc := services.NewCartService(carts, repositories.NewProductRepository(db))
	user := func(role string) string { return testdb.User(t, db, role).ID }
	product := func(seller string) string { return testdb.Product(t, db, seller, "3.00", 10).ID }
	return svc, carts, user, product
}

func TestCartAddMerges(t *testing.T) {
	svc, _, user, product := newCart(t)
	ctx := context.Background()
	u := user(auth.RoleShopper)
	p := product(u)

	_, err := svc.Add(ctx, u, p, 2)
	require.NoError(t, err)
	item, err := svc.Add(ctx, u, p, 4)
	require.NoError(t, err)
	assert.Equal(t, 6, item.Quantity)

	items, err := svc.List(ctx, u)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 6, items[0].Quantity)
	assert.Equal(t, p, items[0].Product.ID)
}

func TestCartAddValidates(t *testing.T) {
	svc, _, user, product := newCart(t)
	ctx := context.Background()
	u := user(auth.RoleShopper)

	_, err := svc.Add(ctx, u, product(u), 0)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	_, err = svc.Add(ctx, u, "no-such-product", 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.Add(ctx, "", product(u), 1)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestCartRemoveOwnership(t *testing.T) {
	svc, carts, user, product := newCart(t)
	ctx := context.Background()
	alice, mallory := user(auth.RoleShopper), user(auth.RoleShopper)

	item, err := svc.Add(ctx, alice, product(alice), 1)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Remove(ctx, mallory, item.ID), apperr.ErrForbidden)
	assert.ErrorIs(t, svc.Remove(ctx, alice, "missing"), apperr.ErrNotFound)

	still, err := carts.FindByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, still.Quantity)

	require.NoError(t, svc.Remove(ctx, alice, item.ID))
	assert.ErrorIs(t, svc.Remove(ctx, alice, item.ID), apperr.ErrNotFound)
}

func TestCartClear(t *testing.T) {
	svc, _, user, product := newCart(t)
	ctx := context.Background()
	u, other := user(auth.RoleShopper), user(auth.RoleShopper)

	_, _ = svc.Add(ctx, u, product(u), 1)
	_, _ = svc.Add(ctx, u, product(u), 1)
	_, _ = svc.Add(ctx, other, product(u), 1)

	n, err := svc.Clear(ctx, u)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	left, err := svc.List(ctx, other)
	require.NoError(t, err)
	assert.Len(t, left, 1)
}
