package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/internal/testdb"
	"github.com/shashiranjanraj/storefront/pkg/apperr"
	"github.com/shashiranjanraj/storefront/pkg/auth"
)

func TestRegisterAndLogin(t *testing.T) {
	db := testdb.Open(t)
	issuer := auth.NewIssuer("test-secret", time.Hour)
	svc := services.NewAuthService(repositories.NewUserRepository(db), issuer)
	ctx := context.Background()

	sess, err := svc.Register(ctx, services.RegisterInput{Name: "Ada", Email: "Ada@Example.com", Password: "secret123", Role: "seller"})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleSeller, sess.User.Role)
	assert.Equal(t, "ada@example.com", sess.User.Email)
	assert.NotEqual(t, "secret123", sess.User.Password)

	claims, err := issuer.ValidateToken(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, claims.UserID)

	_, err = svc.Register(ctx, services.RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = svc.Register(ctx, services.RegisterInput{Name: "Eve", Email: "eve@example.com", Password: "secret123", Role: "ADMIN"})
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	_, err = svc.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	_, err = svc.Login(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	sess, err = svc.Login(ctx, "ADA@example.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
}

func TestUpdateProfile(t *testing.T) {
	db := testdb.Open(t)
	svc := services.NewAuthService(repositories.NewUserRepository(db), auth.NewIssuer("s", time.Hour))
	ctx := context.Background()
	a := testdb.User(t, db, auth.RoleShopper)
	b := testdb.User(t, db, auth.RoleShopper)

	u, err := svc.UpdateProfile(ctx, a.ID, services.ProfileInput{Name: "New Name", Email: a.Email, AvatarURL: "https://cdn.example.com/a.png"})
	require.NoError(t, err)
	assert.Equal(t, "New Name", u.Name)

	_, err = svc.UpdateProfile(ctx, a.ID, services.ProfileInput{Name: "x", Email: b.Email})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestProductOwnership(t *testing.T) {
	db := testdb.Open(t)
	svc := services.NewProductService(repositories.NewProductRepository(db))
	ctx := context.Background()
	owner := &auth.Claims{UserID: testdb.User(t, db, auth.RoleSeller).ID, Role: auth.RoleSeller}
	rival := &auth.Claims{UserID: testdb.User(t, db, auth.RoleSeller).ID, Role: auth.RoleSeller}
	admin := &auth.Claims{UserID: testdb.User(t, db, auth.RoleAdmin).ID, Role: auth.RoleAdmin}

	in := services.ProductInput{Name: "Lamp", Price: decimal.RequireFromString("19.99"), Quantity: 3, Category: "Home"}
	p, err := svc.Create(ctx, owner, in)
	require.NoError(t, err)
	assert.Equal(t, owner.UserID, p.SellerID)

	in.Quantity = 7
	_, err = svc.Update(ctx, rival, p.ID, in)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	updated, err := svc.Update(ctx, owner, p.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Quantity)

	bad := in
	bad.Category = "Weapons"
	bad.Price = decimal.Zero
	_, err = svc.Create(ctx, owner, bad)
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Fields, "category")
	assert.Contains(t, ae.Fields, "price")

	assert.ErrorIs(t, svc.Delete(ctx, rival, p.ID), apperr.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, admin, p.ID))
	_, err = svc.Get(ctx, p.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAdminCannotDeleteSelf(t *testing.T) {
	db := testdb.Open(t)
	svc := services.NewAdminService(repositories.NewUserRepository(db))
	ctx := context.Background()
	admin := testdb.User(t, db, auth.RoleAdmin)
	victim := testdb.User(t, db, auth.RoleShopper)

	assert.ErrorIs(t, svc.DeleteUser(ctx, admin.ID, admin.ID), apperr.ErrInvalidArgument)
	require.NoError(t, svc.DeleteUser(ctx, admin.ID, victim.ID))

	users, total, err := svc.Users(ctx, repositories.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, users, 1)
}
