package services

import (
	"context"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/pkg/apperr"
)

type AdminService struct {
	users *repositories.UserRepository
}

func NewAdminService(users *repositories.UserRepository) *AdminService {
	return &AdminService{users: users}
}

func (s *AdminService) Users(ctx context.Context, p repositories.Page) ([]models.User, int64, error) {
	return s.users.List(ctx, p)
}

// DeleteUser removes an account. Admins cannot delete themselves.
func (s *AdminService) DeleteUser(ctx context.Context, callerID, id string) error {
	if callerID == id {
		return apperr.InvalidArgument("You cannot delete your own account")
	}
	return s.users.Delete(ctx, id)
}
