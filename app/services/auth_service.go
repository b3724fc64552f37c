// Package services holds the storefront's business logic. Services depend
// on repositories and infrastructure passed in at construction and return
// apperr errors that controllers translate to HTTP statuses.
package services

import (
	"context"
	"strings"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/pkg/apperr"
	"github.com/shashiranjanraj/storefront/pkg/auth"
)

// RegisterInput is a new account. Role may be SHOPPER or SELLER; admins are
// created by seeding only.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// ProfileInput holds the fields a user may edit on their own account.
type ProfileInput struct {
	Name      string
	Email     string
	AvatarURL string
}

// Session is what a successful login or registration returns.
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type AuthService struct {
	users  *repositories.UserRepository
	tokens *auth.Issuer
}

func NewAuthService(users *repositories.UserRepository, tokens *auth.Issuer) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	role := strings.ToUpper(strings.TrimSpace(in.Role))
	if role == "" {
		role = auth.RoleShopper
	}
	if role != auth.RoleShopper && role != auth.RoleSeller {
		return nil, apperr.Invalid(map[string]string{"role": "The selected role is invalid."})
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	taken, err := s.users.EmailTaken(ctx, email, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("Email is already registered")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &models.User{Name: strings.TrimSpace(in.Name), Email: email, Password: hash, Role: role}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return s.session(u)
}

// Login checks credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.Unauthenticated("Invalid credentials")
		}
		return nil, err
	}
	if !auth.CheckPassword(u.Password, password) {
		return nil, apperr.Unauthenticated("Invalid credentials")
	}
	return s.session(u)
}

func (s *AuthService) Profile(ctx context.Context, userID string) (*models.User, error) {
	return s.users.FindByID(ctx, userID)
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*models.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email != u.Email {
		taken, err := s.users.EmailTaken(ctx, email, u.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperr.Conflict("Email is already registered")
		}
	}

	u.Name = strings.TrimSpace(in.Name)
	u.Email = email
	u.AvatarURL = in.AvatarURL
	if err := s.users.UpdateProfile(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) session(u *models.User) (*Session, error) {
	token, err := s.tokens.GenerateToken(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: u}, nil
}
