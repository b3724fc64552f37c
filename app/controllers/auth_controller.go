// Package controllers adapts HTTP requests to the services in app/services.
// Handlers bind and validate the body, call one service method and write
// the result through pkg/ctx; services own every business rule.
package controllers

import (
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
)

type AuthController struct {
	auth *services.AuthService
}

func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"nullable,in=SHOPPER,SELLER"`
}

// Register creates an account and signs it in.
func (h *AuthController) Register(c *ctx.Context) {
	var in registerRequest
	if !c.BindJSON(&in) {
		return
	}
	sess, err := h.auth.Register(c.Context(), services.RegisterInput{
		Name: in.Name, Email: in.Email, Password: in.Password, Role: in.Role,
	})
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(sess)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthController) Login(c *ctx.Context) {
	var in loginRequest
	if !c.BindJSON(&in) {
		return
	}
	sess, err := h.auth.Login(c.Context(), in.Email, in.Password)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(sess)
}

// Profile returns the caller's account.
func (h *AuthController) Profile(c *ctx.Context) {
	u, err := h.auth.Profile(c.Context(), c.UserID())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(u)
}

type profileRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=255"`
	AvatarURL string `json:"avatarUrl" validate:"nullable,url,max=1024"`
}

func (h *AuthController) UpdateProfile(c *ctx.Context) {
	var in profileRequest
	if !c.BindJSON(&in) {
		return
	}
	u, err := h.auth.UpdateProfile(c.Context(), c.UserID(), services.ProfileInput{
		Name: in.Name, Email: in.Email, AvatarURL: in.AvatarURL,
	})
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(u)
}
