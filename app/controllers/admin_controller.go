package controllers

import (
	"strconv"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
)

type AdminController struct {
	admin *services.AdminService
}

func NewAdminController(admin *services.AdminService) *AdminController {
	return &AdminController{admin: admin}
}

func (h *AdminController) Users(c *ctx.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	users, total, err := h.admin.Users(c.Context(), repositories.Page{Page: page, Limit: limit})
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(struct {
		Items []models.User `json:"items"`
		Total int64         `json:"total"`
	}{users, total})
}

func (h *AdminController) DeleteUser(c *ctx.Context) {
	if err := h.admin.DeleteUser(c.Context(), c.UserID(), c.Param("id")); err != nil {
		c.Fail(err)
		return
	}
	c.Message("User deleted")
}
