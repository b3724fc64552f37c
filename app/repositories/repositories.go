// Package repositories is the storefront's data access layer. Every
// repository wraps an injected *gorm.DB; WithTx returns a copy bound to a
// transaction so services can compose several writes atomically.
package repositories

import (
	"errors"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/pkg/apperr"
	"github.com/shashiranjanraj/storefront/pkg/database"
)

// translate maps gorm errors onto application error kinds.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.Wrap(err, apperr.KindNotFound, what+" not found")
	case database.IsUniqueViolation(err):
		return apperr.Wrap(err, apperr.KindConflict, what+" already exists")
	default:
		return apperr.Upstream(err, "store unavailable")
	}
}

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

func (p Page) normalise() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 || p.Limit > 100 {
		p.Limit = 20
	}
	return p
}

func (p Page) offset() int { return (p.Page - 1) * p.Limit }
