package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	AccountStatusActive    = "active"
	AccountStatusClosed    = "closed"
	AccountStatusSuspended = "suspended"
)

// Account is the owner of one or more subscription bundles.
type Account struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UUID       string    `gorm:"type:char(36);uniqueIndex" json:"uuid"`
	ExternalID string    `gorm:"type:varchar(191);uniqueIndex" json:"external_id" validate:"required,max=191"`
	Name       string    `gorm:"type:varchar(150)" json:"name" validate:"max=150"`
	Email      string    `gorm:"type:varchar(200)" json:"email" validate:"omitempty,email,max=200"`
	Currency   string    `gorm:"type:varchar(3);default:'USD'" json:"currency" validate:"len=3"`
	Status     string    `gorm:"type:varchar(32);not null;default:'active'" json:"status" validate:"oneof=active closed suspended"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a *Account) Validate() error {
	v := validator.New()

	return v.Struct(a)
}
