package models

import "time"

const (
	SubscriptionCategoryBase       = "base"
	SubscriptionCategoryAddOn      = "add_on"
	SubscriptionCategoryStandalone = "standalone"
)

// Subscription is a single product instance inside a bundle. Its state is
// event-sourced: the rows in subscription_events tagged with the current
// ActiveVersion are its authoritative history. A repair never mutates events
// in place; it bumps ActiveVersion and re-tags the retained prefix.
type Subscription struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UUID            string    `gorm:"type:char(36);uniqueIndex" json:"uuid"`
	BundleID        uint      `gorm:"not null;index" json:"bundle_id"`
	BundleUUID      string    `gorm:"type:char(36);not null;index" json:"bundle_uuid"`
	Category        string    `gorm:"type:varchar(20);not null" json:"category"`
	StartDate       time.Time `gorm:"type:timestamp;not null" json:"start_date"`
	BundleStartDate time.Time `gorm:"type:timestamp;not null" json:"bundle_start_date"`
	ActiveVersion   int64     `gorm:"not null;default:1" json:"active_version"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsBase reports whether this subscription anchors its bundle.
func (s *Subscription) IsBase() bool {
	return s.Category == SubscriptionCategoryBase
}

// IsAddOn reports whether this subscription depends on a base plan.
func (s *Subscription) IsAddOn() bool {
	return s.Category == SubscriptionCategoryAddOn
}
