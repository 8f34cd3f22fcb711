package models

import "time"

const (
	BillingPeriodMonthly   = "monthly"
	BillingPeriodAnnual    = "annual"
	BillingPeriodNoBilling = "no_billing"
)

const (
	PhaseTypeTrial     = "trial"
	PhaseTypeDiscount  = "discount"
	PhaseTypeEvergreen = "evergreen"
	PhaseTypeFixedTerm = "fixed_term"
)

// CatalogPlan is a sellable plan. Product groups plans that deliver the same
// thing under different billing periods (gold-monthly and gold-annual share
// the product "gold").
type CatalogPlan struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"type:varchar(191);uniqueIndex" json:"name"`
	Product       string    `gorm:"type:varchar(191);not null;index" json:"product"`
	Category      string    `gorm:"type:varchar(20);not null;default:'base'" json:"category"`
	BillingPeriod string    `gorm:"type:varchar(20);not null;default:'monthly'" json:"billing_period"`
	IsActive      bool      `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CatalogPhase is one phase of a plan's lifecycle (trial, evergreen, ...).
type CatalogPhase struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"type:varchar(191);uniqueIndex" json:"name"`
	PlanName      string    `gorm:"type:varchar(191);not null;index" json:"plan_name"`
	PhaseType     string    `gorm:"type:varchar(20);not null" json:"phase_type"`
	BillingPeriod string    `gorm:"type:varchar(20);not null;default:'monthly'" json:"billing_period"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// CatalogAddOnRule describes how an add-on product relates to a base product:
// whether it is still purchasable under that base and whether the base already
// includes it for free. Absence of a rule means the add-on is unavailable.
type CatalogAddOnRule struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	BaseProduct  string    `gorm:"type:varchar(191);not null;index:ux_addon_rules_pair,unique,priority:1" json:"base_product"`
	AddOnProduct string    `gorm:"type:varchar(191);not null;index:ux_addon_rules_pair,unique,priority:2" json:"addon_product"`
	Included     bool      `gorm:"default:false" json:"included"`
	Available    bool      `gorm:"default:true" json:"available"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}
