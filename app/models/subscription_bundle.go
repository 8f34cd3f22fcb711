package models

import "time"

// SubscriptionBundle groups a base subscription with its add-ons. It is the
// unit of atomicity for timeline repairs: either every subscription in the
// bundle is rewritten together or nothing is.
type SubscriptionBundle struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UUID            string    `gorm:"type:char(36);uniqueIndex" json:"uuid"`
	ExternalKey     string    `gorm:"type:varchar(191);not null;index:ux_bundles_account_key,unique,priority:2" json:"external_key"`
	AccountID       uint      `gorm:"not null;index:ux_bundles_account_key,unique,priority:1" json:"account_id"`
	LastSysUpdateAt time.Time `gorm:"type:timestamp;not null" json:"last_sys_update_at"`
	RepairCount     int64     `gorm:"not null;default:0" json:"repair_count"`
	DryRunCount     int64     `gorm:"not null;default:0" json:"dry_run_count"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
