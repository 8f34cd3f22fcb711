package models

import "time"

const (
	EventKindCreate   = "create"
	EventKindReCreate = "re_create"
	EventKindChange   = "change"
	EventKindCancel   = "cancel"
	EventKindPhase    = "phase"
)

// SubscriptionEvent is an immutable fact in a subscription's history. The
// auto-increment ID doubles as the global insertion order used by the
// optimistic view id; the UUID is the caller-facing identifier. Events are
// never deleted: a repair moves the retained prefix to the subscription's new
// active version and leaves superseded rows behind on the old one.
type SubscriptionEvent struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UUID             string    `gorm:"type:char(36);uniqueIndex" json:"uuid"`
	SubscriptionID   uint      `gorm:"not null;index" json:"subscription_id"`
	SubscriptionUUID string    `gorm:"type:char(36);not null;index:idx_events_sub_version,priority:1" json:"subscription_uuid"`
	Kind             string    `gorm:"type:varchar(20);not null" json:"kind"`
	EffectiveDate    time.Time `gorm:"type:timestamp;not null;index" json:"effective_date"`
	RequestedDate    time.Time `gorm:"type:timestamp;not null" json:"requested_date"`
	ActiveVersion    int64     `gorm:"not null;index:idx_events_sub_version,priority:2" json:"active_version"`
	PlanName         string    `gorm:"type:varchar(191);default:''" json:"plan_name,omitempty"`
	PhaseName        string    `gorm:"type:varchar(191);default:''" json:"phase_name,omitempty"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// IsUserEvent reports whether the event was caller-initiated (as opposed to a
// catalog-driven phase transition).
func (e *SubscriptionEvent) IsUserEvent() bool {
	return e.Kind != EventKindPhase
}

// ValidEventKind reports whether kind names a known transition.
func ValidEventKind(kind string) bool {
	switch kind {
	case EventKindCreate, EventKindReCreate, EventKindChange, EventKindCancel, EventKindPhase:
		return true
	default:
		return false
	}
}
