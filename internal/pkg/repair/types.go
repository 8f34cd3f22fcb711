package repair

import "time"

// RepairType classifies a bundle repair by what the request touches.
type RepairType int

const (
	// BaseRepair rewrites the bundle's base subscription (and possibly add-ons).
	BaseRepair RepairType = iota
	// AddOnRepair rewrites add-ons only; the base is referenced read-only.
	AddOnRepair
	// StandaloneRepair rewrites a standalone subscription.
	StandaloneRepair
)

// PlanPhaseSpecifier is the resolved billing shape of an event, built by the
// timeline projector from the catalog.
type PlanPhaseSpecifier struct {
	Product       string `json:"product,omitempty"`
	PlanName      string `json:"plan_name,omitempty"`
	PhaseName     string `json:"phase_name,omitempty"`
	PhaseType     string `json:"phase_type,omitempty"`
	BillingPeriod string `json:"billing_period,omitempty"`
	Category      string `json:"category,omitempty"`
}

// ExistingEvent is the read-only projection of one retained history event.
type ExistingEvent struct {
	EventID        string             `json:"event_id"`
	TransitionType string             `json:"transition_type"`
	RequestedDate  time.Time          `json:"requested_date"`
	EffectiveDate  time.Time          `json:"effective_date"`
	Spec           PlanPhaseSpecifier `json:"plan_phase"`
}

// DeletedEvent references a history event the caller wants discarded.
type DeletedEvent struct {
	EventID string `json:"event_id"`
}

// NewEvent is a transition the caller wants injected. SubscriptionID is filled
// from the enclosing SubscriptionTimeline when the bundle request is ordered
// globally.
type NewEvent struct {
	SubscriptionID string    `json:"-"`
	TransitionType string    `json:"transition_type"`
	PlanName       string    `json:"plan_name,omitempty"`
	PhaseName      string    `json:"phase_name,omitempty"`
	RequestedDate  time.Time `json:"requested_date"`
}

// SubscriptionTimeline is the per-subscription slice of a bundle repair
// request or response.
type SubscriptionTimeline struct {
	SubscriptionID string          `json:"subscription_id"`
	Category       string          `json:"category,omitempty"`
	ActiveVersion  int64           `json:"active_version,omitempty"`
	ExistingEvents []ExistingEvent `json:"existing_events,omitempty"`
	DeletedEvents  []DeletedEvent  `json:"deleted_events,omitempty"`
	NewEvents      []NewEvent      `json:"new_events,omitempty"`
}

// BundleTimeline is the caller-facing repair request/response. ViewID is the
// opaque optimistic-concurrency fingerprint the caller must echo back from a
// prior read.
type BundleTimeline struct {
	BundleID      string                 `json:"bundle_id"`
	ExternalKey   string                 `json:"external_key,omitempty"`
	ViewID        string                 `json:"view_id"`
	Subscriptions []SubscriptionTimeline `json:"subscriptions"`
}
