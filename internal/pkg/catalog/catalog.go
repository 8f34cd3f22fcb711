package catalog

import (
	"errors"
	"time"
)

// Catalog lookup failures surfaced to callers. Anything else coming out of
// the repository layer is an infrastructure error and is passed through.
var (
	ErrPlanNotFound      = errors.New("catalog: plan not found")
	ErrPhaseNotFound     = errors.New("catalog: phase not found")
	ErrAddOnNotAvailable = errors.New("catalog: add-on not available for base product")
	ErrBaseNotActive     = errors.New("catalog: base subscription is not active")
	ErrNotAddOn          = errors.New("catalog: plan is not an add-on")
)

// Plan is the resolved billing view of a catalog plan.
type Plan struct {
	Name          string
	Product       string
	Category      string
	BillingPeriod string
}

// Phase is the resolved billing view of a single plan phase.
type Phase struct {
	Name          string
	PlanName      string
	PhaseType     string
	BillingPeriod string
}

// Resolver resolves plan/phase references to billing attributes. Effective and
// start dates are part of the contract so a versioned catalog can pick the
// right edition; the default implementation serves a single edition and
// ignores them.
type Resolver interface {
	ResolvePlan(planRef string, requestedDate, subscriptionStart time.Time) (*Plan, error)
	ResolvePhase(phaseRef string, effectiveDate, subscriptionStart time.Time) (*Phase, error)
}

// AddOnOracle answers add-on eligibility questions relative to a base product.
// An empty baseProduct means the base subscription is cancelled.
type AddOnOracle interface {
	IsAddOnIncluded(baseProduct, addOnProduct string) bool
	IsAddOnAvailable(baseProduct, addOnProduct string) bool
	CheckCreationRights(baseProduct string, addOnPlan *Plan) error
}
