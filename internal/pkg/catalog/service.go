package catalog

import (
	"fmt"
	"time"

	"github.com/BillFoxHQ/BillFox/app/models"
	"gorm.io/gorm"
)

// Service implements Resolver and AddOnOracle on top of a Repository.
type Service struct {
	repo Repository
}

// NewService creates a catalog service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a catalog service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// ResolvePlan resolves a plan reference to its billing attributes. The dates
// are accepted for contract compatibility with versioned catalogs.
func (s *Service) ResolvePlan(planRef string, requestedDate, subscriptionStart time.Time) (*Plan, error) {
	_ = requestedDate
	_ = subscriptionStart
	p, err := s.repo.GetActivePlan(planRef)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, planRef)
		}
		return nil, err
	}
	return &Plan{
		Name:          p.Name,
		Product:       p.Product,
		Category:      p.Category,
		BillingPeriod: p.BillingPeriod,
	}, nil
}

// ResolvePhase resolves a phase reference to its billing attributes.
func (s *Service) ResolvePhase(phaseRef string, effectiveDate, subscriptionStart time.Time) (*Phase, error) {
	_ = effectiveDate
	_ = subscriptionStart
	ph, err := s.repo.GetPhase(phaseRef)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrPhaseNotFound, phaseRef)
		}
		return nil, err
	}
	return &Phase{
		Name:          ph.Name,
		PlanName:      ph.PlanName,
		PhaseType:     ph.PhaseType,
		BillingPeriod: ph.BillingPeriod,
	}, nil
}

// IsAddOnIncluded reports whether the base product already bundles the add-on
// product for free.
func (s *Service) IsAddOnIncluded(baseProduct, addOnProduct string) bool {
	rule, err := s.repo.GetAddOnRule(baseProduct, addOnProduct)
	if err != nil {
		return false
	}
	return rule.Included
}

// IsAddOnAvailable reports whether the add-on product can (still) be sold
// under the base product. No rule means not available.
func (s *Service) IsAddOnAvailable(baseProduct, addOnProduct string) bool {
	rule, err := s.repo.GetAddOnRule(baseProduct, addOnProduct)
	if err != nil {
		return false
	}
	return rule.Available
}

// CheckCreationRights decides whether an add-on plan may be created under the
// given base product. An empty base product means the base is cancelled.
func (s *Service) CheckCreationRights(baseProduct string, addOnPlan *Plan) error {
	if addOnPlan.Category != models.SubscriptionCategoryAddOn {
		return fmt.Errorf("%w: %s", ErrNotAddOn, addOnPlan.Name)
	}
	if baseProduct == "" {
		return fmt.Errorf("%w: add-on plan %s", ErrBaseNotActive, addOnPlan.Name)
	}
	if !s.IsAddOnAvailable(baseProduct, addOnPlan.Product) {
		return fmt.Errorf("%w: %s under %s", ErrAddOnNotAvailable, addOnPlan.Name, baseProduct)
	}
	return nil
}
