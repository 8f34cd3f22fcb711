package repair

import (
	"testing"

	"github.com/BillFoxHQ/BillFox/app/models"
	"github.com/BillFoxHQ/BillFox/internal/pkg/catalog"
)

func testCatalog() *catalog.Service {
	return catalog.NewService(&catalog.StaticRepository{
		Plans: []models.CatalogPlan{
			{Name: "gold-monthly", Product: "gold", Category: models.SubscriptionCategoryBase, BillingPeriod: models.BillingPeriodMonthly, IsActive: true},
			{Name: "silver-monthly", Product: "silver", Category: models.SubscriptionCategoryBase, BillingPeriod: models.BillingPeriodMonthly, IsActive: true},
			{Name: "oilslick-monthly", Product: "oil-slick", Category: models.SubscriptionCategoryAddOn, BillingPeriod: models.BillingPeriodMonthly, IsActive: true},
			{Name: "alarm-monthly", Product: "alarm", Category: models.SubscriptionCategoryAddOn, BillingPeriod: models.BillingPeriodMonthly, IsActive: true},
			{Name: "turbo-monthly", Product: "turbo", Category: models.SubscriptionCategoryAddOn, BillingPeriod: models.BillingPeriodMonthly, IsActive: true},
			{Name: "retired-monthly", Product: "retired", Category: models.SubscriptionCategoryBase, BillingPeriod: models.BillingPeriodMonthly, IsActive: false},
		},
		Phases: []models.CatalogPhase{
			{Name: "gold-monthly-trial", PlanName: "gold-monthly", PhaseType: models.PhaseTypeTrial, BillingPeriod: models.BillingPeriodNoBilling},
			{Name: "gold-monthly-evergreen", PlanName: "gold-monthly", PhaseType: models.PhaseTypeEvergreen, BillingPeriod: models.BillingPeriodMonthly},
		},
		Rules: []models.CatalogAddOnRule{
			{BaseProduct: "gold", AddOnProduct: "oil-slick", Included: false, Available: true},
			{BaseProduct: "gold", AddOnProduct: "alarm", Included: true, Available: true},
			{BaseProduct: "silver", AddOnProduct: "alarm", Included: false, Available: true},
		},
	})
}

func TestProjectTimelineSkipsOtherVersions(t *testing.T) {
	sub := &models.Subscription{UUID: "sub-1", Category: models.SubscriptionCategoryBase, ActiveVersion: 2}
	events := []models.SubscriptionEvent{
		{ID: 1, UUID: "old", Kind: models.EventKindCreate, PlanName: "gold-monthly", EffectiveDate: day(0), RequestedDate: day(0), ActiveVersion: 1},
		{ID: 2, UUID: "new", Kind: models.EventKindCreate, PlanName: "silver-monthly", EffectiveDate: day(5), RequestedDate: day(5), ActiveVersion: 2},
	}

	out, err := ProjectTimeline(sub, events, testCatalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d events, want 1", len(out))
	}
	if out[0].EventID != "new" || out[0].Spec.Product != "silver" {
		t.Fatalf("unexpected projection: %+v", out[0])
	}
}

func TestProjectTimelineCarriesPlanForward(t *testing.T) {
	sub := &models.Subscription{UUID: "sub-1", Category: models.SubscriptionCategoryBase, ActiveVersion: 1}
	events := []models.SubscriptionEvent{
		{ID: 1, UUID: "e1", Kind: models.EventKindCreate, PlanName: "gold-monthly", PhaseName: "gold-monthly-trial", EffectiveDate: day(0), RequestedDate: day(0), ActiveVersion: 1},
		{ID: 2, UUID: "e2", Kind: models.EventKindPhase, PhaseName: "gold-monthly-evergreen", EffectiveDate: day(30), RequestedDate: day(30), ActiveVersion: 1},
		{ID: 3, UUID: "e3", Kind: models.EventKindCancel, EffectiveDate: day(60), RequestedDate: day(60), ActiveVersion: 1},
	}

	out, err := ProjectTimeline(sub, events, testCatalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("got %d events, want 3", len(out))
	}

	if out[0].Spec.PhaseType != models.PhaseTypeTrial {
		t.Fatalf("expected trial phase on create, got %+v", out[0].Spec)
	}
	// the phase transition keeps the plan while switching phase attributes
	if out[1].Spec.PlanName != "gold-monthly" || out[1].Spec.PhaseType != models.PhaseTypeEvergreen {
		t.Fatalf("unexpected phase projection: %+v", out[1].Spec)
	}
	// the cancel names no plan; attributes carry forward
	if out[2].Spec.PlanName != "gold-monthly" || out[2].TransitionType != models.EventKindCancel {
		t.Fatalf("unexpected cancel projection: %+v", out[2])
	}
}

func TestProjectTimelineOrdersByEffectiveDate(t *testing.T) {
	sub := &models.Subscription{UUID: "sub-1", Category: models.SubscriptionCategoryBase, ActiveVersion: 1}
	events := []models.SubscriptionEvent{
		{ID: 2, UUID: "later", Kind: models.EventKindChange, PlanName: "silver-monthly", EffectiveDate: day(10), RequestedDate: day(10), ActiveVersion: 1},
		{ID: 1, UUID: "first", Kind: models.EventKindCreate, PlanName: "gold-monthly", EffectiveDate: day(0), RequestedDate: day(0), ActiveVersion: 1},
	}

	out, err := ProjectTimeline(sub, events, testCatalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0].EventID != "first" || out[1].EventID != "later" {
		t.Fatalf("events out of order: %v, %v", out[0].EventID, out[1].EventID)
	}
}

func TestProjectTimelineUnknownPlan(t *testing.T) {
	sub := &models.Subscription{UUID: "sub-1", Category: models.SubscriptionCategoryBase, ActiveVersion: 1}
	events := []models.SubscriptionEvent{
		{ID: 1, UUID: "e1", Kind: models.EventKindCreate, PlanName: "no-such-plan", EffectiveDate: day(0), RequestedDate: day(0), ActiveVersion: 1},
	}

	if _, err := ProjectTimeline(sub, events, testCatalog()); err == nil {
		t.Fatalf("expected a catalog error for an unknown plan")
	}
}
