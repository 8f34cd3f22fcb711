package repair

import (
	"testing"

	"github.com/BillFoxHQ/BillFox/app/models"
	"github.com/BillFoxHQ/BillFox/internal/pkg/catalog"
)

func TestOrderNewEvents(t *testing.T) {
	input := []SubscriptionTimeline{
		{SubscriptionID: "sub-b", NewEvents: []NewEvent{
			{TransitionType: models.EventKindChange, RequestedDate: day(10)},
			{TransitionType: models.EventKindCancel, RequestedDate: day(5)},
		}},
		{SubscriptionID: "sub-a", NewEvents: []NewEvent{
			{TransitionType: models.EventKindChange, RequestedDate: day(10)},
		}},
	}

	ordered := orderNewEvents(input)
	if len(ordered) != 3 {
		t.Fatalf("got %d events, want 3", len(ordered))
	}
	// requested date wins first
	if !ordered[0].RequestedDate.Equal(day(5)) {
		t.Fatalf("expected the day-5 cancel first, got %+v", ordered[0])
	}
	// same date: subscription id breaks the tie
	if ordered[1].SubscriptionID != "sub-a" || ordered[2].SubscriptionID != "sub-b" {
		t.Fatalf("tie not broken by subscription id: %s then %s", ordered[1].SubscriptionID, ordered[2].SubscriptionID)
	}
}

func TestOrderNewEventsPreservesSubmissionOrder(t *testing.T) {
	input := []SubscriptionTimeline{
		{SubscriptionID: "sub-a", NewEvents: []NewEvent{
			{TransitionType: models.EventKindChange, PlanName: "first", RequestedDate: day(10)},
			{TransitionType: models.EventKindChange, PlanName: "second", RequestedDate: day(10)},
		}},
	}

	ordered := orderNewEvents(input)
	if ordered[0].PlanName != "first" || ordered[1].PlanName != "second" {
		t.Fatalf("submission order lost: %s then %s", ordered[0].PlanName, ordered[1].PlanName)
	}
}

func TestRepairedSubscriptionMaterialize(t *testing.T) {
	cat := testCatalog()
	sub := &models.Subscription{UUID: "sub-1", Category: models.SubscriptionCategoryBase, ActiveVersion: 1, StartDate: day(0)}
	retained := []models.SubscriptionEvent{
		{ID: 1, UUID: "e1", Kind: models.EventKindCreate, PlanName: "gold-monthly", EffectiveDate: day(0), RequestedDate: day(0), ActiveVersion: 1},
	}

	rs, err := newRepairedSubscription(sub, nil, nil, retained, cat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rs.Sub.ActiveVersion != 2 {
		t.Fatalf("active version = %d, want 2", rs.Sub.ActiveVersion)
	}
	if rs.Events[0].ActiveVersion != 2 {
		t.Fatalf("retained event not re-tagged: version %d", rs.Events[0].ActiveVersion)
	}
	if got := rs.CurrentProduct(); got != "gold" {
		t.Fatalf("CurrentProduct = %q, want gold", got)
	}

	plan, err := cat.ResolvePlan("silver-monthly", day(10), day(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ev := rs.materialize(models.EventKindChange, day(10), day(10), plan)
	if ev.UUID == "" || ev.ActiveVersion != 2 {
		t.Fatalf("unexpected materialized event: %+v", ev)
	}
	if got := rs.CurrentProduct(); got != "silver" {
		t.Fatalf("CurrentProduct after change = %q, want silver", got)
	}

	rs.materialize(models.EventKindCancel, day(20), day(20), nil)
	if got := rs.CurrentProduct(); got != "" {
		t.Fatalf("CurrentProduct after cancel = %q, want empty", got)
	}
	if len(rs.NewEvents) != 2 {
		t.Fatalf("got %d new events, want 2", len(rs.NewEvents))
	}
}

func TestCascadeCancelsDependentAddOns(t *testing.T) {
	cat := testCatalog()
	now := day(60)

	base := mustRepaired(t, &models.Subscription{UUID: "sub-base", Category: models.SubscriptionCategoryBase, ActiveVersion: 1, StartDate: day(0)},
		[]models.SubscriptionEvent{
			{ID: 1, UUID: "b1", Kind: models.EventKindCreate, PlanName: "gold-monthly", EffectiveDate: day(0), RequestedDate: day(0), ActiveVersion: 1},
		}, cat)
	oilSlick := mustRepaired(t, &models.Subscription{UUID: "sub-oil", Category: models.SubscriptionCategoryAddOn, ActiveVersion: 1, StartDate: day(5)},
		[]models.SubscriptionEvent{
			{ID: 2, UUID: "o1", Kind: models.EventKindCreate, PlanName: "oilslick-monthly", EffectiveDate: day(5), RequestedDate: day(5), ActiveVersion: 1},
		}, cat)
	alarm := mustRepaired(t, &models.Subscription{UUID: "sub-alarm", Category: models.SubscriptionCategoryAddOn, ActiveVersion: 1, StartDate: day(5)},
		[]models.SubscriptionEvent{
			{ID: 3, UUID: "a1", Kind: models.EventKindCreate, PlanName: "alarm-monthly", EffectiveDate: day(5), RequestedDate: day(5), ActiveVersion: 1},
		}, cat)

	addOns := []*RepairedSubscription{oilSlick, alarm}
	proj := newProjection(cat, cat, now, base, []*RepairedSubscription{base, oilSlick, alarm}, addOns)

	// change the base to silver: oil-slick has no rule under silver (gone),
	// alarm stays available and not included (survives)
	err := proj.apply(orderedNewEvent{NewEvent: NewEvent{
		SubscriptionID: "sub-base",
		TransitionType: models.EventKindChange,
		PlanName:       "silver-monthly",
		RequestedDate:  day(30),
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(oilSlick.NewEvents) != 1 || oilSlick.NewEvents[0].Kind != models.EventKindCancel {
		t.Fatalf("expected oil-slick to be cancelled, got %+v", oilSlick.NewEvents)
	}
	if !oilSlick.NewEvents[0].EffectiveDate.Equal(day(30)) {
		t.Fatalf("cancel effective at %v, want %v", oilSlick.NewEvents[0].EffectiveDate, day(30))
	}
	if len(alarm.NewEvents) != 0 {
		t.Fatalf("alarm should survive a change to silver, got %+v", alarm.NewEvents)
	}
}

func TestCascadeCancelsIncludedAddOn(t *testing.T) {
	cat := testCatalog()

	base := mustRepaired(t, &models.Subscription{UUID: "sub-base", Category: models.SubscriptionCategoryBase, ActiveVersion: 1, StartDate: day(0)},
		[]models.SubscriptionEvent{
			{ID: 1, UUID: "b1", Kind: models.EventKindCreate, PlanName: "silver-monthly", EffectiveDate: day(0), RequestedDate: day(0), ActiveVersion: 1},
		}, cat)
	alarm := mustRepaired(t, &models.Subscription{UUID: "sub-alarm", Category: models.SubscriptionCategoryAddOn, ActiveVersion: 1, StartDate: day(5)},
		[]models.SubscriptionEvent{
			{ID: 2, UUID: "a1", Kind: models.EventKindCreate, PlanName: "alarm-monthly", EffectiveDate: day(5), RequestedDate: day(5), ActiveVersion: 1},
		}, cat)

	proj := newProjection(cat, cat, day(60), base, []*RepairedSubscription{base, alarm}, []*RepairedSubscription{alarm})

	// gold includes alarm for free, so moving the base to gold cancels the
	// separately billed alarm add-on
	err := proj.apply(orderedNewEvent{NewEvent: NewEvent{
		SubscriptionID: "sub-base",
		TransitionType: models.EventKindChange,
		PlanName:       "gold-monthly",
		RequestedDate:  day(30),
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alarm.NewEvents) != 1 || alarm.NewEvents[0].Kind != models.EventKindCancel {
		t.Fatalf("expected alarm to be cancelled once included, got %+v", alarm.NewEvents)
	}
}

func TestCascadeOnBaseCancel(t *testing.T) {
	cat := testCatalog()

	base := mustRepaired(t, &models.Subscription{UUID: "sub-base", Category: models.SubscriptionCategoryBase, ActiveVersion: 1, StartDate: day(0)},
		[]models.SubscriptionEvent{
			{ID: 1, UUID: "b1", Kind: models.EventKindCreate, PlanName: "silver-monthly", EffectiveDate: day(0), RequestedDate: day(0), ActiveVersion: 1},
		}, cat)
	alarm := mustRepaired(t, &models.Subscription{UUID: "sub-alarm", Category: models.SubscriptionCategoryAddOn, ActiveVersion: 1, StartDate: day(5)},
		[]models.SubscriptionEvent{
			{ID: 2, UUID: "a1", Kind: models.EventKindCreate, PlanName: "alarm-monthly", EffectiveDate: day(5), RequestedDate: day(5), ActiveVersion: 1},
		}, cat)

	proj := newProjection(cat, cat, day(60), base, []*RepairedSubscription{base, alarm}, []*RepairedSubscription{alarm})

	// cancelling the base leaves no product to attach to, so the add-on is
	// cancelled at the same effective date
	err := proj.apply(orderedNewEvent{NewEvent: NewEvent{
		SubscriptionID: "sub-base",
		TransitionType: models.EventKindCancel,
		RequestedDate:  day(30),
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alarm.NewEvents) != 1 || alarm.NewEvents[0].Kind != models.EventKindCancel {
		t.Fatalf("expected alarm cancelled with its base, got %+v", alarm.NewEvents)
	}
	if !alarm.NewEvents[0].EffectiveDate.Equal(day(30)) {
		t.Fatalf("cancel effective at %v, want %v", alarm.NewEvents[0].EffectiveDate, day(30))
	}
}

func TestFutureBaseTransitionDoesNotCascadeImmediately(t *testing.T) {
	cat := testCatalog()
	now := day(60)

	base := mustRepaired(t, &models.Subscription{UUID: "sub-base", Category: models.SubscriptionCategoryBase, ActiveVersion: 1, StartDate: day(0)},
		[]models.SubscriptionEvent{
			{ID: 1, UUID: "b1", Kind: models.EventKindCreate, PlanName: "gold-monthly", EffectiveDate: day(0), RequestedDate: day(0), ActiveVersion: 1},
		}, cat)
	oilSlick := mustRepaired(t, &models.Subscription{UUID: "sub-oil", Category: models.SubscriptionCategoryAddOn, ActiveVersion: 1, StartDate: day(5)},
		[]models.SubscriptionEvent{
			{ID: 2, UUID: "o1", Kind: models.EventKindCreate, PlanName: "oilslick-monthly", EffectiveDate: day(5), RequestedDate: day(5), ActiveVersion: 1},
		}, cat)

	proj := newProjection(cat, cat, now, base, []*RepairedSubscription{base, oilSlick}, []*RepairedSubscription{oilSlick})

	err := proj.apply(orderedNewEvent{NewEvent: NewEvent{
		SubscriptionID: "sub-base",
		TransitionType: models.EventKindCancel,
		RequestedDate:  day(90),
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(oilSlick.NewEvents) != 0 {
		t.Fatalf("future cancel must not cascade at apply time, got %+v", oilSlick.NewEvents)
	}

	// the speculative pass used by dry runs materializes it
	proj.addFutureAddOnCancellations()
	if len(oilSlick.NewEvents) != 1 || !oilSlick.NewEvents[0].EffectiveDate.Equal(day(90)) {
		t.Fatalf("expected speculative cancel at day 90, got %+v", oilSlick.NewEvents)
	}
}

func TestApplyRejectsUnknownTransitionType(t *testing.T) {
	cat := testCatalog()
	base := mustRepaired(t, &models.Subscription{UUID: "sub-base", Category: models.SubscriptionCategoryBase, ActiveVersion: 1, StartDate: day(0)},
		[]models.SubscriptionEvent{
			{ID: 1, UUID: "b1", Kind: models.EventKindCreate, PlanName: "gold-monthly", EffectiveDate: day(0), RequestedDate: day(0), ActiveVersion: 1},
		}, cat)

	proj := newProjection(cat, cat, day(60), base, []*RepairedSubscription{base}, nil)
	err := proj.apply(orderedNewEvent{NewEvent: NewEvent{
		SubscriptionID: "sub-base",
		TransitionType: "uncancel",
		RequestedDate:  day(10),
	}})
	if !IsCode(err, CodeUnknownTransitionType) {
		t.Fatalf("got err %v, want code %s", err, CodeUnknownTransitionType)
	}
}

func mustRepaired(t *testing.T, sub *models.Subscription, events []models.SubscriptionEvent, cat catalog.Resolver) *RepairedSubscription {
	t.Helper()
	rs, err := newRepairedSubscription(sub, nil, nil, events, cat)
	if err != nil {
		t.Fatalf("newRepairedSubscription: %v", err)
	}
	return rs
}
