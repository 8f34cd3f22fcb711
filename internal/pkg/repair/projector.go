package repair

import (
	"sort"
	"time"

	"github.com/BillFoxHQ/BillFox/app/models"
	"github.com/BillFoxHQ/BillFox/internal/pkg/catalog"
	"github.com/google/uuid"
)

// RepairedSubscription carries a subscription's projected next version while a
// repair is in flight: a copy of the subscription with its active version
// bumped (and start dates overridden on recreate), the retained events
// re-tagged to that version, and every event materialized by the replay.
// The underlying subscription value is never mutated.
type RepairedSubscription struct {
	Sub       models.Subscription
	Events    []models.SubscriptionEvent
	NewEvents []models.SubscriptionEvent

	retainedIDs []string
	plan        *catalog.Plan
	cancelled   bool
	readOnly    bool
}

// newRepairedSubscription builds the next version of cur from its retained
// events. newBundleStart/newStart are non-nil only when the base (or this
// subscription) is being recreated.
func newRepairedSubscription(cur *models.Subscription, newBundleStart, newStart *time.Time, retained []models.SubscriptionEvent, resolver catalog.Resolver) (*RepairedSubscription, error) {
	sub := *cur
	sub.ActiveVersion = cur.ActiveVersion + 1
	if newBundleStart != nil {
		sub.BundleStartDate = *newBundleStart
	}
	if newStart != nil {
		sub.StartDate = *newStart
	}

	rs := &RepairedSubscription{Sub: sub}
	rs.Events = make([]models.SubscriptionEvent, len(retained))
	rs.retainedIDs = make([]string, len(retained))
	for i, ev := range retained {
		ev.ActiveVersion = sub.ActiveVersion
		rs.Events[i] = ev
		rs.retainedIDs[i] = ev.UUID
	}
	if err := rs.rebuildState(resolver); err != nil {
		return nil, err
	}
	return rs, nil
}

// newReadOnlyBase synthesizes a repaired view of the base subscription at its
// current version, purely so add-on eligibility checks have a consistent
// base-plan reference during an add-on-only repair. It is never committed.
func newReadOnlyBase(cur *models.Subscription, events []models.SubscriptionEvent, resolver catalog.Resolver) (*RepairedSubscription, error) {
	rs := &RepairedSubscription{Sub: *cur, Events: events, readOnly: true}
	if err := rs.rebuildState(resolver); err != nil {
		return nil, err
	}
	return rs, nil
}

// rebuildState replays the current event list to recover the plan and
// cancellation state the next new event will observe.
func (r *RepairedSubscription) rebuildState(resolver catalog.Resolver) error {
	r.plan = nil
	r.cancelled = false
	for i := range r.Events {
		ev := &r.Events[i]
		switch ev.Kind {
		case models.EventKindCreate, models.EventKindReCreate:
			r.cancelled = false
			if err := r.resolveInto(ev, resolver); err != nil {
				return err
			}
		case models.EventKindChange:
			if err := r.resolveInto(ev, resolver); err != nil {
				return err
			}
		case models.EventKindCancel:
			r.cancelled = true
		}
	}
	return nil
}

func (r *RepairedSubscription) resolveInto(ev *models.SubscriptionEvent, resolver catalog.Resolver) error {
	if ev.PlanName == "" {
		return nil
	}
	p, err := resolver.ResolvePlan(ev.PlanName, ev.RequestedDate, r.Sub.StartDate)
	if err != nil {
		return err
	}
	r.plan = p
	return nil
}

// materialize appends a freshly minted event at the repaired version and
// updates the in-memory state accordingly.
func (r *RepairedSubscription) materialize(kind string, requestedDate, effectiveDate time.Time, plan *catalog.Plan) models.SubscriptionEvent {
	ev := models.SubscriptionEvent{
		UUID:             uuid.NewString(),
		SubscriptionUUID: r.Sub.UUID,
		Kind:             kind,
		EffectiveDate:    effectiveDate,
		RequestedDate:    requestedDate,
		ActiveVersion:    r.Sub.ActiveVersion,
	}
	if plan != nil {
		ev.PlanName = plan.Name
	}

	switch kind {
	case models.EventKindCreate, models.EventKindReCreate:
		r.cancelled = false
		r.plan = plan
	case models.EventKindChange:
		r.plan = plan
	case models.EventKindCancel:
		r.cancelled = true
	}

	r.Events = append(r.Events, ev)
	r.NewEvents = append(r.NewEvents, ev)
	return ev
}

// CurrentProduct returns the product backing the subscription's current plan,
// or "" when the subscription is cancelled or has never had a plan.
func (r *RepairedSubscription) CurrentProduct() string {
	if r.cancelled || r.plan == nil {
		return ""
	}
	return r.plan.Product
}

type orderedNewEvent struct {
	NewEvent
	seq int
}

// orderNewEvents flattens every requested event across the bundle into one
// global replay sequence: requested date ascending, ties broken by target
// subscription id and then submission order. The tie-break is part of the
// contract; replay order is observable through cascade effects.
func orderNewEvents(input []SubscriptionTimeline) []orderedNewEvent {
	var out []orderedNewEvent
	seq := 0
	for _, st := range input {
		for _, ne := range st.NewEvents {
			ne.SubscriptionID = st.SubscriptionID
			out = append(out, orderedNewEvent{NewEvent: ne, seq: seq})
			seq++
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RequestedDate.Equal(out[j].RequestedDate) {
			return out[i].RequestedDate.Before(out[j].RequestedDate)
		}
		if out[i].SubscriptionID != out[j].SubscriptionID {
			return out[i].SubscriptionID < out[j].SubscriptionID
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// projection replays the globally ordered new events against the repaired
// bundle state and computes add-on cascades as it goes.
type projection struct {
	resolver catalog.Resolver
	oracle   catalog.AddOnOracle
	now      time.Time

	base     *RepairedSubscription
	inRepair map[string]*RepairedSubscription
	addOns   []*RepairedSubscription
}

func newProjection(resolver catalog.Resolver, oracle catalog.AddOnOracle, now time.Time, base *RepairedSubscription, inRepair []*RepairedSubscription, addOns []*RepairedSubscription) *projection {
	byID := make(map[string]*RepairedSubscription, len(inRepair))
	for _, rs := range inRepair {
		byID[rs.Sub.UUID] = rs
	}
	return &projection{
		resolver: resolver,
		oracle:   oracle,
		now:      now,
		base:     base,
		inRepair: byID,
		addOns:   addOns,
	}
}

func (p *projection) baseProduct() string {
	if p.base == nil {
		return ""
	}
	return p.base.CurrentProduct()
}

// apply materializes one new event against its target subscription and
// trickles consequences down to dependent add-ons.
func (p *projection) apply(ev orderedNewEvent) error {
	target := p.inRepair[ev.SubscriptionID]
	if target == nil {
		return &Error{Code: CodeUnknownSubscription, SubscriptionID: ev.SubscriptionID}
	}

	switch ev.TransitionType {
	case models.EventKindCreate, models.EventKindReCreate, models.EventKindChange:
		plan, err := p.resolver.ResolvePlan(ev.PlanName, ev.RequestedDate, target.Sub.StartDate)
		if err != nil {
			return err
		}
		if target.Sub.IsAddOn() {
			if err := p.oracle.CheckCreationRights(p.baseProduct(), plan); err != nil {
				return &Error{Code: CodeIneligibleAddOn, SubscriptionID: target.Sub.UUID, Cause: err}
			}
		}
		target.materialize(ev.TransitionType, ev.RequestedDate, ev.RequestedDate, plan)
		if target == p.base && ev.TransitionType == models.EventKindChange {
			p.cascadeAddOnCancellations(ev.RequestedDate)
		}

	case models.EventKindCancel:
		target.materialize(models.EventKindCancel, ev.RequestedDate, ev.RequestedDate, nil)
		if target == p.base {
			p.cascadeAddOnCancellations(ev.RequestedDate)
		}

	case models.EventKindPhase:
		// Accepted but not materialized: phase transitions are catalog-driven,
		// not caller-supplied.

	default:
		return &Error{Code: CodeUnknownTransitionType, SubscriptionID: ev.SubscriptionID}
	}

	return nil
}

// cascadeAddOnCancellations re-evaluates every not-yet-cancelled add-on in
// the repair set after a base plan change or cancellation. Future-dated base
// transitions do not cascade here; they are picked up at runtime (or
// speculatively by addFutureAddOnCancellations for a dry run).
func (p *projection) cascadeAddOnCancellations(effective time.Time) {
	if effective.After(p.now) {
		return
	}
	p.injectAddOnCancellations(effective)
}

func (p *projection) injectAddOnCancellations(effective time.Time) {
	baseProduct := p.baseProduct()
	for _, ao := range p.addOns {
		if ao.cancelled || ao.plan == nil {
			continue
		}
		if baseProduct == "" ||
			p.oracle.IsAddOnIncluded(baseProduct, ao.plan.Product) ||
			!p.oracle.IsAddOnAvailable(baseProduct, ao.plan.Product) {
			ao.materialize(models.EventKindCancel, effective, effective, nil)
		}
	}
}

// addFutureAddOnCancellations appends the add-on cancellations implied by the
// base subscription's pending (not-yet-effective) transition. Dry runs use it
// so the projected timeline matches what the runtime cascade will eventually
// materialize.
func (p *projection) addFutureAddOnCancellations() {
	if p.base == nil {
		return
	}
	var pending *models.SubscriptionEvent
	for i := range p.base.Events {
		ev := &p.base.Events[i]
		if !ev.EffectiveDate.After(p.now) {
			continue
		}
		if ev.Kind == models.EventKindChange || ev.Kind == models.EventKindCancel {
			pending = ev
		}
	}
	if pending == nil {
		return
	}
	p.injectAddOnCancellations(pending.EffectiveDate)
}
