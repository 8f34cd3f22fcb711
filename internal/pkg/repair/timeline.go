package repair

import (
	"sort"
	"time"

	"github.com/BillFoxHQ/BillFox/app/models"
	"github.com/BillFoxHQ/BillFox/internal/pkg/catalog"
)

// ProjectTimeline converts a subscription's raw event log into the ordered
// caller-facing view. Events tagged with a different active version belong to
// superseded histories and are skipped; multi-version streams are never merged
// across this boundary. Plan attributes carry forward across events that do
// not name a plan (phase transitions, cancellations), mirroring how the state
// actually evolves.
func ProjectTimeline(sub *models.Subscription, events []models.SubscriptionEvent, resolver catalog.Resolver) ([]ExistingEvent, error) {
	result := make([]ExistingEvent, 0, len(events))

	var startDate time.Time
	var prev PlanPhaseSpecifier

	for i := range events {
		ev := &events[i]
		if ev.ActiveVersion != sub.ActiveVersion {
			continue
		}
		// First active event anchors the catalog lookup date.
		if startDate.IsZero() {
			startDate = ev.EffectiveDate
		}

		spec := prev
		spec.Category = sub.Category

		if ev.Kind == models.EventKindPhase {
			if ev.PhaseName != "" {
				ph, err := resolver.ResolvePhase(ev.PhaseName, ev.EffectiveDate, startDate)
				if err != nil {
					return nil, err
				}
				spec.PhaseName = ph.Name
				spec.PhaseType = ph.PhaseType
				spec.BillingPeriod = ph.BillingPeriod
			}
		} else {
			if ev.PlanName != "" {
				p, err := resolver.ResolvePlan(ev.PlanName, ev.RequestedDate, startDate)
				if err != nil {
					return nil, err
				}
				spec.PlanName = p.Name
				spec.Product = p.Product
				spec.BillingPeriod = p.BillingPeriod
			}
			if ev.PhaseName != "" {
				ph, err := resolver.ResolvePhase(ev.PhaseName, ev.EffectiveDate, startDate)
				if err != nil {
					return nil, err
				}
				spec.PhaseName = ph.Name
				spec.PhaseType = ph.PhaseType
			}
		}

		result = append(result, ExistingEvent{
			EventID:        ev.UUID,
			TransitionType: ev.Kind,
			RequestedDate:  ev.RequestedDate,
			EffectiveDate:  ev.EffectiveDate,
			Spec:           spec,
		})
		prev = spec
	}

	// Effective date ascending; the stable sort preserves log order for ties.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].EffectiveDate.Before(result[j].EffectiveDate)
	})

	return result, nil
}

// activeEvents filters an event log down to the subscription's current
// version, keeping log order.
func activeEvents(sub *models.Subscription, events []models.SubscriptionEvent) []models.SubscriptionEvent {
	out := make([]models.SubscriptionEvent, 0, len(events))
	for _, ev := range events {
		if ev.ActiveVersion == sub.ActiveVersion {
			out = append(out, ev)
		}
	}
	return out
}
