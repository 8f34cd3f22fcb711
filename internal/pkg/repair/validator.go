package repair

import (
	"time"

	"github.com/BillFoxHQ/BillFox/app/models"
)

// remainingEventsAfterDeletes walks the subscription's active events in
// temporal order and returns the prefix that survives the caller's delete set.
// Deletions must form a trailing suffix starting at the first deleted event;
// an undeleted event after a deletion is an illegal gap. When the base
// subscription already lost events from firstBPDeleted onward, every add-on
// event at or after that instant must be deleted too.
func remainingEventsAfterDeletes(sub *models.Subscription, events []models.SubscriptionEvent, deleted []DeletedEvent, firstBPDeleted *time.Time) ([]models.SubscriptionEvent, error) {
	if len(deleted) == 0 && firstBPDeleted == nil {
		return events, nil
	}

	deletedIDs := make(map[string]bool, len(deleted))
	for _, d := range deleted {
		deletedIDs[d.EventID] = true
	}

	nbDeleted := 0
	remaining := make([]models.SubscriptionEvent, 0, len(events))
	for _, ev := range events {
		found := deletedIDs[ev.UUID]
		if found {
			nbDeleted++
		}
		if !found && nbDeleted > 0 {
			return nil, &Error{Code: CodeInvalidDeleteSet, SubscriptionID: sub.UUID, EventID: ev.UUID}
		}
		if firstBPDeleted != nil && !ev.EffectiveDate.Before(*firstBPDeleted) && !found {
			return nil, &Error{Code: CodeMissingAddOnDeleteEvent, SubscriptionID: sub.UUID, EventID: ev.UUID}
		}
		if nbDeleted == 0 {
			remaining = append(remaining, ev)
		}
	}

	if nbDeleted != len(deleted) {
		for _, d := range deleted {
			known := false
			for _, ev := range events {
				if ev.UUID == d.EventID {
					known = true
					break
				}
			}
			if !known {
				return nil, &Error{Code: CodeNonExistentDeleteEvent, SubscriptionID: sub.UUID, EventID: d.EventID}
			}
		}
	}

	return remaining, nil
}

// validateFirstNewEvent rejects a first new event dated before the last
// retained event of the base subscription or of the target itself.
func validateFirstNewEvent(subscriptionID string, first NewEvent, lastBPRemaining, lastRemaining *time.Time) error {
	if lastBPRemaining != nil && first.RequestedDate.Before(*lastBPRemaining) {
		return &Error{Code: CodeNewEventBeforeLastBPLeft, SubscriptionID: subscriptionID}
	}
	if lastRemaining != nil && first.RequestedDate.Before(*lastRemaining) {
		return &Error{Code: CodeNewEventBeforeLastAOLeft, SubscriptionID: subscriptionID}
	}
	return nil
}

// validateBasePlanRecreate enforces that a base recreate covers the whole
// bundle: every subscription must appear in the request and every requested
// first event must itself be a (re)create. A base recreate cannot silently
// orphan add-ons.
func validateBasePlanRecreate(isBasePlanRecreate bool, subs []models.Subscription, input []SubscriptionTimeline) error {
	if !isBasePlanRecreate {
		return nil
	}
	if len(subs) != len(input) {
		return &Error{Code: CodeBPRecreateMissingAddOn, BundleID: subs[0].BundleUUID}
	}
	for _, st := range input {
		if len(st.NewEvents) == 0 {
			continue
		}
		kind := st.NewEvents[0].TransitionType
		if kind != models.EventKindCreate && kind != models.EventKindReCreate {
			return &Error{Code: CodeBPRecreateMissingAOCreate, BundleID: subs[0].BundleUUID, SubscriptionID: st.SubscriptionID}
		}
	}
	return nil
}

// validateSubscriptionsKnown rejects repair entries that reference
// subscriptions outside the bundle.
func validateSubscriptionsKnown(subs []models.Subscription, input []SubscriptionTimeline) error {
	for _, st := range input {
		found := false
		for i := range subs {
			if subs[i].UUID == st.SubscriptionID {
				found = true
				break
			}
		}
		if !found {
			return &Error{Code: CodeUnknownSubscription, SubscriptionID: st.SubscriptionID}
		}
	}
	return nil
}
