package repair

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/BillFoxHQ/BillFox/app/models"
	"github.com/BillFoxHQ/BillFox/internal/pkg/cache"
	"github.com/BillFoxHQ/BillFox/internal/pkg/catalog"
	"github.com/BillFoxHQ/BillFox/internal/pkg/notify"
)

// Service is the repair orchestrator: it sequences validation, projection,
// cascade and (for non-dry runs) the atomic commit. It performs no partial
// work on failure; every rejection happens before anything is written.
type Service struct {
	store    Store
	resolver catalog.Resolver
	oracle   catalog.AddOnOracle
	notifier notify.Publisher

	clock           func() time.Time
	invalidateCache func(bundleUUID string)
}

// NewService creates a repair service from injected collaborators. notifier
// may be nil when no notification sink is wired.
func NewService(store Store, resolver catalog.Resolver, oracle catalog.AddOnOracle, notifier notify.Publisher) *Service {
	return &Service{
		store:    store,
		resolver: resolver,
		oracle:   oracle,
		notifier: notifier,
		clock:    time.Now,
	}
}

// NewServiceFromDB wires the production service: GORM store, DB-backed
// catalog, Redis notification sink and timeline cache invalidation.
func NewServiceFromDB(db *gorm.DB) *Service {
	cat := catalog.NewServiceFromDB(db)
	s := NewService(NewStore(db), cat, cat, notify.NewRedisPublisher())
	s.invalidateCache = cache.InvalidateBundleTimeline
	return s
}

// GetBundleTimeline loads a bundle and projects every subscription to its
// caller-facing timeline, together with the current view id.
func (s *Service) GetBundleTimeline(ctx context.Context, bundleUUID string) (*BundleTimeline, error) {
	state, err := s.store.LoadBundle(ctx, bundleUUID)
	if err != nil {
		return nil, err
	}
	return s.projectBundle(state)
}

// GetBundleTimelineByKey is GetBundleTimeline addressed by account and
// external key instead of bundle id.
func (s *Service) GetBundleTimelineByKey(ctx context.Context, accountID uint, externalKey string) (*BundleTimeline, error) {
	state, err := s.store.LoadBundleByKey(ctx, accountID, externalKey)
	if err != nil {
		return nil, err
	}
	return s.projectBundle(state)
}

func (s *Service) projectBundle(state *BundleState) (*BundleTimeline, error) {
	if len(state.Subscriptions) == 0 {
		return nil, &Error{Code: CodeNoActiveSubscriptions, BundleID: state.Bundle.UUID}
	}

	out := &BundleTimeline{
		BundleID:    state.Bundle.UUID,
		ExternalKey: state.Bundle.ExternalKey,
		ViewID:      state.ViewID(),
	}
	for i := range state.Subscriptions {
		sub := &state.Subscriptions[i]
		existing, err := ProjectTimeline(sub, state.Events[sub.UUID], s.resolver)
		if err != nil {
			return nil, err
		}
		out.Subscriptions = append(out.Subscriptions, SubscriptionTimeline{
			SubscriptionID: sub.UUID,
			Category:       sub.Category,
			ActiveVersion:  sub.ActiveVersion,
			ExistingEvents: existing,
		})
	}
	return out, nil
}

// RepairBundle rewrites the event histories of the subscriptions named in
// input under the bundle's consistency rules. With dryRun the projected
// result is returned without any write; otherwise the new versions are
// committed atomically and the committed bundle is re-read and returned.
func (s *Service) RepairBundle(ctx context.Context, input *BundleTimeline, dryRun bool) (*BundleTimeline, error) {
	state, err := s.store.LoadBundle(ctx, input.BundleID)
	if err != nil {
		return nil, err
	}
	if len(state.Subscriptions) == 0 {
		return nil, &Error{Code: CodeNoActiveSubscriptions, BundleID: input.BundleID}
	}

	viewID := state.ViewID()
	if viewID != input.ViewID {
		return nil, &Error{
			Code:          CodeViewChanged,
			BundleID:      input.BundleID,
			StaleViewID:   input.ViewID,
			CurrentViewID: viewID,
		}
	}

	var firstDeletedBPEventTime *time.Time
	var lastRemainingBPEventTime *time.Time
	isBasePlanRecreate := false
	var newBundleStart *time.Time

	var baseRepair *RepairedSubscription
	var addOnsInRepair []*RepairedSubscription
	var inRepair []*RepairedSubscription
	repaired := make(map[string]bool)

	// Subscriptions come base first, so the base's deletion window is known
	// before any add-on is validated against it.
	for i := range state.Subscriptions {
		cur := &state.Subscriptions[i]
		curInput := findSubscriptionInput(cur.UUID, input.Subscriptions)
		if curInput == nil {
			continue
		}

		active := activeEvents(cur, state.Events[cur.UUID])
		remaining, err := remainingEventsAfterDeletes(cur, active, curInput.DeletedEvents, firstDeletedBPEventTime)
		if err != nil {
			return nil, err
		}

		isRecreate := len(curInput.NewEvents) > 0 &&
			(curInput.NewEvents[0].TransitionType == models.EventKindCreate ||
				curInput.NewEvents[0].TransitionType == models.EventKindReCreate)

		var newStart *time.Time
		if isRecreate {
			t := curInput.NewEvents[0].RequestedDate
			newStart = &t
		}

		if isRecreate && len(remaining) != 0 {
			return nil, &Error{Code: CodeRecreateNotEmpty, BundleID: cur.BundleUUID, SubscriptionID: cur.UUID}
		}
		if !isRecreate && len(remaining) == 0 {
			return nil, &Error{Code: CodeSubscriptionEmpty, BundleID: cur.BundleUUID, SubscriptionID: cur.UUID}
		}

		if cur.IsBase() {
			if len(remaining) > 0 {
				t := remaining[len(remaining)-1].EffectiveDate
				lastRemainingBPEventTime = &t
			}
			if len(remaining) < len(active) {
				t := active[len(remaining)].EffectiveDate
				firstDeletedBPEventTime = &t
			}
			isBasePlanRecreate = isRecreate
			newBundleStart = newStart
		}

		if len(curInput.NewEvents) > 0 {
			var lastRemainingTime *time.Time
			if len(remaining) > 0 {
				t := remaining[len(remaining)-1].EffectiveDate
				lastRemainingTime = &t
			}
			if err := validateFirstNewEvent(cur.UUID, curInput.NewEvents[0], lastRemainingBPEventTime, lastRemainingTime); err != nil {
				return nil, err
			}
		}

		rs, err := newRepairedSubscription(cur, newBundleStart, newStart, remaining, s.resolver)
		if err != nil {
			return nil, err
		}
		inRepair = append(inRepair, rs)
		repaired[cur.UUID] = true

		if cur.IsAddOn() {
			if isRecreate && state.Subscriptions[0].StartDate.After(curInput.NewEvents[0].RequestedDate) {
				return nil, &Error{Code: CodeAddOnCreateBeforeBPStart, BundleID: cur.BundleUUID, SubscriptionID: cur.UUID}
			}
			addOnsInRepair = append(addOnsInRepair, rs)
		} else if cur.IsBase() {
			baseRepair = rs
		}
	}

	switch classifyRepair(&state.Subscriptions[0], baseRepair != nil) {
	case BaseRepair:
		// Untouched add-ons still join the repair set so the base's cascade
		// can reach them.
		for i := range state.Subscriptions {
			cur := &state.Subscriptions[i]
			if !cur.IsAddOn() || repaired[cur.UUID] {
				continue
			}
			rs, err := newRepairedSubscription(cur, newBundleStart, nil, activeEvents(cur, state.Events[cur.UUID]), s.resolver)
			if err != nil {
				return nil, err
			}
			inRepair = append(inRepair, rs)
			addOnsInRepair = append(addOnsInRepair, rs)
		}

	case AddOnRepair:
		base := &state.Subscriptions[0]
		baseRepair, err = newReadOnlyBase(base, activeEvents(base, state.Events[base.UUID]), s.resolver)
		if err != nil {
			return nil, err
		}

	case StandaloneRepair:
	}

	if err := validateBasePlanRecreate(isBasePlanRecreate, state.Subscriptions, input.Subscriptions); err != nil {
		return nil, err
	}
	if err := validateSubscriptionsKnown(state.Subscriptions, input.Subscriptions); err != nil {
		return nil, err
	}

	proj := newProjection(s.resolver, s.oracle, s.clock(), baseRepair, inRepair, addOnsInRepair)
	for _, ev := range orderNewEvents(input.Subscriptions) {
		if err := proj.apply(ev); err != nil {
			return nil, err
		}
	}

	if dryRun {
		proj.addFutureAddOnCancellations()
		return s.projectDryRun(state, input.ViewID, inRepair)
	}

	commit := buildCommit(input.BundleID, viewID, inRepair)
	if err := s.store.CommitRepair(ctx, commit); err != nil {
		return nil, err
	}

	if s.invalidateCache != nil {
		s.invalidateCache(input.BundleID)
	}
	s.emitTransitions(ctx, state.Bundle.UUID, inRepair)

	return s.GetBundleTimeline(ctx, input.BundleID)
}

// projectDryRun assembles the speculative result: repaired subscriptions from
// their projected next version, untouched ones from current state, and the
// caller's view id echoed back since nothing moved.
func (s *Service) projectDryRun(state *BundleState, viewID string, inRepair []*RepairedSubscription) (*BundleTimeline, error) {
	out := &BundleTimeline{
		BundleID:    state.Bundle.UUID,
		ExternalKey: state.Bundle.ExternalKey,
		ViewID:      viewID,
	}

	repaired := make(map[string]*RepairedSubscription, len(inRepair))
	for _, rs := range inRepair {
		repaired[rs.Sub.UUID] = rs
	}

	for i := range state.Subscriptions {
		cur := &state.Subscriptions[i]
		sub := cur
		events := state.Events[cur.UUID]
		if rs, ok := repaired[cur.UUID]; ok {
			sub = &rs.Sub
			events = rs.Events
		}
		existing, err := ProjectTimeline(sub, events, s.resolver)
		if err != nil {
			return nil, err
		}
		out.Subscriptions = append(out.Subscriptions, SubscriptionTimeline{
			SubscriptionID: sub.UUID,
			Category:       sub.Category,
			ActiveVersion:  sub.ActiveVersion,
			ExistingEvents: existing,
		})
	}
	return out, nil
}

func buildCommit(bundleUUID, expectedViewID string, inRepair []*RepairedSubscription) *Commit {
	commit := &Commit{BundleUUID: bundleUUID, ExpectedViewID: expectedViewID}
	for _, rs := range inRepair {
		if rs.readOnly {
			continue
		}
		commit.Subscriptions = append(commit.Subscriptions, SubscriptionCommit{
			SubscriptionUUID: rs.Sub.UUID,
			ActiveVersion:    rs.Sub.ActiveVersion,
			StartDate:        rs.Sub.StartDate,
			BundleStartDate:  rs.Sub.BundleStartDate,
			RetainedEventIDs: rs.retainedIDs,
			NewEvents:        rs.NewEvents,
		})
	}
	return commit
}

// emitTransitions fires one notification per materialized transition.
// Delivery failures are logged, never propagated; the commit already stands.
func (s *Service) emitTransitions(ctx context.Context, bundleUUID string, inRepair []*RepairedSubscription) {
	if s.notifier == nil {
		return
	}
	for _, rs := range inRepair {
		for _, ev := range rs.NewEvents {
			n := notify.Notification{
				BundleUUID:       bundleUUID,
				SubscriptionUUID: rs.Sub.UUID,
				EventUUID:        ev.UUID,
				TransitionType:   ev.Kind,
				EffectiveDate:    ev.EffectiveDate,
				ActiveVersion:    ev.ActiveVersion,
			}
			if err := s.notifier.PublishTransition(ctx, n); err != nil {
				log.Errorf("[Repair] Could not publish transition %s for subscription %s: %v", ev.Kind, rs.Sub.UUID, err)
			}
		}
	}
}

func classifyRepair(first *models.Subscription, gotBaseRepair bool) RepairType {
	if first.IsBase() {
		if gotBaseRepair {
			return BaseRepair
		}
		return AddOnRepair
	}
	return StandaloneRepair
}

func findSubscriptionInput(subscriptionUUID string, input []SubscriptionTimeline) *SubscriptionTimeline {
	for i := range input {
		if input[i].SubscriptionID == subscriptionUUID {
			return &input[i]
		}
	}
	return nil
}
