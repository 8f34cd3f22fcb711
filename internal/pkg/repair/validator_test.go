package repair

import (
	"testing"
	"time"

	"github.com/BillFoxHQ/BillFox/app/models"
)

var anchor = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return anchor.AddDate(0, 0, n)
}

func eventLog(uuids ...string) []models.SubscriptionEvent {
	out := make([]models.SubscriptionEvent, len(uuids))
	for i, u := range uuids {
		out[i] = models.SubscriptionEvent{
			ID:            uint(i + 1),
			UUID:          u,
			EffectiveDate: day(i * 10),
			ActiveVersion: 1,
		}
	}
	return out
}

func deletes(uuids ...string) []DeletedEvent {
	out := make([]DeletedEvent, len(uuids))
	for i, u := range uuids {
		out[i] = DeletedEvent{EventID: u}
	}
	return out
}

func TestRemainingEventsAfterDeletes(t *testing.T) {
	sub := &models.Subscription{UUID: "sub-1", ActiveVersion: 1}

	tests := []struct {
		name          string
		deleted       []DeletedEvent
		wantRemaining int
		wantCode      Code
	}{
		{name: "no deletes", deleted: nil, wantRemaining: 3},
		{name: "suffix of one", deleted: deletes("e3"), wantRemaining: 2},
		{name: "full suffix", deleted: deletes("e2", "e3"), wantRemaining: 1},
		{name: "everything", deleted: deletes("e1", "e2", "e3"), wantRemaining: 0},
		{name: "gap in the middle", deleted: deletes("e2"), wantCode: CodeInvalidDeleteSet},
		{name: "head only", deleted: deletes("e1"), wantCode: CodeInvalidDeleteSet},
		{name: "unknown event", deleted: deletes("e3", "ghost"), wantCode: CodeNonExistentDeleteEvent},
	}

	for _, tt := range tests {
		events := eventLog("e1", "e2", "e3")
		remaining, err := remainingEventsAfterDeletes(sub, events, tt.deleted, nil)
		if tt.wantCode != "" {
			if !IsCode(err, tt.wantCode) {
				t.Fatalf("%s: got err %v, want code %s", tt.name, err, tt.wantCode)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if len(remaining) != tt.wantRemaining {
			t.Fatalf("%s: got %d remaining events, want %d", tt.name, len(remaining), tt.wantRemaining)
		}
	}
}

func TestRemainingEventsRequireAddOnDeletesAfterBaseCut(t *testing.T) {
	sub := &models.Subscription{UUID: "sub-ao", ActiveVersion: 1}
	events := eventLog("a1", "a2", "a3") // effective at day 0, 10, 20
	cut := day(10)

	// a2 and a3 sit at or after the base cut but only a3 is deleted
	_, err := remainingEventsAfterDeletes(sub, events, deletes("a3"), &cut)
	if !IsCode(err, CodeMissingAddOnDeleteEvent) {
		t.Fatalf("got err %v, want code %s", err, CodeMissingAddOnDeleteEvent)
	}

	// deleting both satisfies the constraint
	remaining, err := remainingEventsAfterDeletes(sub, events, deletes("a2", "a3"), &cut)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(remaining) != 1 || remaining[0].UUID != "a1" {
		t.Fatalf("expected only a1 to remain, got %v", remaining)
	}
}

func TestRemainingEventsBaseCutWithoutExplicitDeletes(t *testing.T) {
	sub := &models.Subscription{UUID: "sub-ao", ActiveVersion: 1}
	events := eventLog("a1", "a2")
	cut := day(10)

	// the caller deleted nothing on this add-on but the base lost events
	// from day 10 onward, so a2 must be deleted too
	_, err := remainingEventsAfterDeletes(sub, events, nil, &cut)
	if !IsCode(err, CodeMissingAddOnDeleteEvent) {
		t.Fatalf("got err %v, want code %s", err, CodeMissingAddOnDeleteEvent)
	}
}

func TestValidateFirstNewEvent(t *testing.T) {
	bp := day(20)
	own := day(10)

	tests := []struct {
		name     string
		first    NewEvent
		lastBP   *time.Time
		lastOwn  *time.Time
		wantCode Code
	}{
		{name: "after both", first: NewEvent{RequestedDate: day(30)}, lastBP: &bp, lastOwn: &own},
		{name: "equal to base boundary", first: NewEvent{RequestedDate: day(20)}, lastBP: &bp, lastOwn: &own},
		{name: "before base boundary", first: NewEvent{RequestedDate: day(15)}, lastBP: &bp, lastOwn: &own, wantCode: CodeNewEventBeforeLastBPLeft},
		{name: "before own boundary", first: NewEvent{RequestedDate: day(5)}, lastOwn: &own, wantCode: CodeNewEventBeforeLastAOLeft},
		{name: "no boundaries", first: NewEvent{RequestedDate: day(0)}},
	}

	for _, tt := range tests {
		err := validateFirstNewEvent("sub-1", tt.first, tt.lastBP, tt.lastOwn)
		if tt.wantCode == "" {
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", tt.name, err)
			}
			continue
		}
		if !IsCode(err, tt.wantCode) {
			t.Fatalf("%s: got err %v, want code %s", tt.name, err, tt.wantCode)
		}
	}
}

func TestValidateBasePlanRecreate(t *testing.T) {
	subs := []models.Subscription{
		{UUID: "sub-base", BundleUUID: "bundle-1", Category: models.SubscriptionCategoryBase},
		{UUID: "sub-ao", BundleUUID: "bundle-1", Category: models.SubscriptionCategoryAddOn},
	}

	full := []SubscriptionTimeline{
		{SubscriptionID: "sub-base", NewEvents: []NewEvent{{TransitionType: models.EventKindReCreate}}},
		{SubscriptionID: "sub-ao", NewEvents: []NewEvent{{TransitionType: models.EventKindCreate}}},
	}
	if err := validateBasePlanRecreate(true, subs, full); err != nil {
		t.Fatalf("unexpected error for complete recreate: %v", err)
	}

	missing := full[:1]
	if err := validateBasePlanRecreate(true, subs, missing); !IsCode(err, CodeBPRecreateMissingAddOn) {
		t.Fatalf("got err %v, want code %s", err, CodeBPRecreateMissingAddOn)
	}

	wrongKind := []SubscriptionTimeline{
		full[0],
		{SubscriptionID: "sub-ao", NewEvents: []NewEvent{{TransitionType: models.EventKindChange}}},
	}
	if err := validateBasePlanRecreate(true, subs, wrongKind); !IsCode(err, CodeBPRecreateMissingAOCreate) {
		t.Fatalf("got err %v, want code %s", err, CodeBPRecreateMissingAOCreate)
	}

	// not a recreate: nothing to check
	if err := validateBasePlanRecreate(false, subs, missing); err != nil {
		t.Fatalf("unexpected error when not a recreate: %v", err)
	}
}

func TestValidateSubscriptionsKnown(t *testing.T) {
	subs := []models.Subscription{{UUID: "sub-base"}}

	if err := validateSubscriptionsKnown(subs, []SubscriptionTimeline{{SubscriptionID: "sub-base"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := validateSubscriptionsKnown(subs, []SubscriptionTimeline{{SubscriptionID: "stranger"}})
	if !IsCode(err, CodeUnknownSubscription) {
		t.Fatalf("got err %v, want code %s", err, CodeUnknownSubscription)
	}
}
