package repair

import (
	"errors"
	"fmt"
)

// Code enumerates every way a repair can be rejected. The whole request is
// always rejected as a unit; no code corresponds to a partial application.
type Code string

const (
	CodeUnknownBundle         Code = "unknown_bundle"
	CodeNoActiveSubscriptions Code = "no_active_subscriptions"

	// CodeViewChanged means the caller's snapshot is stale; re-read and retry.
	CodeViewChanged Code = "view_changed"

	CodeInvalidDeleteSet          Code = "invalid_delete_set"
	CodeNonExistentDeleteEvent    Code = "non_existent_delete_event"
	CodeRecreateNotEmpty          Code = "recreate_not_empty"
	CodeSubscriptionEmpty         Code = "subscription_empty"
	CodeMissingAddOnDeleteEvent   Code = "missing_addon_delete_event"
	CodeNewEventBeforeLastBPLeft  Code = "new_event_before_last_bp_remaining"
	CodeNewEventBeforeLastAOLeft  Code = "new_event_before_last_ao_remaining"
	CodeBPRecreateMissingAddOn    Code = "bp_recreate_missing_addon"
	CodeBPRecreateMissingAOCreate Code = "bp_recreate_missing_addon_create"
	CodeAddOnCreateBeforeBPStart  Code = "addon_create_before_bp_start"
	CodeUnknownSubscription       Code = "unknown_subscription"
	CodeIneligibleAddOn           Code = "ineligible_addon"

	// CodeUnknownTransitionType indicates a contract breach by the caller or a
	// validation ordering bug; it should never surface from a valid request.
	CodeUnknownTransitionType Code = "unknown_transition_type"
)

// Error is the domain error for bundle repairs. It always carries the
// enumerable Code plus the identifiers of whatever offended.
type Error struct {
	Code           Code
	BundleID       string
	SubscriptionID string
	EventID        string
	StaleViewID    string
	CurrentViewID  string
	Cause          error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("repair rejected (%s)", e.Code)
	if e.BundleID != "" {
		msg += fmt.Sprintf(" bundle=%s", e.BundleID)
	}
	if e.SubscriptionID != "" {
		msg += fmt.Sprintf(" subscription=%s", e.SubscriptionID)
	}
	if e.EventID != "" {
		msg += fmt.Sprintf(" event=%s", e.EventID)
	}
	if e.Code == CodeViewChanged {
		msg += fmt.Sprintf(" stale_view=%s current_view=%s", e.StaleViewID, e.CurrentViewID)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode reports whether err is a repair Error with the given code.
func IsCode(err error, code Code) bool {
	var re *Error
	return errors.As(err, &re) && re.Code == code
}

// CodeOf extracts the repair code from err, or "" if err is not a repair Error.
func CodeOf(err error) Code {
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}
