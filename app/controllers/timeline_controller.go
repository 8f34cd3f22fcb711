package controllers

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/BillFoxHQ/BillFox/internal/pkg/cache"
	"github.com/BillFoxHQ/BillFox/internal/pkg/metrics/counter"
	"github.com/BillFoxHQ/BillFox/internal/pkg/repair"
)

const timelineCacheTTL = 30 * time.Second

// RepairRequest is the caller-supplied repair payload.
type RepairRequest struct {
	ViewID        string                    `json:"view_id" validate:"required"`
	Subscriptions []RepairSubscriptionInput `json:"subscriptions" validate:"required,min=1,dive"`
}

// RepairSubscriptionInput is one subscription's slice of a repair request.
type RepairSubscriptionInput struct {
	SubscriptionID string          `json:"subscription_id" validate:"required,uuid4"`
	DeletedEvents  []string        `json:"deleted_events" validate:"dive,uuid4"`
	NewEvents      []NewEventInput `json:"new_events" validate:"dive"`
}

// NewEventInput is one requested transition.
type NewEventInput struct {
	TransitionType string    `json:"transition_type" validate:"required,oneof=create re_create change cancel phase"`
	PlanName       string    `json:"plan_name"`
	PhaseName      string    `json:"phase_name"`
	RequestedDate  time.Time `json:"requested_date" validate:"required"`
}

// HandleGetBundleTimeline returns a bundle's current projected timeline and
// view id. The projection is cached briefly; any committed repair invalidates
// the cache entry.
func HandleGetBundleTimeline(c *fiber.Ctx) error {
	bundleID := c.Params("id")
	if bundleID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "bundle id missing"})
	}

	if cached, err := cache.Get(cache.BundleTimelineKey(bundleID)); err == nil && cached != "" {
		var tl repair.BundleTimeline
		if json.Unmarshal([]byte(cached), &tl) == nil {
			return c.JSON(tl)
		}
	}

	tl, err := getRepairService().GetBundleTimeline(c.Context(), bundleID)
	if err != nil {
		return renderRepairError(c, err)
	}

	if payload, err := json.Marshal(tl); err == nil {
		_ = cache.Set(cache.BundleTimelineKey(bundleID), payload, timelineCacheTTL)
	}

	return c.JSON(tl)
}

// HandleRepairBundle validates and applies (or, with dry_run=true, only
// projects) a bundle repair.
func HandleRepairBundle(c *fiber.Ctx) error {
	bundleID := c.Params("id")
	if bundleID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "bundle id missing"})
	}

	var req RepairRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid JSON body"})
	}
	if err := validator.New().Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	input := repairRequestToTimeline(bundleID, &req)
	dryRun := c.QueryBool("dry_run", false)

	result, err := getRepairService().RepairBundle(c.Context(), input, dryRun)
	if err != nil {
		return renderRepairError(c, err)
	}

	if dryRun {
		_ = counter.AddBundleDryRun(bundleID)
	} else {
		_ = counter.AddBundleRepair(bundleID)
	}

	return c.JSON(result)
}

func repairRequestToTimeline(bundleID string, req *RepairRequest) *repair.BundleTimeline {
	input := &repair.BundleTimeline{
		BundleID: bundleID,
		ViewID:   req.ViewID,
	}
	for _, sub := range req.Subscriptions {
		st := repair.SubscriptionTimeline{SubscriptionID: sub.SubscriptionID}
		for _, id := range sub.DeletedEvents {
			st.DeletedEvents = append(st.DeletedEvents, repair.DeletedEvent{EventID: id})
		}
		for _, ne := range sub.NewEvents {
			st.NewEvents = append(st.NewEvents, repair.NewEvent{
				TransitionType: ne.TransitionType,
				PlanName:       ne.PlanName,
				PhaseName:      ne.PhaseName,
				RequestedDate:  ne.RequestedDate,
			})
		}
		input.Subscriptions = append(input.Subscriptions, st)
	}
	return input
}
