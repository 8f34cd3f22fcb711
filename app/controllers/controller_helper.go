package controllers

import (
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/BillFoxHQ/BillFox/internal/pkg/catalog"
	"github.com/BillFoxHQ/BillFox/internal/pkg/database"
	"github.com/BillFoxHQ/BillFox/internal/pkg/repair"
)

var (
	repairService *repair.Service
	repairOnce    sync.Once
)

// getRepairService returns the lazily wired production repair service.
func getRepairService() *repair.Service {
	repairOnce.Do(func() {
		repairService = repair.NewServiceFromDB(database.GetDB())
	})
	return repairService
}

// repairErrorStatus maps a repair rejection to its HTTP status.
func repairErrorStatus(code repair.Code) int {
	switch code {
	case repair.CodeUnknownBundle, repair.CodeNoActiveSubscriptions:
		return fiber.StatusNotFound
	case repair.CodeViewChanged:
		return fiber.StatusConflict
	case repair.CodeUnknownTransitionType:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusUnprocessableEntity
	}
}

// renderRepairError writes the enumerable error kind plus offending ids; the
// caller never gets a generic failure for a known rejection.
func renderRepairError(c *fiber.Ctx, err error) error {
	var re *repair.Error
	if errors.As(err, &re) {
		body := fiber.Map{"error": string(re.Code)}
		if re.BundleID != "" {
			body["bundle_id"] = re.BundleID
		}
		if re.SubscriptionID != "" {
			body["subscription_id"] = re.SubscriptionID
		}
		if re.EventID != "" {
			body["event_id"] = re.EventID
		}
		if re.Code == repair.CodeViewChanged {
			body["stale_view_id"] = re.StaleViewID
			body["current_view_id"] = re.CurrentViewID
		}
		return c.Status(repairErrorStatus(re.Code)).JSON(body)
	}

	if errors.Is(err, catalog.ErrPlanNotFound) || errors.Is(err, catalog.ErrPhaseNotFound) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":   "catalog_error",
			"message": err.Error(),
		})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal_error",
	})
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
