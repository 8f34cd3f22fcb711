package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/BillFoxHQ/BillFox/app/repository"
)

const defaultPageSize = 50

// HandleListAccountBundles returns the bundles owned by an account, paginated.
func HandleListAccountBundles(c *fiber.Ctx) error {
	accountUUID := c.Params("id")
	if accountUUID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "account id missing"})
	}

	accountRepo := repository.GetGlobalFactory().GetAccountRepository()
	account, err := accountRepo.GetByUUID(accountUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown_account", "account_id": accountUUID})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}

	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", defaultPageSize)
	if limit <= 0 || limit > defaultPageSize*4 {
		limit = defaultPageSize
	}

	bundleRepo := repository.GetGlobalFactory().GetBundleRepository()
	bundles, err := bundleRepo.GetByAccountID(account.ID, offset, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}
	total, err := bundleRepo.CountByAccountID(account.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}

	return c.JSON(fiber.Map{
		"account_id": account.UUID,
		"total":      total,
		"bundles":    bundles,
	})
}

// HandleGetBundleTimelineByKey resolves a bundle by account and external key
// and returns its timeline.
func HandleGetBundleTimelineByKey(c *fiber.Ctx) error {
	accountUUID := c.Params("id")
	externalKey := c.Params("key")
	if accountUUID == "" || externalKey == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "account id or external key missing"})
	}

	accountRepo := repository.GetGlobalFactory().GetAccountRepository()
	account, err := accountRepo.GetByUUID(accountUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown_account", "account_id": accountUUID})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}

	tl, err := getRepairService().GetBundleTimelineByKey(c.Context(), account.ID, externalKey)
	if err != nil {
		return renderRepairError(c, err)
	}
	return c.JSON(tl)
}
