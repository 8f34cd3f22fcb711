package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/BillFoxHQ/BillFox/app/controllers"
)

// APIServer bundles the v1 handler set.
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// Pong is the response payload for the ping endpoint.
type Pong struct {
	Ping string `json:"ping"`
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// GetBundleTimeline returns the full event timeline of a bundle by UUID.
func (s *APIServer) GetBundleTimeline(c *fiber.Ctx) error {
	return controllers.HandleGetBundleTimeline(c)
}

// PostBundleRepair applies (or dry-runs) a timeline repair against a bundle.
func (s *APIServer) PostBundleRepair(c *fiber.Ctx) error {
	return controllers.HandleRepairBundle(c)
}

// GetAccountBundles lists the bundles owned by an account.
func (s *APIServer) GetAccountBundles(c *fiber.Ctx) error {
	return controllers.HandleListAccountBundles(c)
}

// GetAccountBundleTimeline resolves a bundle by account and external key.
func (s *APIServer) GetAccountBundleTimeline(c *fiber.Ctx) error {
	return controllers.HandleGetBundleTimelineByKey(c)
}

// RegisterHandlers attaches the v1 routes to the given router group.
func RegisterHandlers(router fiber.Router, s *APIServer) {
	router.Get("/ping", s.GetPing)

	router.Get("/bundles/:id/timeline", s.GetBundleTimeline)
	router.Post("/bundles/:id/repair", s.PostBundleRepair)

	router.Get("/accounts/:id/bundles", s.GetAccountBundles)
	router.Get("/accounts/:id/bundles/:key/timeline", s.GetAccountBundleTimeline)
}
