package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/BillFoxHQ/BillFox/internal/pkg/cache"
	"github.com/BillFoxHQ/BillFox/internal/pkg/database"
	"github.com/BillFoxHQ/BillFox/internal/pkg/env"
	"github.com/BillFoxHQ/BillFox/internal/pkg/metrics/counter"
	"github.com/BillFoxHQ/BillFox/internal/pkg/notify"
	"github.com/BillFoxHQ/BillFox/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	// drain queued transition notifications in the background
	dispatcher := notify.NewDispatcher(notify.LogHandler)
	dispatcher.Start()

	// flush pending repair counters to the database once a minute
	counter.StartFlushLoop(time.Minute, make(chan struct{}))

	// init fiber app
	app := fiber.New(fiber.Config{
		AppName: "BillFox",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			"admin": env.GetEnv("METRICS_PASSWORD", "test"),
		},
	}), monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}
