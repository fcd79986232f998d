package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nordstock/invoicepipe/app/controllers"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// InstallRouter registers every route group on the app.
func InstallRouter(app *fiber.App) {
	setup(app, NewWebhookRouter())
}

func setup(app *fiber.App, routers ...Router) {
	for _, r := range routers {
		r.InstallRouter(app)
	}
}

type WebhookRouter struct{}

func NewWebhookRouter() *WebhookRouter {
	return &WebhookRouter{}
}

func (h WebhookRouter) InstallRouter(app *fiber.App) {
	app.Get("/webhook", controllers.HandleWebhookChallenge)
	app.Post("/webhook", controllers.HandleWebhook)
	app.Get("/health", controllers.HandleHealth)
}
