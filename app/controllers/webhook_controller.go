package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/nordstock/invoicepipe/internal/pkg/pipeline"
)

var (
	webhookPipeline *pipeline.Pipeline
	signatureHeader string
	runTimeout      time.Duration
)

// InitializeWebhookController wires the webhook handlers to their pipeline.
// header names the request header carrying the HMAC signature; timeout bounds
// one full pipeline run including the settle delay.
func InitializeWebhookController(p *pipeline.Pipeline, header string, timeout time.Duration) {
	webhookPipeline = p
	signatureHeader = header
	runTimeout = timeout
}

// HandleWebhookChallenge answers the provider's one-time endpoint-ownership
// check by echoing the challenge token verbatim.
func HandleWebhookChallenge(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(c.Query("challenge"))
}

// HandleWebhook runs the pipeline for one change notification. The raw body
// is copied before anything parses it, because the signature covers the
// exact wire bytes.
func HandleWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	sig := strings.TrimSpace(c.Get(signatureHeader))

	// Detached from the request context on purpose: an aborted webhook
	// delivery must not cancel in-flight store operations mid-pipeline.
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	result, err := webhookPipeline.Run(ctx, pipeline.Event{Body: rawBody, Signature: sig})
	if err != nil {
		if errors.Is(err, pipeline.ErrUnauthorized) {
			return c.Status(fiber.StatusForbidden).SendString("invalid signature")
		}
		// step detail is for operators, not for the webhook sender
		fiberlog.Errorf("[Webhook] processing failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).SendString("processing failed")
	}

	return c.SendString(result.Message())
}

// HandleHealth reports liveness.
func HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
