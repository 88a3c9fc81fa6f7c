package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/ShopFox/app/models"
	"github.com/ManuelReschke/ShopFox/app/repository"
	"github.com/ManuelReschke/ShopFox/internal/pkg/env"
	"github.com/ManuelReschke/ShopFox/internal/pkg/mail"
	"github.com/ManuelReschke/ShopFox/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/ShopFox/internal/pkg/paymentwatch"
	"github.com/ManuelReschke/ShopFox/internal/pkg/payprovider"
)

// HandlePaymentWebhook receives provider payment callbacks: verify the
// signature, persist the event idempotently, record the outcome on the
// payment and order rows, and publish the event to the push channel so live
// watchers see it immediately.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("X-Payment-Signature"))
	secret := env.GetEnv("PAYMENT_WEBHOOK_SECRET", "")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	event, err := payprovider.ParseWebhookEvent(rawBody)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	signatureValid := payprovider.VerifyWebhookSignature(rawBody, signature, secret)

	repos := repository.GetGlobalRepositories()
	created, stored, err := repos.Payment.CreateEventIfNotExists(&models.PaymentEvent{
		Provider:        models.PaymentProviderMollie,
		ProviderEventID: event.EventID,
		PaymentID:       event.PaymentID,
		Status:          event.Status,
		PayloadJSON:     string(rawBody),
		SignatureValid:  signatureValid,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !created {
		_ = counter.AddWebhookDuplicate()
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}
	if !signatureValid {
		_ = repos.Payment.MarkEventProcessed(stored.ID, "invalid webhook signature")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	raw := event.ToRawStatusEvent()
	recordOutcome(event, paymentwatch.Normalize(raw))

	// Publish on the same transport watchers subscribe on; with push disabled
	// they resolve via polling instead.
	if pushPublisher != nil {
		if err := pushPublisher.Publish(ctx, raw); err != nil {
			// Watchers fall back to polling, so publish failures are not fatal.
			log.Warnf("[Webhook] Failed to publish event for payment %s: %v", event.PaymentID, err)
		}
	}

	_ = repos.Payment.MarkEventProcessed(stored.ID, "")
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}

// recordOutcome mirrors a terminal webhook outcome onto the payment and
// order rows. Pending outcomes only refresh the raw status.
func recordOutcome(event *payprovider.WebhookEvent, outcome paymentwatch.Outcome) {
	repos := repository.GetGlobalRepositories()

	if err := repos.Payment.UpdateStatus(
		models.PaymentProviderMollie,
		event.PaymentID,
		string(outcome),
		event.Status,
		event.TransactionID,
	); err != nil {
		log.Errorf("[Webhook] Failed to update payment %s: %v", event.PaymentID, err)
	}

	if outcome == paymentwatch.OutcomeFailed {
		go mail.NotifyPaymentFailure(event.PaymentID, event.OrderID, event.Status)
	}

	if event.OrderID == "" {
		return
	}
	switch outcome {
	case paymentwatch.OutcomeSuccess:
		if err := repos.Order.MarkPaid(event.OrderID); err != nil {
			log.Errorf("[Webhook] Failed to mark order %s paid: %v", event.OrderID, err)
		}
	case paymentwatch.OutcomeFailed:
		if err := repos.Order.MarkFailed(event.OrderID, event.Status); err != nil {
			log.Errorf("[Webhook] Failed to mark order %s failed: %v", event.OrderID, err)
		}
	}
}
