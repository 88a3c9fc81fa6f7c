package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/ShopFox/app/models"
	"github.com/ManuelReschke/ShopFox/app/repository"
	"github.com/ManuelReschke/ShopFox/internal/pkg/cache"
	"github.com/ManuelReschke/ShopFox/internal/pkg/cart"
	"github.com/ManuelReschke/ShopFox/internal/pkg/env"
	"github.com/ManuelReschke/ShopFox/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/ShopFox/internal/pkg/paymentwatch"
	"github.com/ManuelReschke/ShopFox/internal/pkg/payprovider"
	"github.com/ManuelReschke/ShopFox/internal/pkg/session"
)

var (
	watchRegistry  *paymentwatch.Registry
	pushChannel    paymentwatch.Channel
	pushPublisher  paymentwatch.Publisher
	providerClient *payprovider.Client
	cartService    *cart.Service
	natsConn       *nats.Conn
)

// InitializeCheckoutController wires the checkout stack: the watcher
// registry, the push channel, the provider client and the cart store.
func InitializeCheckoutController() {
	client := cache.GetClient()
	watchRegistry = paymentwatch.NewRegistry()
	watchRegistry.Start()
	pushChannel, pushPublisher = newPushChannel(client)
	providerClient = payprovider.NewClientFromEnv()
	cartService = cart.NewService(client)
}

// newPushChannel selects the push transport. Redis Pub/Sub is the default;
// PUSH_TRANSPORT=nats switches to a NATS subject per payment, and any other
// value disables push so watchers rely on polling alone. Subscribers and the
// webhook publisher always share one transport, so an event published from a
// provider callback reaches whatever watchers are attached.
func newPushChannel(client *redis.Client) (paymentwatch.Channel, paymentwatch.Publisher) {
	switch strings.ToLower(env.GetEnv("PUSH_TRANSPORT", "redis")) {
	case "redis":
		ch := paymentwatch.NewRedisChannel(client)
		return ch, ch
	case "nats":
		conn, err := nats.Connect(env.GetEnv("NATS_URL", nats.DefaultURL))
		if err != nil {
			log.Errorf("[Checkout] Failed to connect to NATS, push disabled: %v", err)
			return nil, nil
		}
		natsConn = conn
		ch := paymentwatch.NewNATSChannel(conn)
		return ch, ch
	default:
		return nil, nil
	}
}

// ShutdownCheckoutController stops the registry and every live watcher.
func ShutdownCheckoutController() {
	if watchRegistry != nil {
		watchRegistry.Stop()
	}
	if natsConn != nil {
		natsConn.Close()
	}
}

// HandleCheckoutStart snapshots the cart into an order, opens a payment at
// the provider and sends the shopper to the provider's checkout page.
func HandleCheckoutStart(c *fiber.Ctx) error {
	cartID := currentCartID(c)
	items, err := cartService.Items(c.Context(), cartID)
	if err != nil {
		log.Errorf("[Checkout] Failed to load cart %s: %v", cartID, err)
		return c.Status(fiber.StatusInternalServerError).SendString("could not load cart")
	}
	if len(items) == 0 {
		return c.Redirect("/cart", fiber.StatusSeeOther)
	}

	order := &models.Order{
		UUID:       uuid.New().String(),
		CartID:     cartID,
		Status:     models.OrderStatusPending,
		TotalCents: cart.Total(items),
		Currency:   env.GetEnv("SHOP_CURRENCY", "EUR"),
	}
	for _, it := range items {
		order.Items = append(order.Items, models.OrderItem{
			ProductID:  it.ProductID,
			Name:       it.Name,
			Quantity:   it.Quantity,
			PriceCents: it.PriceCents,
		})
	}
	if err := repository.GetGlobalRepositories().Order.Create(order); err != nil {
		log.Errorf("[Checkout] Failed to create order: %v", err)
		return c.Status(fiber.StatusInternalServerError).SendString("could not create order")
	}

	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	details, err := providerClient.CreatePayment(c.Context(), payprovider.CreatePaymentRequest{
		OrderID:     order.UUID,
		AmountCents: order.TotalCents,
		Currency:    order.Currency,
		RedirectURL: base + "/checkout/callback?orderId=" + order.UUID,
		WebhookURL:  base + "/api/v1/webhooks/payment",
	})
	if err != nil {
		log.Errorf("[Checkout] Failed to create provider payment for order %s: %v", order.UUID, err)
		return c.Status(fiber.StatusBadGateway).SendString("payment provider unavailable")
	}

	payment := &models.Payment{
		OrderID:           order.ID,
		Provider:          models.PaymentProviderMollie,
		ProviderPaymentID: details.PaymentID,
		Status:            string(paymentwatch.OutcomePending),
		RawStatus:         details.Status,
		AmountCents:       order.TotalCents,
		Currency:          order.Currency,
	}
	if err := repository.GetGlobalRepositories().Payment.Upsert(payment); err != nil {
		log.Errorf("[Checkout] Failed to persist payment %s: %v", details.PaymentID, err)
	}

	// Persist the reference on both sides: the cookie session seeds the
	// callback screen, the server-side copy is what the side-effect driver
	// purges on success.
	if err := session.StorePaymentReference(c, details.PaymentID, order.UUID, cartID); err != nil {
		log.Warnf("[Checkout] Failed to store payment reference in session: %v", err)
	}
	refs := session.NewPaymentRefStore(cache.GetClient(), details.PaymentID)
	if err := refs.Save(c.Context(), order.UUID, cartID); err != nil {
		log.Warnf("[Checkout] Failed to store payment reference: %v", err)
	}

	if details.CheckoutURL != "" {
		return c.Redirect(details.CheckoutURL, fiber.StatusSeeOther)
	}
	return c.Redirect("/checkout/callback?orderId="+order.UUID+"&paymentId="+details.PaymentID, fiber.StatusSeeOther)
}

// HandleCheckoutCallback mounts the payment watch screen after the provider
// redirects back. It resolves the payment reference from the URL with a
// session fallback, seeds the watcher with any URL-carried status and renders
// the screen that polls the status endpoint.
func HandleCheckoutCallback(c *fiber.Ctx) error {
	if err := counter.AddCheckoutView(); err != nil {
		log.Debugf("[Checkout] Failed to bump checkout view counter: %v", err)
	}

	ref, seed := resolvePaymentReference(c)

	if seed == nil && !ref.Usable() {
		// Nothing to watch: fast-fail synchronously, no timers, no registry
		// entry. Distinct from the deadline timeout.
		w := paymentwatch.NewWatcher(ref, nil, paymentwatch.Config{Driver: newDriver(ref)})
		return renderCallback(c, ref, w.Snapshot())
	}

	w := watchRegistry.GetOrCreate(watchKey(ref), func() *paymentwatch.Watcher {
		return paymentwatch.NewWatcher(ref, seed, paymentwatch.Config{
			Channel:      pushChannel,
			Fetcher:      providerClient,
			Driver:       newDriver(ref),
			Deadline:     env.GetEnvDuration("PAYMENT_WATCH_DEADLINE", paymentwatch.DefaultDeadline),
			PollInterval: env.GetEnvDuration("PAYMENT_POLL_INTERVAL", paymentwatch.DefaultPollInterval),
		})
	})
	return renderCallback(c, ref, w.Snapshot())
}

// HandleCheckoutStatus is the JSON endpoint the callback screen polls for the
// reconciled state and the scheduled navigation.
func HandleCheckoutStatus(c *fiber.Ctx) error {
	ref := paymentwatch.PaymentReference{
		PaymentID: strings.TrimSpace(c.Query("paymentId")),
		OrderID:   strings.TrimSpace(c.Query("orderId")),
	}

	w, ok := watchRegistry.Get(watchKey(ref))
	if !ok {
		return c.JSON(fiber.Map{
			"state":   paymentwatch.StateFailed,
			"message": paymentwatch.MissingPaymentInfoMessage,
		})
	}
	return c.JSON(snapshotJSON(w.Snapshot()))
}

// HandleCheckoutSuccess renders the terminal success screen.
func HandleCheckoutSuccess(c *fiber.Ctx) error {
	// The watcher's driver already purged the server-side reference; the
	// cookie copies are cleared here, after the terminal transition.
	_ = session.PurgePaymentReference(c)
	return c.Render("checkout_success", fiber.Map{
		"OrderID":   c.Query("orderId"),
		"PaymentID": c.Query("paymentId"),
	}, "layouts/main")
}

// HandleCheckoutFailed renders the terminal failure screen. The cart is left
// untouched so the shopper can retry.
func HandleCheckoutFailed(c *fiber.Ctx) error {
	return c.Render("checkout_failed", fiber.Map{
		"OrderID": c.Query("orderId"),
		"Reason":  c.Query("reason"),
	}, "layouts/main")
}

// resolvePaymentReference reads the identifiers from the URL query with a
// session fallback, and builds the seed event when the URL carries a status.
func resolvePaymentReference(c *fiber.Ctx) (paymentwatch.PaymentReference, *paymentwatch.RawStatusEvent) {
	ref := paymentwatch.PaymentReference{
		PaymentID: strings.TrimSpace(c.Query("paymentId")),
		OrderID:   strings.TrimSpace(c.Query("orderId")),
	}
	if ref.PaymentID == "" {
		ref.PaymentID = session.GetSessionValue(c, session.KeyCurrentPaymentID)
	}
	if ref.OrderID == "" {
		ref.OrderID = session.GetSessionValue(c, session.KeyLastOrderID)
	}
	ref.CartID = session.GetSessionValue(c, session.KeyCheckoutCartID)

	// The server-side copy fills gaps when the cookie session is gone but
	// the provider still sent the payment id back on the URL.
	if ref.PaymentID != "" && (ref.OrderID == "" || ref.CartID == "") {
		refs := session.NewPaymentRefStore(cache.GetClient(), ref.PaymentID)
		if orderID, cartID, err := refs.Load(c.Context()); err == nil {
			if ref.OrderID == "" {
				ref.OrderID = orderID
			}
			if ref.CartID == "" {
				ref.CartID = cartID
			}
		}
	}

	var seed *paymentwatch.RawStatusEvent
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		seed = &paymentwatch.RawStatusEvent{
			Status:    status,
			PaymentID: ref.PaymentID,
			Timestamp: time.Now(),
			Source:    paymentwatch.SourceSeed,
		}
	} else if errParam := strings.TrimSpace(c.Query("error")); errParam != "" {
		seed = &paymentwatch.RawStatusEvent{
			Status:    errParam,
			Message:   "payment provider returned an error",
			PaymentID: ref.PaymentID,
			Timestamp: time.Now(),
			Source:    paymentwatch.SourceSeed,
		}
	}
	return ref, seed
}

func newDriver(ref paymentwatch.PaymentReference) *paymentwatch.Driver {
	var refs paymentwatch.ReferenceStore
	if ref.PaymentID != "" {
		refs = session.NewPaymentRefStore(cache.GetClient(), ref.PaymentID)
	}
	d := paymentwatch.NewDriver(cartService, refs)
	// Counting at the terminal transition covers every resolution path,
	// including poll results and deadline timeouts that never hit the webhook.
	d.Outcome = func(state paymentwatch.State) {
		if err := counter.AddPaymentOutcome(string(state)); err != nil {
			log.Debugf("[Checkout] Failed to bump outcome counter: %v", err)
		}
	}
	return d
}

// watchKey keys the registry by payment id, falling back to the order id for
// the rare callback that carries a status and order but no payment id.
func watchKey(ref paymentwatch.PaymentReference) string {
	if ref.PaymentID != "" {
		return ref.PaymentID
	}
	return "order:" + ref.OrderID
}

func renderCallback(c *fiber.Ctx, ref paymentwatch.PaymentReference, snap paymentwatch.Snapshot) error {
	return c.Render("checkout_callback", fiber.Map{
		"PaymentID": ref.PaymentID,
		"OrderID":   ref.OrderID,
		"State":     string(snap.State),
		"Message":   snap.Message,
		"Snapshot":  snapshotJSON(snap),
	}, "layouts/main")
}

// snapshotJSON shapes a snapshot for the polling script; the redirect delay
// is delivered in milliseconds.
func snapshotJSON(snap paymentwatch.Snapshot) fiber.Map {
	out := fiber.Map{
		"state":      snap.State,
		"message":    snap.Message,
		"connection": snap.Connection,
	}
	if snap.Redirect != nil {
		out["redirect"] = fiber.Map{
			"url":     snap.Redirect.URL,
			"afterMs": snap.Redirect.After.Milliseconds(),
		}
	}
	return out
}
