package constants

// Static route constants
const (
	PublicRoute           = "/"
	CartRoute             = "/cart"
	CartItemsRoute        = "/cart/items"
	CartClearRoute        = "/cart/clear"
	CheckoutRoute         = "/checkout"
	CheckoutCallbackRoute = "/checkout/callback"
	CheckoutSuccessRoute  = "/checkout/success"
	CheckoutFailedRoute   = "/checkout/failed"

	// API routes relative to the /api/v1 group
	APICheckoutStatusRoute = "/checkout/status"
	APIPaymentWebhookRoute = "/webhooks/payment"
	APIShopStatsRoute      = "/stats"
)
