package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/ShopFox/app/controllers"
	"github.com/ManuelReschke/ShopFox/internal/pkg/constants"
	"github.com/ManuelReschke/ShopFox/internal/pkg/session"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// Initialize checkout controller with the watch registry and provider client
	controllers.InitializeCheckoutController()

	h.registerPublicRoutes(app)
}

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	app.Get(constants.PublicRoute, controllers.HandleHome)

	app.Get(constants.CartRoute, controllers.HandleCartView)
	app.Post(constants.CartItemsRoute, controllers.HandleCartAdd)
	app.Post(constants.CartClearRoute, controllers.HandleCartClear)

	app.Post(constants.CheckoutRoute, controllers.HandleCheckoutStart)
	app.Get(constants.CheckoutCallbackRoute, controllers.HandleCheckoutCallback)
	app.Get(constants.CheckoutSuccessRoute, controllers.HandleCheckoutSuccess)
	app.Get(constants.CheckoutFailedRoute, controllers.HandleCheckoutFailed)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
