package controllers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/sujit-baniya/flash"

	"github.com/ManuelReschke/ShopFox/internal/pkg/cart"
	"github.com/ManuelReschke/ShopFox/internal/pkg/constants"
)

type addItemForm struct {
	ProductID  string `form:"product_id" validate:"required"`
	Name       string `form:"name" validate:"required"`
	Quantity   int    `form:"quantity" validate:"omitempty,gte=1"`
	PriceCents int64  `form:"price_cents" validate:"required,gt=0"`
}

var formValidator = validator.New()

// HandleCartView renders the cart contents.
func HandleCartView(c *fiber.Ctx) error {
	cartID := currentCartID(c)
	items, err := cartService.Items(c.Context(), cartID)
	if err != nil {
		log.Errorf("[Cart] Failed to load cart %s: %v", cartID, err)
		items = []cart.Item{}
	}
	return c.Render("cart", fiber.Map{
		"Items":      items,
		"TotalCents": cart.Total(items),
		"Flash":      flash.Get(c),
	}, "layouts/main")
}

// HandleCartAdd adds one line to the cart.
func HandleCartAdd(c *fiber.Ctx) error {
	var form addItemForm
	if err := c.BodyParser(&form); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("invalid form data")
	}
	if err := formValidator.Struct(&form); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("invalid item: " + err.Error())
	}

	cartID := currentCartID(c)
	err := cartService.AddItem(c.Context(), cartID, cart.Item{
		ProductID:  form.ProductID,
		Name:       form.Name,
		Quantity:   form.Quantity,
		PriceCents: form.PriceCents,
	})
	if err != nil {
		log.Errorf("[Cart] Failed to add item to cart %s: %v", cartID, err)
		return c.Status(fiber.StatusInternalServerError).SendString("could not update cart")
	}
	fm := fiber.Map{
		"type":    "success",
		"message": form.Name + " added to cart",
	}
	return flash.WithSuccess(c, fm).Redirect(constants.CartRoute)
}

// HandleCartClear empties the cart on the shopper's request.
func HandleCartClear(c *fiber.Ctx) error {
	cartID := currentCartID(c)
	if err := cartService.ClearCart(c.Context(), cartID); err != nil {
		log.Errorf("[Cart] Failed to clear cart %s: %v", cartID, err)
		fm := fiber.Map{
			"type":    "error",
			"message": "could not clear the cart",
		}
		return flash.WithError(c, fm).Redirect(constants.CartRoute)
	}
	fm := fiber.Map{
		"type":    "info",
		"message": "cart cleared",
	}
	return flash.WithInfo(c, fm).Redirect(constants.CartRoute)
}
