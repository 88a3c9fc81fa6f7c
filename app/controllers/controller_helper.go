package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ManuelReschke/ShopFox/internal/pkg/session"
)

// Session key for the shopper's active cart.
const cartIDSessionKey = "cartId"

// currentCartID returns the session's cart id, creating one on first use.
func currentCartID(c *fiber.Ctx) string {
	if id := session.GetSessionValue(c, cartIDSessionKey); id != "" {
		return id
	}
	id := uuid.New().String()
	_ = session.SetSessionValue(c, cartIDSessionKey, id)
	return id
}
