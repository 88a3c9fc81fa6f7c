package controllers

import (
	"github.com/gofiber/fiber/v2"
)

// HandleHome renders the storefront landing page.
func HandleHome(c *fiber.Ctx) error {
	return c.Render("home", fiber.Map{}, "layouts/main")
}
