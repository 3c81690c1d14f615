package controller

import (
	"ai-dms-be/internal/pkg/serverutils"
	"ai-dms-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IUsageController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	Summary(ctx *fiber.Ctx) error
}

type usageController struct {
	service service.IUsageService
}

func NewUsageController(service service.IUsageService) IUsageController {
	return &usageController{service: service}
}

func (c *usageController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	r.Get("/usage", auth, c.Summary)
}

func (c *usageController) Summary(ctx *fiber.Ctx) error {
	res, err := c.service.Summary(ctx.UserContext(), serverutils.PrincipalFrom(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Token usage", res))
}
