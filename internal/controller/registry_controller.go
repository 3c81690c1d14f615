package controller

import (
	"ai-dms-be/internal/mapper"
	"ai-dms-be/internal/pkg/serverutils"
	"ai-dms-be/internal/registry"
	"ai-dms-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IRegistryController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	List(ctx *fiber.Ctx) error
	Get(ctx *fiber.Ctx) error
}

type registryController struct {
	registry *registry.Registry
	crud     service.ICrudService
	mapper   *mapper.RegistryMapper
}

func NewRegistryController(reg *registry.Registry, crud service.ICrudService) IRegistryController {
	return &registryController{registry: reg, crud: crud, mapper: mapper.NewRegistryMapper()}
}

func (c *registryController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/registry", auth)
	h.Get("/", c.List)
	h.Get("/:entity", c.Get)
}

func (c *registryController) List(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Entity types", c.mapper.ToEntryResponses(c.registry.All())))
}

func (c *registryController) Get(ctx *fiber.Ctx) error {
	d, err := c.crud.Descriptor(ctx.Params("entity"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Entity type", c.mapper.ToEntryResponse(d, true)))
}
