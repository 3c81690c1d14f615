package controller

import (
	"mime/multipart"

	"ai-dms-be/internal/dto"
	"ai-dms-be/internal/pkg/serverutils"
	"ai-dms-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	List(ctx *fiber.Ctx) error
	Create(ctx *fiber.Ctx) error
	Read(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type documentController struct {
	crud  service.ICrudService
	files service.IFileService
}

func NewDocumentController(crud service.ICrudService, files service.IFileService) IDocumentController {
	return &documentController{crud: crud, files: files}
}

func (c *documentController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/documents", auth)
	h.Get("/:entity", c.List)
	h.Post("/:entity", c.Create)
	h.Get("/:entity/:id", c.Read)
	h.Put("/:entity/:id", c.Update)
	h.Delete("/:entity/:id", c.Delete)
}

func (c *documentController) List(ctx *fiber.Ctx) error {
	var req dto.ListRequest
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid query parameters")
	}

	page, err := c.crud.List(ctx.UserContext(), serverutils.PrincipalFrom(ctx), ctx.Params("entity"), req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Documents", page))
}

// attach stores the files of a multipart submission against the saved
// document and returns the refreshed result.
func (c *documentController) attach(ctx *fiber.Ctx, res *dto.DocumentResult, form *multipart.Form, category string) (*dto.DocumentResult, error) {
	if form == nil || len(form.File) == 0 {
		return res, nil
	}
	p := serverutils.PrincipalFrom(ctx)
	if category == "" {
		category = res.Entity
	}

	uploads, err := c.files.UploadForm(ctx.UserContext(), p, form, category, res.Id)
	if err != nil {
		return nil, err
	}
	refreshed, err := c.crud.Read(ctx.UserContext(), p, res.Entity, res.Id)
	if err != nil {
		return nil, err
	}
	refreshed.UploadFailures = uploads.Failed
	return refreshed, nil
}

func (c *documentController) Create(ctx *fiber.Ctx) error {
	values, form, err := readForm(ctx)
	if err != nil {
		return err
	}

	res, err := c.crud.Create(ctx.UserContext(), serverutils.PrincipalFrom(ctx), ctx.Params("entity"), values)
	if err != nil {
		return err
	}
	if res, err = c.attach(ctx, res, form, values["category"]); err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Document created", res))
}

func (c *documentController) Read(ctx *fiber.Ctx) error {
	res, err := c.crud.Read(ctx.UserContext(), serverutils.PrincipalFrom(ctx), ctx.Params("entity"), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Document", res))
}

func (c *documentController) Update(ctx *fiber.Ctx) error {
	values, form, err := readForm(ctx)
	if err != nil {
		return err
	}

	res, err := c.crud.Update(ctx.UserContext(), serverutils.PrincipalFrom(ctx), ctx.Params("entity"), ctx.Params("id"), values)
	if err != nil {
		return err
	}
	if res, err = c.attach(ctx, res, form, values["category"]); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Document updated", res))
}

func (c *documentController) Delete(ctx *fiber.Ctx) error {
	res, err := c.crud.Delete(ctx.UserContext(), serverutils.PrincipalFrom(ctx), ctx.Params("entity"), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse(res.Message, res))
}
