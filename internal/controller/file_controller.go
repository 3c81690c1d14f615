package controller

import (
	"fmt"
	"mime"

	"ai-dms-be/internal/pkg/serverutils"
	"ai-dms-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IFileController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	Upload(ctx *fiber.Ctx) error
	Download(ctx *fiber.Ctx) error
}

type fileController struct {
	service service.IFileService
}

func NewFileController(service service.IFileService) IFileController {
	return &fileController{service: service}
}

func (c *fileController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/files", auth)
	h.Post("/", c.Upload)
	h.Get("/:id/download", c.Download)
}

func (c *fileController) Upload(ctx *fiber.Ctx) error {
	header, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "No file selected")
	}

	res, err := c.service.Upload(
		ctx.UserContext(),
		serverutils.PrincipalFrom(ctx),
		uploadInput(header),
		ctx.FormValue("category"),
		ctx.FormValue("document_id"),
		ctx.FormValue("element_id"),
	)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("File uploaded", res))
}

func (c *fileController) Download(ctx *fiber.Ctx) error {
	file, body, err := c.service.Open(ctx.UserContext(), serverutils.PrincipalFrom(ctx), ctx.Params("id"))
	if err != nil {
		return err
	}

	contentType := mime.TypeByExtension("." + file.FileType)
	if contentType == "" {
		contentType = fiber.MIMEOctetStream
	}
	ctx.Set(fiber.HeaderContentType, contentType)
	ctx.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", file.Name))
	// fasthttp closes the body once it has been sent
	return ctx.SendStream(body)
}
