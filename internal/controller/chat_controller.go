package controller

import (
	"bufio"
	"context"

	"ai-dms-be/internal/dto"
	"ai-dms-be/internal/pkg/logger"
	"ai-dms-be/internal/pkg/serverutils"
	"ai-dms-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	New(ctx *fiber.Ctx) error
	FromPrompt(ctx *fiber.Ctx) error
	FromHistory(ctx *fiber.Ctx) error
	Stream(ctx *fiber.Ctx) error
	Complete(ctx *fiber.Ctx) error
	Save(ctx *fiber.Ctx) error
	DeleteHistory(ctx *fiber.Ctx) error
	DeleteAllHistory(ctx *fiber.Ctx) error
	Nav(ctx *fiber.Ctx) error
	Upload(ctx *fiber.Ctx) error
}

type chatController struct {
	service service.IChatService
	log     logger.ILogger
}

func NewChatController(service service.IChatService, log logger.ILogger) IChatController {
	return &chatController{service: service, log: log}
}

func (c *chatController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/chat", auth)
	h.Get("/new", c.New)
	h.Get("/prompt/:id", c.FromPrompt)
	h.Get("/history/:id", c.FromHistory)
	h.Post("/stream", c.Stream)
	h.Post("/complete", c.Complete)
	h.Post("/save", c.Save)
	h.Delete("/history/:id", c.DeleteHistory)
	h.Delete("/history", c.DeleteAllHistory)
	h.Get("/nav", c.Nav)
	h.Post("/upload", c.Upload)
}

func (c *chatController) New(ctx *fiber.Ctx) error {
	res, err := c.service.NewChat(ctx.UserContext(), serverutils.PrincipalFrom(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("New chat", res))
}

func (c *chatController) FromPrompt(ctx *fiber.Ctx) error {
	res, err := c.service.FromPrompt(ctx.UserContext(), serverutils.PrincipalFrom(ctx), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Chat from prompt", res))
}

func (c *chatController) FromHistory(ctx *fiber.Ctx) error {
	res, err := c.service.FromHistory(ctx.UserContext(), serverutils.PrincipalFrom(ctx), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Chat history", res))
}

// cancelOnError cancels the upstream request as soon as a write to the client
// fails.
type cancelOnError struct {
	w      *bufio.Writer
	cancel context.CancelFunc
}

func (c *cancelOnError) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	if err != nil {
		c.cancel()
	}
	return n, err
}

func (c *cancelOnError) Flush() error {
	if err := c.w.Flush(); err != nil {
		c.cancel()
		return err
	}
	return nil
}

func (c *chatController) Stream(ctx *fiber.Ctx) error {
	var req dto.StreamRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return err
	}
	p := serverutils.PrincipalFrom(ctx)

	// the body is written after the handler returns, so the upstream request
	// cannot live on the request context
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx.UserContext()))
	stream, err := c.service.Stream(streamCtx, p, req)
	if err != nil {
		cancel()
		return err
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")

	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer stream.Close()

		out := &cancelOnError{w: w, cancel: cancel}
		if _, err := stream.Pipe(out); err != nil {
			c.log.Warn("CHAT", "Stream aborted", map[string]interface{}{"user_id": p.ID, "error": err.Error()})
		}
		_ = out.Flush()
	})
	return nil
}

func (c *chatController) Complete(ctx *fiber.Ctx) error {
	var req dto.CompleteRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return err
	}

	res, err := c.service.Complete(ctx.UserContext(), serverutils.PrincipalFrom(ctx), req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Completion", res))
}

func (c *chatController) Save(ctx *fiber.Ctx) error {
	var req dto.SaveChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return err
	}

	res, err := c.service.Save(ctx.UserContext(), serverutils.PrincipalFrom(ctx), req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Chat saved", res))
}

func (c *chatController) DeleteHistory(ctx *fiber.Ctx) error {
	res, err := c.service.DeleteHistory(ctx.UserContext(), serverutils.PrincipalFrom(ctx), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse(res.Message, res))
}

func (c *chatController) DeleteAllHistory(ctx *fiber.Ctx) error {
	res, err := c.service.DeleteAllHistory(ctx.UserContext(), serverutils.PrincipalFrom(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Chat histories deleted", res))
}

func (c *chatController) Nav(ctx *fiber.Ctx) error {
	res, err := c.service.NavItems(ctx.UserContext(), serverutils.PrincipalFrom(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Navigation", res))
}

func (c *chatController) Upload(ctx *fiber.Ctx) error {
	header, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "No file selected")
	}

	res, err := c.service.UploadAttachment(ctx.UserContext(), serverutils.PrincipalFrom(ctx), uploadInput(header))
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("File attached", res))
}
