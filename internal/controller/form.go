package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"ai-dms-be/internal/dto"

	"github.com/gofiber/fiber/v2"
)

// readForm returns the submitted fields as strings. Multipart bodies also
// return the parsed form so attached files can be stored afterwards.
func readForm(ctx *fiber.Ctx) (map[string]string, *multipart.Form, error) {
	contentType := strings.ToLower(ctx.Get(fiber.HeaderContentType))
	values := map[string]string{}

	switch {
	case strings.HasPrefix(contentType, fiber.MIMEMultipartForm):
		form, err := ctx.MultipartForm()
		if err != nil {
			return nil, nil, fiber.NewError(fiber.StatusBadRequest, "Invalid multipart form")
		}
		for key, vs := range form.Value {
			if len(vs) > 0 {
				values[key] = vs[0]
			}
		}
		return values, form, nil

	case strings.HasPrefix(contentType, fiber.MIMEApplicationJSON):
		var body map[string]interface{}
		dec := json.NewDecoder(bytes.NewReader(ctx.Body()))
		dec.UseNumber()
		if err := dec.Decode(&body); err != nil {
			return nil, nil, fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		for key, v := range body {
			switch val := v.(type) {
			case nil:
				values[key] = ""
			case string:
				values[key] = val
			case json.Number:
				values[key] = val.String()
			default:
				values[key] = fmt.Sprint(val)
			}
		}
		return values, nil, nil

	default:
		ctx.Request().PostArgs().VisitAll(func(key, value []byte) {
			values[string(key)] = string(value)
		})
		return values, nil, nil
	}
}

func uploadInput(h *multipart.FileHeader) dto.UploadInput {
	return dto.UploadInput{
		Filename: h.Filename,
		Size:     h.Size,
		Open: func() (io.ReadCloser, error) {
			return h.Open()
		},
	}
}
