package handlers

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/qaboard/qa-service/pkg/util/errorutil"
)

type validator interface {
	Validate() error
}

// decodeBody parses the JSON body with the app's decoder. Any failure, including a
// failed Validate, is a malformed body.
func decodeBody(c *fiber.Ctx, out validator) error {
	if err := c.App().Config().JSONDecoder(c.Body(), out); err != nil {
		return apperrors.MalformedBody(err)
	}
	if err := out.Validate(); err != nil {
		return apperrors.MalformedBody(err)
	}
	return nil
}
