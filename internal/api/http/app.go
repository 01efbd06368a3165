package http

import (
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/clinic-service/internal/config"
)

// NewApp returns a fiber app using the goccy JSON codec. Errors are rendered by
// the error middleware, so the default handler only sees what escapes it.
func NewApp(cfg config.AppConfig) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               cfg.Name,
		DisableStartupMessage: true,
		ReadTimeout:           cfg.RequestTimeout(),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})
}
