package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"

	"entryapi/docs"
)

// Swagger serves the Swagger UI and doc.json.
// host is written into the document once; when empty the UI falls back to the host
// and scheme the page was loaded from, which also works behind a proxy.
func Swagger(host string) fiber.Handler {
	docs.SwaggerInfo.Host = host
	docs.SwaggerInfo.Schemes = []string{}
	return swagger.HandlerDefault
}
