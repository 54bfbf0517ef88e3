package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"

	"docrepo/docs"
)

// RegisterSwagger serves the Swagger UI and API description under /swagger.
// Host and schemes are fixed here, before the app starts serving.
func RegisterSwagger(app *fiber.App, host string, schemes ...string) {
	docs.SwaggerInfo.Host = host
	docs.SwaggerInfo.Schemes = append([]string{}, schemes...)

	app.Get("/swagger/*", swagger.HandlerDefault)
}
