package handler

import (
	"github.com/gofiber/fiber/v2"

	"docrepo/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, store Pinger, noteSvc service.NoteService) {
	app.Get("/health", HealthCheck(store))
	app.Get("/healthz", LivenessProbe())

	notes := app.Group("/notes")
	notes.Get("/", ListNotes(noteSvc))
	notes.Post("/", CreateNote(noteSvc))
	notes.Get("/:id", GetNote(noteSvc))
	notes.Put("/:id", UpdateNote(noteSvc))
	notes.Delete("/:id", DeleteNote(noteSvc))
}
