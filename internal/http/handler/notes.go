package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docrepo/internal/service"
)

// ListNotes godoc
// @Summary      List notes
// @Description  Newest first, paged with limit and offset.
// @Tags         notes
// @Produce      json
// @Param        limit   query     int  false  "page size"  default(10)
// @Param        offset  query     int  false  "items to skip"  default(0)
// @Success      200     {object}  service.NoteListResult
// @Failure      400     {object}  errorPayload
// @Failure      500     {object}  errorPayload
// @Router       /notes [get]
func ListNotes(svc service.NoteService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	}
}

// CreateNote godoc
// @Summary   Create a note
// @Tags      notes
// @Accept    json
// @Produce   json
// @Param     note  body      service.NoteInput  true  "note"
// @Success   201   {object}  model.Note
// @Failure   400   {object}  errorPayload
// @Failure   409   {object}  errorPayload
// @Failure   500   {object}  errorPayload
// @Router    /notes [post]
func CreateNote(svc service.NoteService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.NoteInput
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		n, err := svc.Create(c.UserContext(), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(n)
	}
}

// GetNote godoc
// @Summary   Get a note
// @Tags      notes
// @Produce   json
// @Param     id   path      string  true  "note id (uuid)"
// @Success   200  {object}  model.Note
// @Failure   400  {object}  errorPayload
// @Failure   404  {object}  errorPayload
// @Failure   500  {object}  errorPayload
// @Router    /notes/{id} [get]
func GetNote(svc service.NoteService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := noteID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		n, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(n)
	}
}

// UpdateNote godoc
// @Summary   Replace the editable fields of a note
// @Tags      notes
// @Accept    json
// @Produce   json
// @Param     id    path      string             true  "note id (uuid)"
// @Param     note  body      service.NoteInput  true  "note"
// @Success   200   {object}  model.Note
// @Failure   400   {object}  errorPayload
// @Failure   404   {object}  errorPayload
// @Failure   500   {object}  errorPayload
// @Router    /notes/{id} [put]
func UpdateNote(svc service.NoteService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := noteID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var in service.NoteInput
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		n, err := svc.Update(c.UserContext(), id, in)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(n)
	}
}

// DeleteNote godoc
// @Summary   Delete a note
// @Tags      notes
// @Param     id   path  string  true  "note id (uuid)"
// @Success   204
// @Failure   400  {object}  errorPayload
// @Failure   404  {object}  errorPayload
// @Failure   500  {object}  errorPayload
// @Router    /notes/{id} [delete]
func DeleteNote(svc service.NoteService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := noteID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// noteID returns the :id path parameter if it is a UUID.
func noteID(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}
