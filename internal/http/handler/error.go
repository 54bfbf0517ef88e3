package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"docrepo/internal/http/middleware"
	"docrepo/internal/repository"
	"docrepo/internal/service"
)

// errorPayload is the JSON body of every error response.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// apiError is the response an error maps to.
type apiError struct {
	status  int
	code    string
	message string
}

var (
	errInternal = apiError{fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"}

	// Service and repository errors, checked in order with errors.Is.
	domainErrors = []struct {
		target error
		resp   apiError
	}{
		{service.ErrNotFound, apiError{fiber.StatusNotFound, "NOT_FOUND", "note not found"}},
		{repository.ErrNotFound, apiError{fiber.StatusNotFound, "NOT_FOUND", "record not found"}},
		{service.ErrConflict, apiError{fiber.StatusConflict, "CONFLICT", "note already exists"}},
		{repository.ErrAlreadyExists, apiError{fiber.StatusConflict, "CONFLICT", "record already exists"}},
		{service.ErrTitleRequired, apiError{fiber.StatusBadRequest, "TITLE_REQUIRED", "title is required"}},
		{service.ErrIDRequired, apiError{fiber.StatusBadRequest, "INVALID_ID", "id is required"}},
		{repository.ErrInvalidID, apiError{fiber.StatusBadRequest, "INVALID_ID", "invalid id"}},
	}

	statusErrors = map[int]apiError{
		fiber.StatusBadRequest:            {fiber.StatusBadRequest, "BAD_REQUEST", "bad request"},
		fiber.StatusNotFound:              {fiber.StatusNotFound, "NOT_FOUND", "resource not found"},
		fiber.StatusMethodNotAllowed:      {fiber.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed"},
		fiber.StatusRequestEntityTooLarge: {fiber.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "request body too large"},
	}
)

// classify maps err to a response. Unknown errors become INTERNAL_ERROR so
// internal details never reach the client.
func classify(err error) apiError {
	for _, d := range domainErrors {
		if errors.Is(err, d.target) {
			return d.resp
		}
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		if resp, ok := statusErrors[fe.Code]; ok {
			return resp
		}
		return apiError{fe.Code, errInternal.code, errInternal.message}
	}
	return errInternal
}

func requestIDFromCtx(c *fiber.Ctx) string {
	s, _ := c.Locals(middleware.RequestIDLocalKey).(string)
	return s
}

func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: requestIDFromCtx(c),
		Error:     errorEnvelope{Code: code, Message: message},
	})
}

func respondError(c *fiber.Ctx, err error) error {
	resp := classify(err)
	return writeError(c, resp.status, resp.code, resp.message)
}

// ErrorHandler is the app-wide Fiber error handler. Errors returned from
// handlers and routing failures share the same envelope.
func ErrorHandler() fiber.ErrorHandler {
	return respondError
}
