package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/qaboard/qa-service/internal/api/dto"
	"github.com/qaboard/qa-service/internal/auth"
	"github.com/qaboard/qa-service/internal/domain"
	"github.com/qaboard/qa-service/internal/service"
	apperrors "github.com/qaboard/qa-service/pkg/util/errorutil"
)

// QuestionsHandler exposes question endpoints.
type QuestionsHandler struct {
	questions *service.QuestionService
}

// NewQuestionsHandler constructs handler.
func NewQuestionsHandler(questionService *service.QuestionService) *QuestionsHandler {
	return &QuestionsHandler{questions: questionService}
}

// List handles GET /questions.
func (h *QuestionsHandler) List(c *fiber.Ctx) error {
	page, err := domain.ParsePagination(c.Queries())
	if err != nil {
		return err
	}

	questions, err := h.questions.List(c.UserContext(), page)
	if err != nil {
		return err
	}
	return c.JSON(dto.ToQuestionResponses(questions))
}

// Get handles GET /questions/:id.
func (h *QuestionsHandler) Get(c *fiber.Ctx) error {
	question, err := h.questions.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.ToQuestionResponse(*question))
}

// Create handles POST /questions.
func (h *QuestionsHandler) Create(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	var req dto.QuestionRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}

	question, err := h.questions.Create(c.UserContext(), caller, req.Draft())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.IDResponse{ID: question.ID})
}

// Update handles PUT /questions/:id.
func (h *QuestionsHandler) Update(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	var req dto.QuestionRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}

	if err := h.questions.Update(c.UserContext(), caller, c.Params("id"), req.Draft()); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Delete handles DELETE /questions/:id.
func (h *QuestionsHandler) Delete(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}

	if err := h.questions.Delete(c.UserContext(), caller, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// callerOf fails closed when a protected route was registered without the auth gate.
func callerOf(c *fiber.Ctx) (domain.Identity, error) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return domain.Identity{}, apperrors.AuthTokenMissingOrInvalid()
	}
	return identity, nil
}
