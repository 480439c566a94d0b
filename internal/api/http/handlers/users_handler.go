package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/qaboard/qa-service/internal/api/dto"
	"github.com/qaboard/qa-service/internal/auth"
	"github.com/qaboard/qa-service/internal/domain"
	"github.com/qaboard/qa-service/internal/service"
)

// UsersHandler exposes account endpoints.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// Create handles POST /users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	var req dto.UserCreateRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}

	user, err := h.auth.RegisterUser(c.UserContext(), service.RegisterInput{
		Email:        *req.Email,
		Password:     *req.Password,
		FirstName:    *req.FirstName,
		LastName:     *req.LastName,
		IsModerator:  req.IsModerator,
		ModeratorKey: c.Get(auth.ModeratorKeyHeader),
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(dto.IDResponse{ID: user.ID})
}

// Login handles POST /login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}

	token, err := h.auth.Login(c.UserContext(), domain.Credentials{Email: *req.Email, Password: *req.Password})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(dto.TokenResponse{Token: token})
}
