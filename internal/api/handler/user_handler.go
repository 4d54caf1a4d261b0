package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/template-backend/internal/api/operation"
	"github.com/99minutos/template-backend/internal/core/domain"
	"github.com/99minutos/template-backend/internal/core/ports"
)

type UserHandler struct {
	identity  ports.IdentityService
	validator *bodyValidator
}

func NewUserHandler(identity ports.IdentityService) *UserHandler {
	return &UserHandler{identity: identity, validator: newBodyValidator()}
}

// CreateUser hashes the password and persists a new user.
//
// @Summary      Create a user
// @Tags         UserService
// @Accept       json
// @Produce      json
// @Param        body  body      createUserRequest  true  "User"
// @Success      200   {object}  createUserReply
// @Failure      400   {object}  map[string]any
// @Failure      409   {object}  map[string]any
// @Failure      500   {object}  map[string]any
// @Router       /api/rest/v1/users [post]
func (h *UserHandler) CreateUser(c echo.Context, req *operation.Request) error {
	var body createUserRequest
	if err := h.validator.decode(req, &body); err != nil {
		return err
	}

	candidate, err := toCandidate(body)
	if err != nil {
		return err
	}

	user, err := h.identity.CreateUser(c.Request().Context(), candidate)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toCreateUserReply(user))
}

// The operations below are declared by the contract but have no behaviour
// yet. They answer 501 rather than a fabricated payload.

func (h *UserHandler) GetUser(echo.Context, *operation.Request) error {
	return domain.ErrNotImplemented
}

func (h *UserHandler) GetUserMe(echo.Context, *operation.Request) error {
	return domain.ErrNotImplemented
}

func (h *UserHandler) DeleteUser(echo.Context, *operation.Request) error {
	return domain.ErrNotImplemented
}

func (h *UserHandler) ResetPassword(echo.Context, *operation.Request) error {
	return domain.ErrNotImplemented
}

func (h *UserHandler) UpdatePassword(echo.Context, *operation.Request) error {
	return domain.ErrNotImplemented
}
