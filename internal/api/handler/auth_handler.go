package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/template-backend/internal/api/operation"
	"github.com/99minutos/template-backend/internal/core/ports"
)

type AuthHandler struct {
	identity  ports.IdentityService
	validator *bodyValidator
}

func NewAuthHandler(identity ports.IdentityService) *AuthHandler {
	return &AuthHandler{identity: identity, validator: newBodyValidator()}
}

// Authenticate exchanges credentials for a bearer token.
//
// @Summary      Authenticate
// @Tags         AuthenticationService
// @Accept       json
// @Produce      json
// @Param        body  body      credentialsRequest  true  "Credentials"
// @Success      200   {object}  authenticationReply
// @Failure      400   {object}  map[string]any
// @Failure      401   {object}  map[string]any
// @Failure      429   {object}  map[string]any
// @Router       /api/rest/v1/authentication/login [post]
func (h *AuthHandler) Authenticate(c echo.Context, req *operation.Request) error {
	var body credentialsRequest
	if err := h.validator.decode(req, &body); err != nil {
		return err
	}

	result, err := h.identity.Authenticate(c.Request().Context(), toCredentials(body))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, authenticationReply{Result: authenticationResult{Token: result.Token}})
}
