package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/template-backend/internal/api/operation"
)

// IndexHandler serves the demo hello operations.
type IndexHandler struct{}

func NewIndexHandler() *IndexHandler {
	return &IndexHandler{}
}

func (h *IndexHandler) GetHello(c echo.Context, _ *operation.Request) error {
	return c.JSON(http.StatusOK, getHelloReply{Content: "hello"})
}

func (h *IndexHandler) GetHelloo(c echo.Context, _ *operation.Request) error {
	return c.JSON(http.StatusOK, getHelloReply{Content: "hello"})
}

// CreateHello echoes the identifier and body back.
func (h *IndexHandler) CreateHello(c echo.Context, req *operation.Request) error {
	identifier, err := req.ParamInt32("identifier")
	if err != nil {
		return err
	}

	var body createHelloRequest
	if err := req.DecodeBody(&body); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, createHelloReply{
		Identifier: identifier,
		Title:      body.Title,
		Content:    body.Content,
	})
}
