package handler

import (
	"fmt"

	"github.com/99minutos/template-backend/internal/api/operation"
	"github.com/99minutos/template-backend/internal/core/ports"
)

// Register binds every contract operation to its handler.
func Register(d *operation.Dispatcher, identity ports.IdentityService) error {
	auth := NewAuthHandler(identity)
	users := NewUserHandler(identity)
	index := NewIndexHandler()

	bindings := map[string]operation.HandlerFunc{
		"AuthenticationService_Authenticate": auth.Authenticate,
		"UserService_CreateUser":             users.CreateUser,
		"UserService_GetUser":                users.GetUser,
		"UserService_GetUserMe":              users.GetUserMe,
		"UserService_DeleteUser":             users.DeleteUser,
		"UserService_ResetPassword":          users.ResetPassword,
		"UserService_UpdatePassword":         users.UpdatePassword,
		"IndexService_GetHello":              index.GetHello,
		"IndexService_CreateHello":           index.CreateHello,
		"IndexService_GetHelloo":             index.GetHelloo,
	}
	for id, h := range bindings {
		if err := d.Register(id, h); err != nil {
			return fmt.Errorf("bind %s: %w", id, err)
		}
	}
	return nil
}
