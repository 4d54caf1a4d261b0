package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/template-backend/internal/api/operation"
	"github.com/99minutos/template-backend/internal/core/domain"
)

type stubIdentityService struct {
	createFn       func(ctx context.Context, candidate *domain.User) (*domain.User, error)
	authenticateFn func(ctx context.Context, creds domain.Credentials) (*domain.AuthenticationResult, error)
}

func (s *stubIdentityService) CreateUser(ctx context.Context, candidate *domain.User) (*domain.User, error) {
	return s.createFn(ctx, candidate)
}

func (s *stubIdentityService) Authenticate(ctx context.Context, creds domain.Credentials) (*domain.AuthenticationResult, error) {
	return s.authenticateFn(ctx, creds)
}

// newContext builds an echo context and an already-validated request view.
func newContext(body string, params map[string]string) (echo.Context, *httptest.ResponseRecorder, *operation.Request) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	var raw []byte
	if body != "" {
		raw = []byte(body)
	}
	return e.NewContext(req, rec), rec, operation.NewRequest(nil, params, nil, raw)
}

func TestAuthHandler_Authenticate_Success(t *testing.T) {
	stub := &stubIdentityService{
		authenticateFn: func(_ context.Context, creds domain.Credentials) (*domain.AuthenticationResult, error) {
			if creds.Username != "alice" || creds.Password != "s3cret-pass" || creds.Totp != "123456" {
				t.Fatalf("unexpected credentials: %+v", creds)
			}
			return &domain.AuthenticationResult{Token: "tok"}, nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec, req := newContext(`{"username":"alice","password":"s3cret-pass","totp":"123456"}`, nil)
	if err := h.Authenticate(c, req); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp authenticationReply
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Result.Token != "tok" {
		t.Fatalf("unexpected token %q", resp.Result.Token)
	}
}

func TestAuthHandler_Authenticate_InvalidCredentials(t *testing.T) {
	stub := &stubIdentityService{
		authenticateFn: func(context.Context, domain.Credentials) (*domain.AuthenticationResult, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	h := NewAuthHandler(stub)

	c, rec, req := newContext(`{"username":"alice","password":"wrong"}`, nil)
	err := h.Authenticate(c, req)
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("handler must leave rendering to the error handler")
	}
}

func TestAuthHandler_Authenticate_MissingFields(t *testing.T) {
	stub := &stubIdentityService{
		authenticateFn: func(context.Context, domain.Credentials) (*domain.AuthenticationResult, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}
	h := NewAuthHandler(stub)

	c, _, req := newContext(`{}`, nil)
	err := h.Authenticate(c, req)

	var ve *operation.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(ve.Violations) != 2 {
		t.Fatalf("expected 2 violations, got %+v", ve.Violations)
	}
	for _, v := range ve.Violations {
		if v.Rule != "required" || v.In != "body" {
			t.Fatalf("unexpected violation %+v", v)
		}
	}
}
