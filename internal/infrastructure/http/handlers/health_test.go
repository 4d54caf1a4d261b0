package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func readiness(t *testing.T, checks map[string]Checker) (*httptest.ResponseRecorder, readinessResponse) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health/ready", nil), rec)

	if err := NewHealthDependenciesHandler(checks).Readiness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp readinessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return rec, resp
}

func TestLiveness(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)

	if err := NewHealthHandler().Liveness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestReadiness_AllHealthy(t *testing.T) {
	ok := CheckerFunc(func(context.Context) error { return nil })

	rec, resp := readiness(t, map[string]Checker{"user_store": ok, "redis": ok})
	if rec.Code != http.StatusOK || resp.Status != "ok" {
		t.Fatalf("expected ok, got %d %+v", rec.Code, resp)
	}
	if len(resp.Dependencies) != 2 {
		t.Fatalf("expected 2 dependencies, got %+v", resp.Dependencies)
	}
}

func TestReadiness_Degraded(t *testing.T) {
	ok := CheckerFunc(func(context.Context) error { return nil })
	down := CheckerFunc(func(context.Context) error { return errors.New("connection refused") })

	rec, resp := readiness(t, map[string]Checker{"user_store": ok, "redis": down})
	if rec.Code != http.StatusServiceUnavailable || resp.Status != "degraded" {
		t.Fatalf("expected degraded, got %d %+v", rec.Code, resp)
	}
	if resp.Dependencies["redis"].Error != "connection refused" {
		t.Fatalf("unexpected redis status: %+v", resp.Dependencies["redis"])
	}
	if resp.Dependencies["user_store"].Status != "ok" {
		t.Fatalf("unexpected store status: %+v", resp.Dependencies["user_store"])
	}
}
