// Package api assembles the HTTP surface: middleware, the contract-driven
// operation routes, docs, metrics and health probes.
package api

import (
	"fmt"
	"sync"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"github.com/swaggo/swag"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"golang.org/x/time/rate"

	"github.com/99minutos/template-backend/internal/api/middleware"
	"github.com/99minutos/template-backend/internal/api/operation"
	"github.com/99minutos/template-backend/internal/infrastructure/http/handlers"
)

const (
	bodyLimit    = "1M"
	docsInstance = "template-backend"
)

// RateLimit configures the optional per-IP limiter.
type RateLimit struct {
	Enabled bool
	RPS     float64
	Burst   int
}

// RouterOptions carries everything NewRouter wires together.
type RouterOptions struct {
	Log         zerolog.Logger
	ServiceName string
	Contract    *operation.Contract
	// Dispatcher must already be initialized.
	Dispatcher *operation.Dispatcher
	Tokens     middleware.TokenVerifier
	// Checks are the readiness dependencies, keyed by name.
	Checks    map[string]handlers.Checker
	RateLimit RateLimit
	// Registerer receives the HTTP metrics. Defaults to the global registry.
	Registerer prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(opts RouterOptions) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(opts.Log)

	registerer := opts.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(opts.Log))
	e.Use(otelecho.Middleware(opts.ServiceName))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))
	e.Use(echomiddleware.BodyLimit(bodyLimit))
	if opts.RateLimit.Enabled {
		e.Use(echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
			Store: echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(opts.RateLimit.RPS),
				Burst:     opts.RateLimit.Burst,
				ExpiresIn: 3 * time.Minute,
			}),
		}))
	}
	if opts.Tokens != nil {
		e.Use(middleware.Bearer(opts.Tokens))
	}

	// --- Observability ---
	e.GET("/metrics", echoprometheus.NewHandler())

	// --- Docs ---
	doc, err := opts.Contract.JSON()
	if err != nil {
		return nil, fmt.Errorf("render contract: %w", err)
	}
	publishDocs(doc)
	e.GET("/docs/*", echoSwagger.EchoWrapHandler(echoSwagger.InstanceName(docsInstance)))

	// --- Health probes (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(opts.Checks)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Contract operations ---
	if err := opts.Dispatcher.Mount(e); err != nil {
		return nil, fmt.Errorf("mount operations: %w", err)
	}

	return e, nil
}

// contractDoc serves the contract through the swag registry.
type contractDoc struct {
	mu  sync.RWMutex
	doc string
}

func (d *contractDoc) ReadDoc() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.doc
}

var (
	docs         = &contractDoc{}
	registerDocs sync.Once
)

// publishDocs sets the document served at /docs/doc.json. swag panics on a
// second Register for the same name, so the holder is registered once.
func publishDocs(doc []byte) {
	docs.mu.Lock()
	docs.doc = string(doc)
	docs.mu.Unlock()
	registerDocs.Do(func() { swag.Register(docsInstance, docs) })
}
