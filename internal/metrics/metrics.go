// Package metrics defines and registers all custom Prometheus metrics of the
// template backend. It is the single source of truth for metric names, labels
// and help strings.
//
// Collectors are registered with the default Prometheus registry on package
// initialisation (promauto) and exposed by the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "template_backend"

// ── Dispatcher metrics ────────────────────────────────────────────────────────

// OperationsTotal counts requests that resolved to a contract operation.
// Labels:
//   - operation: the contract operation id (e.g. "UserService_CreateUser")
//   - class: status class of the response ("2xx", "4xx", "5xx")
var OperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Total number of requests dispatched to a contract operation.",
	},
	[]string{"operation", "class"},
)

// ValidationFailuresTotal counts requests rejected by contract validation.
// Label:
//   - operation: the contract operation id
var ValidationFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "validation_failures_total",
		Help:      "Total number of requests rejected because they violate the contract.",
	},
	[]string{"operation"},
)

// ErrorResponsesTotal counts error envelopes written, by HTTP status code.
var ErrorResponsesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "error_responses_total",
		Help:      "Total number of error envelopes rendered, by status code.",
	},
	[]string{"code"},
)

// ── Identity metrics ──────────────────────────────────────────────────────────

// UsersCreatedTotal counts users persisted through the identity service.
var UsersCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "users_created_total",
		Help:      "Total number of users created.",
	},
)

// AuthenticationsTotal counts authentication attempts.
// Label:
//   - result: "success", "invalid_credentials", "blocked" or "error"
var AuthenticationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authentications_total",
		Help:      "Total number of authentication attempts, by result.",
	},
	[]string{"result"},
)

// HashDuration measures bcrypt work including time spent queued in the pool.
// Label:
//   - op: "hash" or "verify"
var HashDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "hash_duration_seconds",
		Help:      "Duration of password hashing and verification.",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	},
	[]string{"op"},
)

// WorkerQueueDepth tracks jobs waiting in a worker pool.
// Label:
//   - pool: pool name (e.g. "bcrypt")
var WorkerQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "worker_queue_depth",
		Help:      "Current number of jobs pending in a worker pool.",
	},
	[]string{"pool"},
)
