package operation

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/template-backend/internal/metrics"
)

// ContextKey is the echo context key holding the resolved operation id.
const ContextKey = "operation_id"

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithAuthenticator sets the function consulted for operations with a
// security requirement. Without it every secured operation is refused.
func WithAuthenticator(fn AuthenticatorFunc) Option {
	return func(d *Dispatcher) {
		if fn != nil {
			d.authenticate = fn
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(d *Dispatcher) { d.log = log }
}

type binding struct {
	op      *Operation
	handler HandlerFunc
}

// Dispatcher binds contract operations to handlers.
//
// Register and Init are called once, from one goroutine, during startup. After
// Init the binding table is read-only and safe for concurrent use.
type Dispatcher struct {
	contract     *Contract
	handlers     map[string]HandlerFunc
	table        []binding
	sealed       bool
	authenticate AuthenticatorFunc
	log          zerolog.Logger
}

func New(contract *Contract, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		contract:     contract,
		handlers:     make(map[string]HandlerFunc),
		authenticate: denyAll,
		log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register binds h to the contract operation id.
func (d *Dispatcher) Register(id string, h HandlerFunc) error {
	if d.sealed {
		return ErrDispatcherSealed
	}
	if _, ok := d.contract.Operation(id); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownOperation, id)
	}
	if _, dup := d.handlers[id]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateOperation, id)
	}
	if h == nil {
		return fmt.Errorf("register %q: nil handler", id)
	}
	d.handlers[id] = h
	return nil
}

// Init freezes the binding table. Every contract operation must have a
// handler; the error names all that do not.
func (d *Dispatcher) Init() error {
	if d.sealed {
		return ErrDispatcherSealed
	}

	var unbound []string
	table := make([]binding, 0, len(d.handlers))
	for _, op := range d.contract.Operations() {
		h, ok := d.handlers[op.ID]
		if !ok {
			unbound = append(unbound, op.ID)
			continue
		}
		table = append(table, binding{op: op, handler: h})
	}
	if len(unbound) > 0 {
		sort.Strings(unbound)
		return fmt.Errorf("%w: %s", ErrUnboundOperation, strings.Join(unbound, ", "))
	}

	d.table = table
	d.sealed = true
	return nil
}

// Mount registers every bound operation on e. Echo's router resolves static
// segments before parameters, so "/users/me" always wins over "/users/{id}".
func (d *Dispatcher) Mount(e *echo.Echo) error {
	if !d.sealed {
		return ErrNotInitialized
	}
	for _, b := range d.table {
		e.Add(b.op.Method, b.op.EchoPath(), d.serve(b))
	}
	return nil
}

// Operations lists the bound operations in registration order.
func (d *Dispatcher) Operations() []*Operation {
	out := make([]*Operation, 0, len(d.table))
	for _, b := range d.table {
		out = append(out, b.op)
	}
	return out
}

// serve validates, invokes the handler and renders any error through echo's
// error handler, so each request gets exactly one response.
func (d *Dispatcher) serve(b binding) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Set(ContextKey, b.op.ID)

		err := d.invoke(c, b)
		if err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				metrics.ValidationFailuresTotal.WithLabelValues(b.op.ID).Inc()
			}
			if !c.Response().Committed {
				c.Error(err)
			} else {
				d.log.Warn().Err(err).Str("operation", b.op.ID).Msg("handler failed after response was written")
			}
		}

		metrics.OperationsTotal.WithLabelValues(b.op.ID, statusClass(c.Response().Status)).Inc()
		return nil
	}
}

func (d *Dispatcher) invoke(c echo.Context, b binding) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation %s panicked: %v", b.op.ID, r)
		}
	}()

	req, err := d.validate(c, b.op)
	if err != nil {
		return err
	}
	return b.handler(c, req)
}

func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}
