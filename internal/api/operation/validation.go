package operation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/labstack/echo/v4"
)

// AuthenticatorFunc decides whether the request carried by ctx satisfies the
// named security scheme. A nil error accepts the request.
type AuthenticatorFunc func(ctx context.Context, scheme string) error

func denyAll(context.Context, string) error { return ErrUnauthenticated }

// validate checks c against op and builds the validated Request.
func (d *Dispatcher) validate(c echo.Context, op *Operation) (*Request, error) {
	r := c.Request()

	var body []byte
	if r.Body != nil && r.Body != http.NoBody {
		var err error
		body, err = io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	params := make(map[string]string, len(c.ParamNames()))
	for i, name := range c.ParamNames() {
		params[name] = c.ParamValues()[i]
	}

	input := &openapi3filter.RequestValidationInput{
		Request:     r,
		PathParams:  params,
		QueryParams: r.URL.Query(),
		Route:       op.route,
		Options: &openapi3filter.Options{
			MultiError: true,
			AuthenticationFunc: func(ctx context.Context, in *openapi3filter.AuthenticationInput) error {
				return d.authenticate(ctx, in.SecuritySchemeName)
			},
		},
	}

	err := openapi3filter.ValidateRequest(r.Context(), input)
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		if isSecurityError(err) {
			return nil, ErrUnauthenticated
		}
		return nil, &ValidationError{Operation: op.ID, Violations: violations(err)}
	}

	return NewRequest(op, params, r.URL.Query(), body), nil
}

func isSecurityError(err error) bool {
	var me openapi3.MultiError
	if errors.As(err, &me) {
		for _, e := range me {
			if isSecurityError(e) {
				return true
			}
		}
		return false
	}
	var se *openapi3filter.SecurityRequirementsError
	return errors.As(err, &se)
}

// violations flattens the kin-openapi error tree into a sorted list.
func violations(err error) []Violation {
	var out []Violation
	collect(err, Violation{}, &out)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Field != out[j].Field {
			return out[i].Field < out[j].Field
		}
		return out[i].Rule < out[j].Rule
	})
	return out
}

func collect(err error, at Violation, out *[]Violation) {
	switch e := err.(type) {
	case openapi3.MultiError:
		for _, inner := range e {
			collect(inner, at, out)
		}

	case *openapi3filter.RequestError:
		switch {
		case e.Parameter != nil:
			at.In = e.Parameter.In
			at.Field = e.Parameter.In + "." + e.Parameter.Name
		case e.RequestBody != nil:
			at.In = "body"
			at.Field = "body"
		}
		if e.Err == nil {
			at.Description = e.Reason
			*out = append(*out, at)
			return
		}
		if e.Reason != "" && !isSchemaTree(e.Err) {
			at.Description = e.Reason + ": " + e.Err.Error()
			*out = append(*out, at)
			return
		}
		collect(e.Err, at, out)

	case *openapi3.SchemaError:
		if ptr := e.JSONPointer(); len(ptr) > 0 {
			at.Field = at.Field + "." + strings.Join(ptr, ".")
		}
		at.Rule = e.SchemaField
		at.Description = e.Reason
		*out = append(*out, at)

	case *openapi3filter.ParseError:
		at.Rule = "type"
		at.Description = e.Error()
		*out = append(*out, at)

	default:
		var schemaErr *openapi3.SchemaError
		if errors.As(err, &schemaErr) {
			collect(schemaErr, at, out)
			return
		}
		at.Description = err.Error()
		*out = append(*out, at)
	}
}

func isSchemaTree(err error) bool {
	var me openapi3.MultiError
	if errors.As(err, &me) {
		return true
	}
	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		return true
	}
	var pe *openapi3filter.ParseError
	return errors.As(err, &pe)
}
