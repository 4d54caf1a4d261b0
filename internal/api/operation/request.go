package operation

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
)

// HandlerFunc serves one operation. req has already passed contract
// validation. Returning an error hands it to the dispatcher for translation
// into the error envelope.
type HandlerFunc func(c echo.Context, req *Request) error

// Request is the validated view of an inbound request.
type Request struct {
	Operation *Operation
	params    map[string]string
	query     url.Values
	body      []byte
}

// NewRequest builds a Request from parts that are already known to be valid.
func NewRequest(op *Operation, params map[string]string, query url.Values, body []byte) *Request {
	if params == nil {
		params = map[string]string{}
	}
	if query == nil {
		query = url.Values{}
	}
	return &Request{Operation: op, params: params, query: query, body: body}
}

// Param returns a path parameter.
func (r *Request) Param(name string) string {
	return r.params[name]
}

// ParamUint64 parses a path parameter declared as a decimal uint64 string.
func (r *Request) ParamUint64(name string) (uint64, error) {
	v, err := strconv.ParseUint(r.params[name], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("path parameter %s: %w", name, err)
	}
	return v, nil
}

// ParamInt32 parses a path parameter declared as an int32.
func (r *Request) ParamInt32(name string) (int32, error) {
	v, err := strconv.ParseInt(r.params[name], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("path parameter %s: %w", name, err)
	}
	return int32(v), nil
}

// Query returns the first value of a query parameter.
func (r *Request) Query(name string) string {
	return r.query.Get(name)
}

// Body returns the raw validated body.
func (r *Request) Body() []byte {
	return r.body
}

// DecodeBody unmarshals the JSON body into v. An empty body leaves v untouched.
func (r *Request) DecodeBody(v any) error {
	if len(r.body) == 0 {
		return nil
	}
	return json.Unmarshal(r.body, v)
}
