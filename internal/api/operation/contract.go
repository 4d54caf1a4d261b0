// Package operation maps HTTP requests onto the operations of an OpenAPI
// contract, validates them, and hands them to registered handlers.
package operation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/routers"
)

var pathParam = regexp.MustCompile(`\{([^/{}]+)\}`)

// methodOrder keeps registration deterministic for routes sharing a path.
var methodOrder = map[string]int{
	http.MethodGet:     0,
	http.MethodHead:    1,
	http.MethodPost:    2,
	http.MethodPut:     3,
	http.MethodPatch:   4,
	http.MethodDelete:  5,
	http.MethodOptions: 6,
	http.MethodTrace:   7,
}

// Operation is one method + path template of the contract.
type Operation struct {
	ID      string
	Method  string
	Path    string
	Summary string
	// Secured is true when the operation declares a security requirement.
	Secured bool

	route *routers.Route
}

// EchoPath converts the contract template ("/users/{id}") to echo's syntax ("/users/:id").
func (o *Operation) EchoPath() string {
	return pathParam.ReplaceAllString(o.Path, ":$1")
}

// Contract is the parsed, validated OpenAPI document. It is immutable.
type Contract struct {
	doc  *openapi3.T
	ops  []*Operation
	byID map[string]*Operation
}

// LoadContract parses and validates an OpenAPI 3 document. Every operation
// must carry a unique operationId.
func LoadContract(data []byte) (*Contract, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContractLoad, err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContractLoad, err)
	}

	c := &Contract{doc: doc, byID: make(map[string]*Operation)}

	paths := doc.Paths.Map()
	templates := make([]string, 0, len(paths))
	for p := range paths {
		templates = append(templates, p)
	}
	sort.Strings(templates)

	for _, tmpl := range templates {
		item := paths[tmpl]
		ops := item.Operations()
		methods := make([]string, 0, len(ops))
		for m := range ops {
			methods = append(methods, m)
		}
		sort.Slice(methods, func(i, j int) bool { return methodOrder[methods[i]] < methodOrder[methods[j]] })

		for _, method := range methods {
			op := ops[method]
			if op.OperationID == "" {
				return nil, fmt.Errorf("%w: %s %s has no operationId", ErrContractLoad, method, tmpl)
			}
			if _, dup := c.byID[op.OperationID]; dup {
				return nil, fmt.Errorf("%w: duplicate operationId %q", ErrContractLoad, op.OperationID)
			}

			security := doc.Security
			if op.Security != nil {
				security = *op.Security
			}

			o := &Operation{
				ID:      op.OperationID,
				Method:  method,
				Path:    tmpl,
				Summary: op.Summary,
				Secured: len(security) > 0,
				route: &routers.Route{
					Spec:      doc,
					Path:      tmpl,
					PathItem:  item,
					Method:    method,
					Operation: op,
				},
			}
			c.ops = append(c.ops, o)
			c.byID[o.ID] = o
		}
	}
	return c, nil
}

// Operations returns the operations sorted by path template, then method.
func (c *Contract) Operations() []*Operation {
	out := make([]*Operation, len(c.ops))
	copy(out, c.ops)
	return out
}

// Operation looks up an operation by id.
func (c *Contract) Operation(id string) (*Operation, bool) {
	o, ok := c.byID[id]
	return o, ok
}

// JSON renders the document for the docs endpoint.
func (c *Contract) JSON() ([]byte, error) {
	return json.Marshal(c.doc)
}
