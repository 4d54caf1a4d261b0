// Package api carries the OpenAPI contract of the service.
package api

import _ "embed"

// Contract is the OpenAPI 3 document every request is validated against.
//
//go:embed openapi.yaml
var Contract []byte
