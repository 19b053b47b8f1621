// Package api содержит встроенную OpenAPI-спецификацию сервиса.
package api

import _ "embed"

//go:embed openapi.json
var OpenAPISpec []byte
