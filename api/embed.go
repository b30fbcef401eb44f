// Package api embeds the published HTTP and event contracts of the service.
package api

import _ "embed"

// OpenAPI is the HTTP contract served under /api/v1.
//
//go:embed openapi.yaml
var OpenAPI []byte

// AsyncAPI describes the CloudEvents written to the outbox.
//
//go:embed asyncapi.yaml
var AsyncAPI []byte
