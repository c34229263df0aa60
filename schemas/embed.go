// Package schemas holds the JSON Schema documents used to validate gateway
// responses and API payloads.
package schemas

import "embed"

// Schema file names.
const (
	ChatCompletionResponse = "chat_completion_response.schema.json"
	PipelineRequest        = "pipeline_request.schema.json"
)

// FS contains every *.schema.json file in this directory.
//
//go:embed *.schema.json
var FS embed.FS
