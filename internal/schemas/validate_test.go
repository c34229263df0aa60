package schemas

import (
	"errors"
	"testing"

	schemafiles "github.com/jonathan/content-pipeline/schemas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ChatCompletionResponse(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{"valid", `{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"hi"}}],"usage":{"total_tokens":12}}`, false},
		{"empty choices are structurally valid", `{"choices":[]}`, false},
		{"null content", `{"choices":[{"message":{"role":"assistant","content":null}}]}`, false},
		{"missing choices", `{"id":"x"}`, true},
		{"choices not an array", `{"choices":"nope"}`, true},
		{"choice without message", `{"choices":[{"index":0}]}`, true},
		{"negative tokens", `{"choices":[],"usage":{"total_tokens":-1}}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(schemafiles.ChatCompletionResponse, []byte(tt.doc))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.NotEmpty(t, verr.Errors)
			assert.NotEmpty(t, verr.Summary())
		})
	}
}

func TestValidate_PipelineRequest(t *testing.T) {
	valid := `{"client_id":"3f0e1c2a-8d4b-4c1e-9a5f-0b6d7e8f9a10","content_type":"linkedin_post","prompt":"Write","context":{"audience":"CFOs"}}`
	assert.NoError(t, Validate(schemafiles.PipelineRequest, []byte(valid)))

	err := Validate(schemafiles.PipelineRequest, []byte(`{"client_id":"not-a-uuid","prompt":"Write"}`))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.GreaterOrEqual(t, len(verr.Errors), 2)

	err = Validate(schemafiles.PipelineRequest, []byte(`{"client_id":"3f0e1c2a-8d4b-4c1e-9a5f-0b6d7e8f9a10","content_type":"x","prompt":"y","context":{"n":1,"cta":true,"tags":["a"]}}`))
	assert.NoError(t, err)

	err = Validate(schemafiles.PipelineRequest, []byte(`{"client_id":"3f0e1c2a-8d4b-4c1e-9a5f-0b6d7e8f9a10","content_type":"x","prompt":"y","context":"audience=CFOs"}`))
	assert.Error(t, err)
}

func TestValidate_MalformedDocument(t *testing.T) {
	err := Validate(schemafiles.ChatCompletionResponse, []byte(`{not json`))
	require.Error(t, err)
	var verr *ValidationError
	assert.False(t, errors.As(err, &verr))
}

func TestValidate_UnknownSchema(t *testing.T) {
	err := Validate("missing.schema.json", []byte(`{}`))
	var loadErr *SchemaLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "missing.schema.json", loadErr.Path)
}

func TestValidateJSONString(t *testing.T) {
	schema := `{"type":"object","required":["name"],"properties":{"name":{"type":"string"}}}`

	assert.NoError(t, ValidateJSONString(schema, `{"name":"ok"}`))

	err := ValidateJSONString(schema, `{"name":5}`)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "name", verr.Errors[0].Field)

	err = ValidateJSONString(`{"type": 12}`, `{}`)
	var loadErr *SchemaLoadError
	assert.True(t, errors.As(err, &loadErr))
}
