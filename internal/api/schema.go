package api

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const webhookSchemaURL = "https://walklog.local/schemas/strava-webhook-event.json"

// webhookEventSchema describes the push event body Strava POSTs to the callback URL.
const webhookEventSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["object_type", "object_id", "aspect_type", "owner_id"],
  "properties": {
    "object_type": {"type": "string", "minLength": 1},
    "object_id": {"type": "integer"},
    "aspect_type": {"type": "string", "minLength": 1},
    "owner_id": {"type": "integer"},
    "subscription_id": {"type": "integer"},
    "event_time": {"type": "integer"},
    "updates": {"type": ["object", "null"]}
  }
}`

type webhookSchema struct {
	schema *jsonschema.Schema
}

func mustWebhookSchema() *webhookSchema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(webhookEventSchema))
	if err != nil {
		panic(fmt.Sprintf("parse webhook schema: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(webhookSchemaURL, doc); err != nil {
		panic(fmt.Sprintf("add webhook schema: %v", err))
	}
	schema, err := compiler.Compile(webhookSchemaURL)
	if err != nil {
		panic(fmt.Sprintf("compile webhook schema: %v", err))
	}
	return &webhookSchema{schema: schema}
}

// Validate checks that body is JSON matching the webhook event schema.
func (s *webhookSchema) Validate(body []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return s.schema.Validate(inst)
}
