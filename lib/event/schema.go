// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Payload schemas, keyed by type. Task and message payloads mirror the
// documents the CRUD API returns, so only the identifying fields are
// required and additional properties are allowed.
var payloadSchemas = map[Type]string{
	TaskCreated: `{
		"type": "object",
		"required": ["id", "title"],
		"properties": {
			"id": {"type": ["string", "integer"]},
			"title": {"type": "string", "minLength": 1},
			"status": {"type": "string"},
			"priority": {"type": "string"}
		}
	}`,
	TaskUpdated: `{
		"type": "object",
		"required": ["id"],
		"properties": {
			"id": {"type": ["string", "integer"]},
			"status": {"type": "string"},
			"priority": {"type": "string"}
		}
	}`,
	TaskDeleted: `{
		"type": "object",
		"required": ["id"],
		"properties": {"id": {"type": ["string", "integer"]}}
	}`,
	MessageCreated: `{
		"type": "object",
		"required": ["id", "sender", "content"],
		"properties": {
			"id": {"type": ["string", "integer"]},
			"sender": {"type": "string", "minLength": 1},
			"content": {"type": "string"}
		}
	}`,
	PresenceOnline:  presenceSchema,
	PresenceOffline: presenceSchema,
}

const presenceSchema = `{
	"type": "object",
	"required": ["userId"],
	"properties": {
		"userId": {"type": "string", "minLength": 1},
		"at": {"type": "string"}
	}
}`

var compiledSchemas = compileSchemas()

func compileSchemas() map[Type]*gojsonschema.Schema {
	compiled := make(map[Type]*gojsonschema.Schema, len(payloadSchemas))
	for eventType, source := range payloadSchemas {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
		if err != nil {
			panic(fmt.Sprintf("event: compiling payload schema for %s: %v", eventType, err))
		}
		compiled[eventType] = schema
	}
	return compiled
}

// validatePayload checks payload against the schema for eventType.
// Every type requires a payload.
func validatePayload(eventType Type, payload []byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("%w: %s requires a payload", ErrMalformed, eventType)
	}
	schema, ok := compiledSchemas[eventType]
	if !ok {
		return fmt.Errorf("%w: no payload schema for %q", ErrMalformed, eventType)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return fmt.Errorf("%w: payload is not JSON: %v", ErrMalformed, err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, problem := range result.Errors() {
		problems = append(problems, problem.String())
	}
	return fmt.Errorf("%w: %s payload: %s", ErrMalformed, eventType, strings.Join(problems, "; "))
}
