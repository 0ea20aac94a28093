package transcript

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	envelopeSchemaURL = "ariacut://transcript/envelope.json"
	segmentSchemaURL  = "ariacut://transcript/segment.json"
)

const envelopeSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array"
}`

const segmentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "index": {"type": ["integer", "string", "null"]},
    "start": {"type": ["string", "number"]},
    "end": {"type": ["string", "number", "null"]},
    "timestamp": {"type": ["string", "number"]},
    "text": {"type": ["string", "null"]}
  },
  "anyOf": [
    {"required": ["start"]},
    {"required": ["timestamp"]}
  ]
}`

type schemas struct {
	envelope *jsonschema.Schema
	segment  *jsonschema.Schema
}

func compileSchemas() (*schemas, error) {
	compiler := jsonschema.NewCompiler()
	for url, doc := range map[string]string{
		envelopeSchemaURL: envelopeSchema,
		segmentSchemaURL:  segmentSchema,
	} {
		if err := compiler.AddResource(url, strings.NewReader(doc)); err != nil {
			return nil, fmt.Errorf("add schema resource %s: %w", url, err)
		}
	}
	envelope, err := compiler.Compile(envelopeSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile envelope schema: %w", err)
	}
	segment, err := compiler.Compile(segmentSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile segment schema: %w", err)
	}
	return &schemas{envelope: envelope, segment: segment}, nil
}
