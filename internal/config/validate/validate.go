// Package validate checks configuration documents against JSON schemas.
package validate

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/global_config.schema.json
var globalConfigSchema []byte

// GlobalConfigSchemaName is the resource name the global schema is
// registered under.
const GlobalConfigSchemaName = "global_config.schema.json"

// ValidateAgainstSchema compiles schema under name and validates the JSON
// document data against it. ref selects a sub-schema, e.g. "#/definitions/source".
func ValidateAgainstSchema(name string, schema, data []byte, ref string) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(schema)); err != nil {
		return fmt.Errorf("loading schema %s: %w", name, err)
	}
	compiled, err := compiler.Compile(name + ref)
	if err != nil {
		return fmt.Errorf("compiling schema %s: %w", name, err)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := compiled.Validate(doc); err != nil {
		return fmt.Errorf("schema validation against %s failed: %w", name, err)
	}
	return nil
}

// ValidateGlobalConfigJSON validates a global configuration document.
func ValidateGlobalConfigJSON(data []byte) error {
	return ValidateAgainstSchema(GlobalConfigSchemaName, globalConfigSchema, data, "")
}
