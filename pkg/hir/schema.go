package hir

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// wireSchema is the JSON Schema for the wire shape of spec §6: required
// top-level fields, the closed node "kind" enum, and the closed operator
// enum. It is a pre-parse gate — structural/dimensional admissibility is
// still the Checker's job — mirroring the teacher's firewall pre-parse
// schema gate in pkg/firewall/firewall.go.
const wireSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["version", "inputs", "nodes", "output_node", "declared_output_pds"],
  "properties": {
    "version": {"type": "string"},
    "inputs": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["dtype", "pds"],
        "properties": {
          "dtype": {"const": "f64"},
          "pds": {"type": "string"}
        }
      }
    },
    "nodes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "kind"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "kind": {"enum": ["input", "const", "op"]},
          "name": {"type": "string"},
          "value": {"type": "number"},
          "op": {"enum": ["add", "sub", "mul", "safe_div", "neg", "abs", "clip", "log", "exp"]},
          "args": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "output_node": {"type": "string"},
    "declared_output_pds": {"type": "string"},
    "metadata": {"type": "object"}
  }
}`

var (
	compiledSchemaOnce sync.Once
	compiledSchema     *jsonschema.Schema
	compiledSchemaErr  error
)

func loadSchema() (*jsonschema.Schema, error) {
	compiledSchemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		const url = "https://hircompile.local/hir.schema.json"
		if err := c.AddResource(url, strings.NewReader(wireSchema)); err != nil {
			compiledSchemaErr = fmt.Errorf("hir: schema load failed: %w", err)
			return
		}
		compiledSchema, compiledSchemaErr = c.Compile(url)
	})
	return compiledSchema, compiledSchemaErr
}

// ValidateWireShape checks raw JSON against the HIR wire schema, ahead of
// attempting to build the typed model. A document can pass this gate and
// still be rejected by the Admissibility Checker (e.g. a cycle, or a
// dimensional mismatch) — this only guards the shape.
func ValidateWireShape(v any) error {
	schema, err := loadSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("hir: wire shape validation failed: %w", err)
	}
	return nil
}
