package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/canopya/canopya/config"
)

// SchemaCmd generates a JSON Schema describing the config file format.
type SchemaCmd struct {
	Output string `short:"o" help:"Write schema to file instead of stdout." type:"path"`
}

func (c *SchemaCmd) Run(cli *CLI) error {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(&config.Config{})
	schema.Title = "Canopya Configuration"
	schema.Description = "Configuration schema for the Canopya assistant"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	if c.Output != "" {
		if err := os.WriteFile(c.Output, data, 0o644); err != nil {
			return fmt.Errorf("failed to write schema: %w", err)
		}
		fmt.Printf("Schema written to %s\n", c.Output)
		return nil
	}
	fmt.Println(string(data))
	return nil
}
