package okh

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema/okh.schema.json
var manifestSchema string

const manifestSchemaURL = "okh.schema.json"

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(manifestSchemaURL, strings.NewReader(manifestSchema)); err != nil {
			compileErr = fmt.Errorf("adding manifest schema: %w", err)
			return
		}
		compiled, compileErr = c.Compile(manifestSchemaURL)
	})
	return compiled, compileErr
}

// Validate checks a YAML (or JSON) manifest against the OKH schema. Title and
// bom are required.
func Validate(data []byte) error {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing manifest: %w", err)
	}
	if raw == nil {
		return fmt.Errorf("empty manifest")
	}
	// Round-trip through JSON so the validator sees JSON value types.
	js, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("converting manifest: %w", err)
	}
	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(js))
	if err != nil {
		return fmt.Errorf("converting manifest: %w", err)
	}
	s, err := schema()
	if err != nil {
		return err
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("invalid manifest: %w", err)
	}
	return nil
}
