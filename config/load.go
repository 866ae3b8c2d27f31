package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/gklyne/annalist-sub001/errors"
)

// configSchema is the JSON Schema every loaded configuration document is
// checked against before decoding.
const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["site"],
  "additionalProperties": false,
  "properties": {
    "version": {"type": "string"},
    "site": {
      "type": "object",
      "required": ["root_dir", "base_url"],
      "additionalProperties": false,
      "properties": {
        "root_dir": {"type": "string", "minLength": 1},
        "base_url": {"type": "string", "minLength": 1},
        "context_scan_limit": {"type": "integer", "minimum": 0}
      }
    },
    "log": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "level": {"type": "string", "enum": ["debug", "info", "warn", "error"]},
        "format": {"type": "string", "enum": ["text", "json"]}
      }
    }
  }
}`

// Load reads a configuration file, schema-checks it, and validates it.
// YAML is detected by the .yaml / .yml extension; anything else is read
// as JSON.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapNotFound(errors.ErrNotFound, "Config", "Load",
				fmt.Sprintf("read configuration file %s", path))
		}
		return nil, errors.Wrap(err, "Config", "Load", "read configuration file")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON decodes and validates a JSON configuration document.
func ParseJSON(data []byte) (*Config, error) {
	if err := checkSchema(data); err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WrapLoad(errors.ErrMalformedData, "Config", "ParseJSON",
			fmt.Sprintf("decode configuration: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseYAML decodes and validates a YAML configuration document. The
// document is converted to JSON for the schema check, so both formats are
// held to the same schema.
func ParseYAML(data []byte) (*Config, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.WrapLoad(errors.ErrMalformedData, "Config", "ParseYAML",
			fmt.Sprintf("decode configuration: %v", err))
	}
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.WrapLoad(errors.ErrMalformedData, "Config", "ParseYAML",
			fmt.Sprintf("convert configuration to JSON: %v", err))
	}
	return ParseJSON(jsonData)
}

// checkSchema validates a JSON configuration document against the
// embedded schema.
func checkSchema(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(configSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return errors.WrapLoad(errors.ErrMalformedData, "Config", "checkSchema",
			fmt.Sprintf("validate configuration: %v", err))
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
		}
		return errors.WrapValidation(errors.ErrMalformedData, "Config", "checkSchema",
			"configuration does not match schema: "+strings.Join(msgs, "; "))
	}
	return nil
}
