// SPDX-License-Identifier: Apache-2.0

package repo

import (
	_ "embed"
	"bytes"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	k8syaml "sigs.k8s.io/yaml"
)

//go:embed schema.json
var migrationSchemaJSON []byte

var migrationSchema = compileMigrationSchema()

func compileMigrationSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(migrationSchemaJSON))
	if err != nil {
		panic(fmt.Sprintf("repo: decoding embedded migration schema: %v", err))
	}
	if err := c.AddResource("schema.json", doc); err != nil {
		panic(fmt.Sprintf("repo: compiling embedded migration schema: %v", err))
	}
	sch, err := c.Compile("schema.json")
	if err != nil {
		panic(fmt.Sprintf("repo: compiling embedded migration schema: %v", err))
	}
	return sch
}

// MalformedRevisionError reports a migration YAML document that fails
// JSON-Schema validation against the change-union grammar of §6, giving a
// precise path to the offending key rather than an ad hoc field check.
type MalformedRevisionError struct {
	Cause error
}

func (e MalformedRevisionError) Error() string {
	return fmt.Sprintf("malformed migration: %s", e.Cause)
}

func (e MalformedRevisionError) Unwrap() error { return e.Cause }

// validateMigrationYAML converts data to JSON and validates it against the
// embedded migration schema before ParseMigration hands it to yaml.v3's
// typed unmarshaler, so an unrecognized or missing field is reported with
// a schema path instead of a generic decode error.
func validateMigrationYAML(data []byte) error {
	jsonBytes, err := k8syaml.YAMLToJSON(data)
	if err != nil {
		return MalformedRevisionError{Cause: err}
	}

	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(jsonBytes))
	if err != nil {
		return MalformedRevisionError{Cause: err}
	}

	if err := migrationSchema.Validate(v); err != nil {
		return MalformedRevisionError{Cause: trimSchemaError(err)}
	}
	return nil
}

// trimSchemaError drops the verbose schema-URL prefix jsonschema.Validate's
// error carries, keeping just the part naming the offending instance path.
func trimSchemaError(err error) error {
	msg := err.Error()
	if i := strings.Index(msg, "\n"); i >= 0 {
		return fmt.Errorf("%s", strings.TrimSpace(msg[i+1:]))
	}
	return err
}
