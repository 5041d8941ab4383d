// Package schema embeds the JSON schema of replay scenarios.
package schema

import _ "embed"

// Scenario is the draft-07 JSON schema every replay scenario must satisfy.
//
//go:embed scenario.schema.json
var Scenario []byte
