// Package workload drives the hash and tree maps with scripted and random
// operations, checks them against a reference map, and renders the results.
package workload

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/assoc/internal/workload/schema"
)

// Operation names accepted in scenarios.
const (
	OpPut         = "put"
	OpPutIfAbsent = "put_if_absent"
	OpGet         = "get"
	OpContains    = "contains"
	OpRemove      = "remove"
	OpLen         = "len"
	OpClear       = "clear"
	OpVerify      = "verify"
	OpFirst       = "first"
	OpLast        = "last"
	OpFloor       = "floor"
	OpCeiling     = "ceiling"
	OpLower       = "lower"
	OpHigher      = "higher"
	OpPollFirst   = "poll_first"
	OpPollLast    = "poll_last"
)

// ErrInvalidScenario is returned when a scenario does not satisfy the schema.
var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario is a scripted list of operations against one map.
type Scenario struct {
	Name string  `json:"name,omitempty"`
	Map  MapSpec `json:"map"`
	Ops  []Op    `json:"ops"`
}

// Op is one scripted operation. Key and Value are ignored by operations that take none.
type Op struct {
	Op    string `json:"op"`
	Value string `json:"value,omitempty"`
	Key   int    `json:"key,omitempty"`
}

// String renders the operation with its arguments.
func (o Op) String() string {
	switch o.Op {
	case OpPut, OpPutIfAbsent:
		return fmt.Sprintf("%s %d=%s", o.Op, o.Key, o.Value)
	case OpGet, OpContains, OpRemove, OpFloor, OpCeiling, OpLower, OpHigher:
		return fmt.Sprintf("%s %d", o.Op, o.Key)
	default:
		return o.Op
	}
}

// ParseScenario validates data against the scenario schema and decodes it.
func ParseScenario(data []byte) (*Scenario, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schema.Scenario),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, verr := range result.Errors() {
			details = append(details, verr.Field()+": "+verr.Description())
		}

		return nil, fmt.Errorf("%w: %s", ErrInvalidScenario, strings.Join(details, "; "))
	}

	var scenario Scenario

	err = json.Unmarshal(data, &scenario)
	if err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenario reads and parses the scenario file at path.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	return ParseScenario(data)
}
