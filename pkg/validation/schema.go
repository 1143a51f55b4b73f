package validation

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema/floonoc_config.schema.json
var defaultSchema []byte

const schemaURL = "https://topgen.local/schema/floonoc_config.schema.json"

// pathSeparator joins instance location tokens in schema error messages
const pathSeparator = " -> "

// SchemaGate checks documents against a compiled JSON Schema (Draft 7).
// A gate is immutable after construction and safe for concurrent use.
type SchemaGate struct {
	schema  *jsonschema.Schema
	raw     json.RawMessage
	printer *message.Printer
}

// DefaultSchemaGate compiles the embedded FlooNoC configuration schema
func DefaultSchemaGate() (*SchemaGate, error) {
	return NewSchemaGate(defaultSchema)
}

// LoadSchemaGate compiles the schema stored at path
func LoadSchemaGate(path string) (*SchemaGate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", path, err)
	}
	gate, err := NewSchemaGate(data)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return gate, nil
}

// NewSchemaGate compiles a JSON Schema document
func NewSchemaGate(schemaJSON []byte) (*SchemaGate, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}

	c := jsonschema.NewCompiler()
	c.DefaultDraft(jsonschema.Draft7)
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	sch, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}

	return &SchemaGate{
		schema:  sch,
		raw:     json.RawMessage(bytes.Clone(schemaJSON)),
		printer: message.NewPrinter(language.English),
	}, nil
}

// Raw returns the schema document as loaded
func (g *SchemaGate) Raw() json.RawMessage {
	return g.raw
}

// Check validates a normalized tree and returns structural errors formatted
// as "<path>: <message>", or "root: <message>" when the error has no path.
func (g *SchemaGate) Check(tree any) []string {
	err := g.schema.Validate(toJSONValue(tree))
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{"root: " + err.Error()}
	}

	leaves := flattenValidationErrors(ve)
	sort.SliceStable(leaves, func(i, j int) bool {
		return compareLocation(leaves[i].InstanceLocation, leaves[j].InstanceLocation) < 0
	})

	errs := make([]string, 0, len(leaves))
	for _, leaf := range leaves {
		errs = append(errs, fmt.Sprintf("%s: %s", formatLocation(leaf.InstanceLocation), leaf.ErrorKind.LocalizedString(g.printer)))
	}
	return errs
}

// flattenValidationErrors collects leaf errors. oneOf and anyOf failures are
// reported once instead of once per rejected branch.
func flattenValidationErrors(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	switch ve.ErrorKind.(type) {
	case *kind.OneOf, *kind.AnyOf:
		return []*jsonschema.ValidationError{ve}
	}
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var flat []*jsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}

func formatLocation(location []string) string {
	if len(location) == 0 {
		return "root"
	}
	return strings.Join(location, pathSeparator)
}

// compareLocation orders instance locations token by token, comparing array
// indices numerically.
func compareLocation(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] == b[i] {
			continue
		}
		ai, aErr := strconv.Atoi(a[i])
		bi, bErr := strconv.Atoi(b[i])
		if aErr == nil && bErr == nil {
			if ai < bi {
				return -1
			}
			return 1
		}
		if a[i] < b[i] {
			return -1
		}
		return 1
	}
	return len(a) - len(b)
}

// toJSONValue converts normalized numbers into json.Number for the validator
func toJSONValue(v any) any {
	switch val := v.(type) {
	case int64:
		return json.Number(strconv.FormatInt(val, 10))
	case uint64:
		return json.Number(strconv.FormatUint(val, 10))
	case int:
		return json.Number(strconv.Itoa(val))
	case float64:
		return json.Number(strconv.FormatFloat(val, 'g', -1, 64))
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = toJSONValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = toJSONValue(item)
		}
		return out
	default:
		return val
	}
}
