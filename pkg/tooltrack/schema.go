package tooltrack

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
)

// GenerateSchema reflects a Go struct type into a JSON schema describing
// its fields, used to advertise built-in checkpoint tool arguments to the
// model client.
func GenerateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}
	var zero T
	schema := reflector.Reflect(&zero)

	out := make(map[string]any)
	b, err := schema.MarshalJSON()
	if err != nil {
		return out
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out
	}
	return out
}

// DecodeArgs decodes an untyped argument map (the engine-facing
// map[string]any signature required by spec.md §6) into a typed struct a
// Go tool handler can work with directly.
func DecodeArgs[T any](args map[string]any) (T, error) {
	var out T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
		TagName:          "json",
	})
	if err != nil {
		return out, fmt.Errorf("tooltrack: decode args: %w", err)
	}
	if err := decoder.Decode(args); err != nil {
		return out, fmt.Errorf("tooltrack: decode args: %w", err)
	}
	return out, nil
}
