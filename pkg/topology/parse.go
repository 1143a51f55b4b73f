package topology

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrUnsupportedValue is returned when a tree holds a value with no JSON equivalent
	ErrUnsupportedValue = errors.New("unsupported value")

	// ErrUnexpectedType is returned when Decode finds a value of the wrong shape
	ErrUnexpectedType = errors.New("unexpected type")
)

// ParseYAML parses raw YAML (or JSON) into a normalized tree.
//
// The tree only contains map[string]any, []any, string, bool, nil, int64,
// uint64 and float64 values.
func ParseYAML(data []byte) (any, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return Normalize(raw)
}

// ParseJSON parses raw JSON into a normalized tree, preserving integer precision
func ParseJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return Normalize(raw)
}

// Normalize converts a decoded YAML or JSON value into a normalized tree
func Normalize(v any) (any, error) {
	switch val := v.(type) {
	case nil, string, bool, int64, uint64:
		return val, nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case uint:
		return uint64(val), nil
	case float32:
		return normalizeFloat(float64(val))
	case float64:
		return normalizeFloat(val)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		if u, err := strconv.ParseUint(val.String(), 10, 64); err == nil {
			return u, nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: number %s", ErrUnsupportedValue, val)
		}
		return normalizeFloat(f)
	case time.Time:
		return val.Format(time.RFC3339Nano), nil
	case []byte:
		return string(val), nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			n, err := Normalize(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			n, err := Normalize(item)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			n, err := Normalize(item)
			if err != nil {
				return nil, err
			}
			out[fmt.Sprint(k)] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

func normalizeFloat(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedValue, f)
	}
	return f, nil
}

// Decode converts a normalized tree into a Document.
//
// Keys are matched exactly as written; "Addr_Range" is an unknown key, not
// addr_range. Callers are expected to run the schema gate first; Decode only
// reports values whose shape cannot be mapped onto the typed model. Null
// values are treated as absent.
func Decode(tree any) (*Document, error) {
	root, err := asObject(tree, "root")
	if err != nil {
		return nil, err
	}

	doc := &Document{}
	if v := root["protocols"]; v != nil {
		if doc.Protocols, err = asObject(v, "protocols"); err != nil {
			return nil, err
		}
	}

	err = eachObject(root["endpoints"], "endpoints", func(path string, obj map[string]any) error {
		ep, err := decodeEndpoint(path, obj)
		if err != nil {
			return err
		}
		doc.Endpoints = append(doc.Endpoints, *ep)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachObject(root["routers"], "routers", func(path string, obj map[string]any) error {
		name, err := optionalString(obj, "name", path)
		doc.Routers = append(doc.Routers, Router{Name: name})
		return err
	})
	if err != nil {
		return nil, err
	}

	err = eachObject(root["connections"], "connections", func(path string, obj map[string]any) error {
		from, err := optionalString(obj, "from", path)
		if err != nil {
			return err
		}
		to, err := optionalString(obj, "to", path)
		doc.Connections = append(doc.Connections, Connection{From: from, To: to})
		return err
	})
	if err != nil {
		return nil, err
	}

	if v := root["top"]; v != nil {
		top, err := asObject(v, "top")
		if err != nil {
			return nil, err
		}
		if doc.Top.ExportAXI, err = stringList(top["export_axi"], "top -> export_axi"); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func decodeEndpoint(path string, obj map[string]any) (*Endpoint, error) {
	var (
		ep  Endpoint
		err error
	)
	if ep.Name, err = optionalString(obj, "name", path); err != nil {
		return nil, err
	}
	if ep.Type, err = optionalString(obj, "type", path); err != nil {
		return nil, err
	}
	if ep.Protocol, err = optionalString(obj, "protocol", path); err != nil {
		return nil, err
	}

	if v := obj["addr_range"]; v != nil {
		items, ok := v.([]any)
		if !ok {
			return nil, typeError(path+" -> addr_range", "list", v)
		}
		rng := make(AddrRange, 0, len(items))
		for i, item := range items {
			b, err := boundFromTree(item)
			if err != nil {
				return nil, fmt.Errorf("%s -> addr_range -> %d: %w", path, i, err)
			}
			rng = append(rng, b)
		}
		ep.AddrRange = &rng
	}

	err = eachObject(obj["chimneys"], path+" -> chimneys", func(cpath string, c map[string]any) error {
		name, err := optionalString(c, "name", cpath)
		ep.Chimneys = append(ep.Chimneys, Chimney{Name: name})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &ep, nil
}

// boundFromTree converts a normalized scalar into an address bound
func boundFromTree(v any) (Bound, error) {
	switch val := v.(type) {
	case string:
		return StringBound(val), nil
	case int64:
		return Bound{raw: strconv.FormatInt(val, 10)}, nil
	case uint64:
		return IntBound(val), nil
	case float64:
		return Bound{raw: strconv.FormatFloat(val, 'f', -1, 64)}, nil
	default:
		return Bound{}, fmt.Errorf("%w: address bound must be an integer or string, got %s", ErrUnexpectedType, typeName(v))
	}
}

func asObject(v any, path string) (map[string]any, error) {
	if v == nil {
		return map[string]any{}, nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, typeError(path, "object", v)
	}
	return obj, nil
}

// eachObject calls fn for every element of a list of objects
func eachObject(v any, path string, fn func(path string, obj map[string]any) error) error {
	if v == nil {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return typeError(path, "list", v)
	}
	for i, item := range items {
		itemPath := fmt.Sprintf("%s -> %d", path, i)
		obj, ok := item.(map[string]any)
		if !ok {
			return typeError(itemPath, "object", item)
		}
		if err := fn(itemPath, obj); err != nil {
			return err
		}
	}
	return nil
}

func optionalString(obj map[string]any, key, path string) (string, error) {
	v := obj[key]
	if v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", typeError(path+" -> "+key, "string", v)
	}
	return s, nil
}

func stringList(v any, path string) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, typeError(path, "list", v)
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, typeError(fmt.Sprintf("%s -> %d", path, i), "string", item)
		}
		out = append(out, s)
	}
	return out, nil
}

func typeError(path, want string, got any) error {
	return fmt.Errorf("%w: %s: expected %s, got %s", ErrUnexpectedType, path, want, typeName(got))
}

func typeName(v any) string {
	switch v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "list"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int64, uint64, float64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
