package plan

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseSpecYAML decodes a YAML containment document, keeping key order.
func ParseSpecYAML(data []byte) (*Spec, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode containment: %w", err)
	}
	v, err := FromYAMLNode(&doc)
	if err != nil {
		return nil, err
	}
	return ParseSpec(v)
}

// FromYAMLNode converts a YAML node into the dynamic shapes ParseSpec and
// ParseOptions accept: mappings become Ordered, sequences []any, scalars
// their natural Go value.
func FromYAMLNode(n *yaml.Node) (any, error) {
	if n == nil {
		return nil, nil
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return FromYAMLNode(n.Content[0])
	case yaml.MappingNode:
		out := make(Ordered, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", key.Line)
			}
			val, err := FromYAMLNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			out = append(out, KV{Key: key.Value, Value: val})
		}
		return out, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			val, err := FromYAMLNode(item)
			if err != nil {
				return nil, err
			}
			out = append(out, val)
		}
		return out, nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	case yaml.AliasNode:
		return FromYAMLNode(n.Alias)
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node", n.Line)
	}
}
