package encoders

import (
	"github.com/elliotchance/orderedmap/v3"
	"gopkg.in/yaml.v3"
)

// EncodeYamlRow builds a YAML mapping node for one row, keys in insertion
// order.
func EncodeYamlRow(row *orderedmap.OrderedMap[string, any]) (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}

	for k, v := range row.AllFromFront() {
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: k}
		val := &yaml.Node{}
		if err := val.Encode(v); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, key, val)
	}
	return node, nil
}
