package encoders

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/elliotchance/orderedmap/v3"
)

// OrderedJsonEncoder encodes a row as a JSON object whose keys keep their
// insertion order.
type OrderedJsonEncoder struct {
	indent string
}

// NewOrderedJsonEncoder returns an encoder that indents keys with indent.
func NewOrderedJsonEncoder(indent string) OrderedJsonEncoder {
	return OrderedJsonEncoder{indent: indent}
}

// EncodeRow renders row as an indented object. The closing brace is indented
// one level less than the keys so rows sit inside a top-level array.
func (o OrderedJsonEncoder) EncodeRow(row *orderedmap.OrderedMap[string, any]) ([]byte, error) {
	if row.Len() == 0 {
		return []byte("{}"), nil
	}

	var buf bytes.Buffer
	buf.Grow(row.Len() * 32)
	buf.WriteString("{\n")

	i := 0
	for k, v := range row.AllFromFront() {
		if i > 0 {
			buf.WriteString(",\n")
		}
		buf.WriteString(o.indent + o.indent)

		key, err := marshalWithoutHTMLEscape(k)
		if err != nil {
			return nil, fmt.Errorf("error marshaling key %q: %w", k, err)
		}
		buf.Write(key)
		buf.WriteString(": ")

		val, err := marshalWithoutHTMLEscape(v)
		if err != nil {
			return nil, fmt.Errorf("error marshaling value for key %q: %w", k, err)
		}
		buf.Write(val)
		i++
	}

	buf.WriteString("\n" + o.indent + "}")
	return buf.Bytes(), nil
}

func marshalWithoutHTMLEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
