package parser

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/c360/coredata/errors"
)

// Keys used for non-element content in the XML tree.
const (
	AttrPrefix = "@"
	TextKey    = "#text"
)

// maxXMLDepth bounds element nesting.
const maxXMLDepth = 256

// XMLDecoder maps XML documents onto a tree:
//
//   - an element becomes an object keyed by its local name
//   - attributes become "@name" keys, namespace declarations "@xmlns" or
//     "@xmlns:prefix"
//   - an element with only text and no attributes collapses to the string
//   - other text is kept under "#text"
//   - repeated sibling elements become an array in document order
//
// The document is wrapped under its root element name. Input must already be
// UTF-8; the encoding named in the XML declaration is ignored.
type XMLDecoder struct{}

// NewXMLDecoder creates a new XML decoder
func NewXMLDecoder() *XMLDecoder {
	return &XMLDecoder{}
}

// Format returns the format name
func (d *XMLDecoder) Format() string {
	return "xml"
}

type xmlNode struct {
	name   string
	fields map[string]any
	text   strings.Builder
}

func (n *xmlNode) add(name string, value any) {
	existing, ok := n.fields[name]
	if !ok {
		n.fields[name] = value
		return
	}
	if list, ok := existing.(repeated); ok {
		n.fields[name] = append(list, value)
		return
	}
	n.fields[name] = repeated{existing, value}
}

// repeated marks arrays built from sibling elements so that a third sibling
// appends instead of nesting.
type repeated []any

func (n *xmlNode) value() any {
	text := strings.TrimSpace(n.text.String())
	if len(n.fields) == 0 {
		return text
	}
	out := make(map[string]any, len(n.fields)+1)
	for k, v := range n.fields {
		if list, ok := v.(repeated); ok {
			v = []any(list)
		}
		out[k] = v
	}
	if text != "" {
		out[TextKey] = text
	}
	return out
}

func attrKey(a xml.Attr) string {
	switch {
	case a.Name.Space == "xmlns":
		return AttrPrefix + "xmlns:" + a.Name.Local
	case a.Name.Space == "" && a.Name.Local == "xmlns":
		return AttrPrefix + "xmlns"
	default:
		return AttrPrefix + a.Name.Local
	}
}

// Decode parses a single XML document.
func (d *XMLDecoder) Decode(data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyData
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var (
		stack []*xmlNode
		root  map[string]any
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WrapInvalid(err, "XMLDecoder", "Decode", "xml parsing")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil {
				return nil, errors.WrapInvalid(ErrMultipleRoots, "XMLDecoder", "Decode", "xml parsing")
			}
			if len(stack) >= maxXMLDepth {
				return nil, errors.WrapInvalid(ErrTooDeep, "XMLDecoder", "Decode", "xml parsing")
			}
			node := &xmlNode{name: t.Name.Local, fields: make(map[string]any, len(t.Attr))}
			for _, a := range t.Attr {
				node.fields[attrKey(a)] = a.Value
			}
			stack = append(stack, node)

		case xml.CharData:
			if len(stack) == 0 {
				if len(bytes.TrimSpace(t)) > 0 {
					return nil, errors.WrapInvalid(fmt.Errorf("text outside root element"),
						"XMLDecoder", "Decode", "xml parsing")
				}
				continue
			}
			stack[len(stack)-1].text.Write(t)

		case xml.EndElement:
			node := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				root = map[string]any{node.name: node.value()}
				continue
			}
			stack[len(stack)-1].add(node.name, node.value())
		}
	}

	if root == nil {
		return nil, errors.WrapInvalid(ErrNoRootElement, "XMLDecoder", "Decode", "xml parsing")
	}
	return root, nil
}
