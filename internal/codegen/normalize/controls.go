// Package normalize turns the raw files of one harvested release into the
// typed model the emitter renders.
package normalize

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/Alia5/camerameta/internal/codegen/harvest"
	"github.com/Alia5/camerameta/internal/codegen/meta"
)

type rawControl struct {
	Type        *string   `yaml:"type"`
	Description *string   `yaml:"description"`
	Direction   string    `yaml:"direction"`
	Draft       bool      `yaml:"draft"`
	Size        yaml.Node `yaml:"size"`
	Enum        []rawEnum `yaml:"enum"`
}

type rawEnum struct {
	Name        *string `yaml:"name"`
	Value       *int64  `yaml:"value"`
	Description *string `yaml:"description"`
}

// Controls parses control or property schema files. Files are read in the
// given order, documents in file order and entries in document order.
// Duplicate names are kept.
func Controls(files []harvest.RawFile) ([]meta.Control, error) {
	var out []meta.Control
	for _, f := range files {
		dec := yaml.NewDecoder(bytes.NewReader(f.Data))
		for {
			var doc yaml.Node
			err := dec.Decode(&doc)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("%s: %w", f.Name, err)
			}
			controls, err := documentControls(&doc)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", f.Name, err)
			}
			out = append(out, controls...)
		}
	}
	return out, nil
}

func documentControls(doc *yaml.Node) ([]meta.Control, error) {
	root := documentRoot(doc)
	if root == nil {
		return nil, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: document is not a mapping", root.Line)
	}

	var vendor string
	if v := mappingValue(root, "vendor"); v != nil {
		if err := v.Decode(&vendor); err != nil {
			return nil, fmt.Errorf("line %d: vendor: %w", v.Line, err)
		}
	}

	list := mappingValue(root, "controls")
	if list == nil {
		return nil, fmt.Errorf("line %d: missing controls list", root.Line)
	}
	if list.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: controls is not a list", list.Line)
	}

	var out []meta.Control
	for _, item := range list.Content {
		if item.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("line %d: control entry is not a mapping", item.Line)
		}
		for i := 0; i+1 < len(item.Content); i += 2 {
			c, err := parseControl(item.Content[i], item.Content[i+1], vendor)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
	}
	return out, nil
}

func parseControl(key, val *yaml.Node, docVendor string) (meta.Control, error) {
	name := key.Value
	c := meta.Control{Name: name}
	fail := func(format string, args ...any) (meta.Control, error) {
		return c, fmt.Errorf("line %d: control %s: %s", key.Line, name, fmt.Sprintf(format, args...))
	}

	var raw rawControl
	if err := val.Decode(&raw); err != nil {
		return fail("%v", err)
	}
	if raw.Type == nil {
		return fail("missing type")
	}
	if raw.Description == nil {
		return fail("missing description")
	}
	typ, err := meta.ParseControlType(*raw.Type)
	if err != nil {
		return fail("%v", err)
	}

	c.Type = typ
	c.Description = *raw.Description
	c.Direction = raw.Direction
	switch {
	case docVendor != "":
		c.Vendor = docVendor
	case raw.Draft:
		c.Vendor = meta.DraftVendor
	default:
		c.Vendor = meta.DefaultVendor
	}

	if c.Size, err = parseSize(&raw.Size); err != nil {
		return fail("%v", err)
	}

	for _, e := range raw.Enum {
		if e.Name == nil || e.Value == nil || e.Description == nil {
			return fail("enum value needs name, value and description")
		}
		c.Enum = append(c.Enum, meta.EnumValue{Name: *e.Name, Value: *e.Value, Description: *e.Description})
	}
	return c, nil
}

// parseSize reads `size: [2]`, `size: [3, 3]` or `size: [n]`. Integers are
// fixed dimensions, strings dynamic ones. An absent size is a scalar.
func parseSize(n *yaml.Node) ([]meta.ControlSize, error) {
	if n.Kind == 0 || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null") {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("size is not a list")
	}

	size := make([]meta.ControlSize, 0, len(n.Content))
	for _, d := range n.Content {
		if d.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("size dimension at line %d is not a scalar", d.Line)
		}
		switch d.ShortTag() {
		case "!!int":
			var l int
			if err := d.Decode(&l); err != nil {
				return nil, fmt.Errorf("size dimension: %w", err)
			}
			if l <= 0 {
				return nil, fmt.Errorf("size dimension must be positive, got %d", l)
			}
			size = append(size, meta.Fixed(l))
		case "!!str":
			size = append(size, meta.Dynamic)
		default:
			return nil, fmt.Errorf("size dimension %q is neither a length nor a variable", d.Value)
		}
	}
	if err := meta.ValidateSize(size); err != nil {
		return nil, err
	}
	return size, nil
}

func documentRoot(doc *yaml.Node) *yaml.Node {
	if doc.Kind != yaml.DocumentNode {
		return doc
	}
	if len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null" {
		return nil
	}
	return root
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}
