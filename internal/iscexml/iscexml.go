// Package iscexml reads the XML metadata files ISCE writes next to its
// geocoded products. The documents nest <component> and <property>
// elements, each identified by a name attribute:
//
//	<imageFile>
//	  <property name="width"><value>1200</value></property>
//	  <component name="coordinate1">
//	    <property name="delta"><value>0.000833</value></property>
//	    ...
//	  </component>
//	</imageFile>
//
// Only structure is interpreted; unknown elements are kept in the tree
// and otherwise ignored.
package iscexml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrEmpty is returned for a document without a root element.
var ErrEmpty = errors.New("empty XML document")

// Node is one element of the document tree.
type Node struct {
	Tag      string
	Name     string // value of the name attribute, if any
	Text     string // trimmed character data directly inside the element
	Children []*Node
}

// Document is a parsed metadata file.
type Document struct {
	Root *Node
}

// Value is a property value, typed leniently.
type Value struct {
	Raw      string
	Number   float64
	IsNumber bool
}

func newValue(raw string) Value {
	v := Value{Raw: raw}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		v.Number, v.IsNumber = f, true
	}
	return v
}

// Values maps property names of a component to their values.
type Values map[string]Value

// Float returns the numeric value of key.
func (v Values) Float(key string) (float64, bool) {
	val, ok := v[key]
	if !ok || !val.IsNumber {
		return 0, false
	}
	return val.Number, true
}

// Missing returns the keys that are absent or not numeric, in the order
// given.
func (v Values) Missing(keys ...string) []string {
	var missing []string
	for _, k := range keys {
		if _, ok := v.Float(k); !ok {
			missing = append(missing, k)
		}
	}
	return missing
}

// Entry is the result of a property lookup: a scalar for <property>
// elements, or the nested properties of a <component>.
type Entry struct {
	Value  Value
	Fields Values
}

// IsComponent reports whether the entry came from a component.
func (e Entry) IsComponent() bool { return e.Fields != nil }

// Parse reads a document from r.
func Parse(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)
	var stack []*Node
	var root *Node

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ISCE XML parse error: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Tag: t.Name.Local}
			for _, a := range t.Attr {
				if a.Name.Local == "name" {
					n.Name = a.Value
				}
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("ISCE XML parse error: multiple root elements")
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("ISCE XML parse error: unbalanced </%s>", t.Name.Local)
			}
			top := stack[len(stack)-1]
			top.Text = strings.TrimSpace(top.Text)
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}

	if root == nil {
		return nil, ErrEmpty
	}
	return &Document{Root: root}, nil
}

// Walk calls fn for every node in document order, root first.
func (d *Document) Walk(fn func(*Node) bool) {
	walk(d.Root, fn)
}

func walk(n *Node, fn func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

// Property returns the first element in document order whose name
// attribute equals name and which is a property or a component.
func (d *Document) Property(name string) (Entry, bool) {
	var entry Entry
	found := false
	d.Walk(func(n *Node) bool {
		if n.Name != name {
			return true
		}
		switch n.Tag {
		case "property":
			entry = Entry{Value: propertyValue(n)}
		case "component":
			fields := make(Values)
			walk(n, func(c *Node) bool {
				if c.Tag == "property" && c != n {
					fields[c.Name] = propertyValue(c)
				}
				return true
			})
			entry = Entry{Fields: fields}
		default:
			return true
		}
		found = true
		return false
	})
	return entry, found
}

// Component returns the nested properties of the named component.
func (d *Document) Component(name string) (Values, bool) {
	e, ok := d.Property(name)
	if !ok || !e.IsComponent() {
		return nil, false
	}
	return e.Fields, true
}

func propertyValue(n *Node) Value {
	for _, c := range n.Children {
		if c.Tag == "value" {
			return newValue(c.Text)
		}
	}
	return Value{}
}
