// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package xmltree parses XML into a navigable element tree. The extraction
// stages need document-order text, ancestor lookups, and re-serialization of
// table regions, which the stream decoder in encoding/xml does not provide
// on its own.
package xmltree

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// Node is one XML element. Text runs are interleaved with child elements:
// Text[i] precedes Children[i] and Text[len(Children)] trails the last
// child, so document order is preserved.
type Node struct {
	Name     xml.Name
	Attrs    []xml.Attr
	Parent   *Node
	Children []*Node
	Text     []string
}

// Parse decodes payload into an element tree rooted at the document element.
func Parse(payload []byte) (*Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(payload))
	var root *Node
	var current *Node
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{
				Name:   t.Name,
				Attrs:  append([]xml.Attr(nil), t.Attr...),
				Parent: current,
				Text:   []string{""},
			}
			if current == nil {
				if root != nil {
					return nil, fmt.Errorf("multiple document elements")
				}
				root = n
			} else {
				current.Children = append(current.Children, n)
				current.Text = append(current.Text, "")
			}
			current = n
		case xml.EndElement:
			if current == nil {
				return nil, fmt.Errorf("unbalanced end element %s", t.Name.Local)
			}
			current = current.Parent
		case xml.CharData:
			if current != nil {
				current.Text[len(current.Text)-1] += string(t)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("no document element")
	}
	if current != nil {
		return nil, fmt.Errorf("unclosed element %s", current.Name.Local)
	}
	return root, nil
}

// Local returns the element's local name.
func (n *Node) Local() string {
	return n.Name.Local
}

// Attr returns the value of the first attribute with the given local name,
// or "".
func (n *Node) Attr(local string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// FlatText returns all descendant text in document order with whitespace
// collapsed to single spaces.
func (n *Node) FlatText() string {
	var sb strings.Builder
	n.appendText(&sb)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func (n *Node) appendText(sb *strings.Builder) {
	for i, run := range n.Text {
		sb.WriteString(run)
		sb.WriteByte(' ')
		if i < len(n.Children) {
			n.Children[i].appendText(sb)
		}
	}
}

// Descendants returns every descendant element (excluding n itself) with the
// given local name, in document order.
func (n *Node) Descendants(local string) []*Node {
	var out []*Node
	n.walk(func(d *Node) {
		if d != n && d.Name.Local == local {
			out = append(out, d)
		}
	})
	return out
}

// First returns the first descendant element with the given local name, or
// nil.
func (n *Node) First(local string) *Node {
	all := n.Descendants(local)
	if len(all) == 0 {
		return nil
	}
	return all[0]
}

// ChildrenLocal returns direct child elements with the given local name.
func (n *Node) ChildrenLocal(local string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Name.Local == local {
			out = append(out, c)
		}
	}
	return out
}

// Ancestor returns the nearest ancestor whose local name is one of the given
// names, or nil.
func (n *Node) Ancestor(locals ...string) *Node {
	for p := n.Parent; p != nil; p = p.Parent {
		for _, local := range locals {
			if p.Name.Local == local {
				return p
			}
		}
	}
	return nil
}

func (n *Node) walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.walk(fn)
	}
}

// XML serializes the subtree rooted at n. Namespace prefixes are not
// reconstructed; element and attribute local names are kept.
func (n *Node) XML() string {
	var sb strings.Builder
	n.writeXML(&sb)
	return sb.String()
}

func (n *Node) writeXML(sb *strings.Builder) {
	sb.WriteByte('<')
	sb.WriteString(n.Name.Local)
	for _, a := range n.Attrs {
		if a.Name.Local == "xmlns" || a.Name.Space == "xmlns" {
			continue
		}
		sb.WriteByte(' ')
		sb.WriteString(a.Name.Local)
		sb.WriteString(`="`)
		xml.EscapeText(sb, []byte(a.Value))
		sb.WriteByte('"')
	}
	if len(n.Children) == 0 && strings.TrimSpace(strings.Join(n.Text, "")) == "" {
		sb.WriteString("/>")
		return
	}
	sb.WriteByte('>')
	for i, run := range n.Text {
		xml.EscapeText(sb, []byte(run))
		if i < len(n.Children) {
			n.Children[i].writeXML(sb)
		}
	}
	sb.WriteString("</")
	sb.WriteString(n.Name.Local)
	sb.WriteByte('>')
}
