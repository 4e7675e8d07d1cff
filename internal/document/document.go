// Package document represents a single configuration file as a YAML node
// tree and provides dotted-path get/set/remove operations over it.
// Documents round-trip through gopkg.in/yaml.v3 nodes so that key order
// and comments survive an in-place migration.
package document

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is one parsed configuration file.
type Document struct {
	root *yaml.Node
}

// Parse parses YAML content into a Document. Empty content yields an
// empty mapping document, so fields can be added to a file that does
// not exist yet.
func Parse(content []byte) (*Document, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(content, &node); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	root := unwrap(&node)
	if root == nil {
		root = emptyMapping()
	}

	return &Document{root: root}, nil
}

// NewMapping returns an empty mapping document.
func NewMapping() *Document {
	return &Document{root: emptyMapping()}
}

// unwrap strips the yaml document wrapper node, returning the content root.
func unwrap(node *yaml.Node) *yaml.Node {
	if node == nil || node.Kind == 0 {
		return nil
	}
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return nil
		}
		return node.Content[0]
	}
	return node
}

// Root returns the root node of the document tree.
func (d *Document) Root() *yaml.Node {
	return d.root
}

// Marshal serializes the document back to YAML with two-space indentation.
func (d *Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d.root); err != nil {
		return nil, fmt.Errorf("serialize document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("serialize document: %w", err)
	}
	return buf.Bytes(), nil
}

// Clone returns a deep copy of the document. Alias nodes are re-pointed
// at their copied anchor targets so the copy is fully independent.
func (d *Document) Clone() *Document {
	seen := make(map[*yaml.Node]*yaml.Node)
	return &Document{root: cloneNode(d.root, seen)}
}

// CloneNode returns a deep copy of a single node subtree.
func CloneNode(n *yaml.Node) *yaml.Node {
	return cloneNode(n, make(map[*yaml.Node]*yaml.Node))
}

func cloneNode(n *yaml.Node, seen map[*yaml.Node]*yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	if c, ok := seen[n]; ok {
		return c
	}

	c := &yaml.Node{
		Kind:        n.Kind,
		Style:       n.Style,
		Tag:         n.Tag,
		Value:       n.Value,
		Anchor:      n.Anchor,
		HeadComment: n.HeadComment,
		LineComment: n.LineComment,
		FootComment: n.FootComment,
		Line:        n.Line,
		Column:      n.Column,
	}
	seen[n] = c

	if n.Alias != nil {
		c.Alias = cloneNode(n.Alias, seen)
	}
	if len(n.Content) > 0 {
		c.Content = make([]*yaml.Node, len(n.Content))
		for i, child := range n.Content {
			c.Content[i] = cloneNode(child, seen)
		}
	}
	return c
}

func emptyMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

// resolve follows alias nodes to the anchored value.
func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

// IsMapping reports whether n is a mapping node (after alias resolution).
func IsMapping(n *yaml.Node) bool {
	n = resolve(n)
	return n != nil && n.Kind == yaml.MappingNode
}

// IsSequence reports whether n is a sequence node (after alias resolution).
func IsSequence(n *yaml.Node) bool {
	n = resolve(n)
	return n != nil && n.Kind == yaml.SequenceNode
}

// MapGet returns the value for key within mapping node n, or nil when n
// is not a mapping or the key is absent.
func MapGet(n *yaml.Node, key string) *yaml.Node {
	n = resolve(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

// MapHas reports whether mapping node n carries key.
func MapHas(n *yaml.Node, key string) bool {
	return MapGet(n, key) != nil
}

// MapLen returns the number of key/value pairs in mapping node n.
func MapLen(n *yaml.Node) int {
	n = resolve(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return 0
	}
	return len(n.Content) / 2
}

// MapKeys returns the keys of mapping node n in document order.
func MapKeys(n *yaml.Node) []string {
	n = resolve(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	keys := make([]string, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		keys = append(keys, n.Content[i].Value)
	}
	return keys
}

// Items returns the elements of sequence node n, or nil when n is not a
// sequence.
func Items(n *yaml.Node) []*yaml.Node {
	n = resolve(n)
	if n == nil || n.Kind != yaml.SequenceNode {
		return nil
	}
	return n.Content
}

// AsString returns the scalar string value of n, if it is a string scalar.
func AsString(n *yaml.Node) (string, bool) {
	n = resolve(n)
	if n == nil || n.Kind != yaml.ScalarNode || n.Tag != "!!str" {
		return "", false
	}
	return n.Value, true
}

// AsBool returns the scalar bool value of n, if it is a boolean scalar.
func AsBool(n *yaml.Node) (bool, bool) {
	n = resolve(n)
	if n == nil || n.Kind != yaml.ScalarNode || n.Tag != "!!bool" {
		return false, false
	}
	return n.Value == "true", true
}

// Format renders a node as a short single-line string for display in
// plan listings and logs. Scalars render as their value; composite
// nodes are flattened and truncated.
func Format(n *yaml.Node) string {
	n = resolve(n)
	if n == nil {
		return "~"
	}
	if n.Kind == yaml.ScalarNode {
		return n.Value
	}

	out, err := yaml.Marshal(n)
	if err != nil {
		return "<unrenderable>"
	}
	s := strings.Join(strings.Fields(string(out)), " ")
	if len(s) > 60 {
		s = s[:57] + "..."
	}
	return s
}

// NewString builds a string scalar node.
func NewString(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

// NewBool builds a boolean scalar node.
func NewBool(v bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: fmt.Sprintf("%t", v)}
}
