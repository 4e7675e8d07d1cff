package document

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// splitPath breaks a dotted field path into its segments.
func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// Get returns the node at a dotted path, descending key-by-key through
// nested mappings. It returns nil when any segment is absent or an
// intermediate node is not a mapping.
func (d *Document) Get(path string) *yaml.Node {
	segments := splitPath(path)
	if len(segments) == 0 {
		return nil
	}

	current := d.root
	for _, seg := range segments {
		current = MapGet(current, seg)
		if current == nil {
			return nil
		}
	}
	return current
}

// Has reports whether a value exists at the dotted path.
func (d *Document) Has(path string) bool {
	return d.Get(path) != nil
}

// Set inserts or overwrites the value at a dotted path, creating empty
// intermediate mappings for missing segments. It fails when an
// intermediate segment exists but is not a mapping; overwriting
// non-mapping data silently would corrupt the document.
func (d *Document) Set(path string, value *yaml.Node) error {
	segments := splitPath(path)
	if len(segments) == 0 {
		return fmt.Errorf("set: empty path")
	}

	current := resolve(d.root)
	if current == nil || current.Kind != yaml.MappingNode {
		return fmt.Errorf("set %q: document root is not a mapping", path)
	}

	for i, seg := range segments {
		if i == len(segments)-1 {
			mapPut(current, seg, value)
			return nil
		}

		next := MapGet(current, seg)
		if next == nil {
			next = emptyMapping()
			mapPut(current, seg, next)
		}
		next = resolve(next)
		if next.Kind != yaml.MappingNode {
			return fmt.Errorf("set %q: %q is not a mapping", path, strings.Join(segments[:i+1], "."))
		}
		current = next
	}
	return nil
}

// Remove deletes the key at a dotted path. Removing a path whose parent
// does not exist is a no-op success: the field is already absent.
func (d *Document) Remove(path string) error {
	segments := splitPath(path)
	if len(segments) == 0 {
		return fmt.Errorf("remove: empty path")
	}

	current := resolve(d.root)
	for i, seg := range segments {
		if current == nil || current.Kind != yaml.MappingNode {
			return nil
		}
		if i == len(segments)-1 {
			mapDelete(current, seg)
			return nil
		}
		current = resolve(MapGet(current, seg))
	}
	return nil
}

// mapPut replaces the value for key in mapping node m, appending a new
// key/value pair when the key is absent.
func mapPut(m *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = value
			return
		}
	}
	m.Content = append(m.Content, NewString(key), value)
}

// mapDelete removes the key/value pair for key from mapping node m.
func mapDelete(m *yaml.Node, key string) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content = append(m.Content[:i], m.Content[i+2:]...)
			return
		}
	}
}
