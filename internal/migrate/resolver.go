package migrate

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/headmin/gitops-migrate/internal/document"
)

// Resolver loads documents and follows the path references between
// them. It caches parsed documents by absolute path and carries a
// visited set so reference cycles terminate. Cached documents are
// shared read-only; callers clone before mutating.
//
// A Resolver is not safe for concurrent use. Scope one per discovery
// pass, or call ClearCache between passes.
type Resolver struct {
	cache   map[string]*document.Document
	visited map[string]bool
}

// NewResolver returns an empty Resolver.
func NewResolver() *Resolver {
	return &Resolver{
		cache:   make(map[string]*document.Document),
		visited: make(map[string]bool),
	}
}

// ResolvePath resolves a reference relative to the directory of base
// and returns the absolute cleaned path. The target must exist;
// references are never lazily created.
func (r *Resolver) ResolvePath(base, relative string) (string, error) {
	resolved := filepath.Join(filepath.Dir(base), relative)

	abs, err := filepath.Abs(resolved)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %q: %w", relative, err)
	}

	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("failed to resolve path %q: %w", relative, err)
	}
	return abs, nil
}

// LoadFile parses the file at path, caching the result. Repeated loads
// of the same file return the same shared document.
func (r *Resolver) LoadFile(path string) (*document.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	if doc, ok := r.cache[abs]; ok {
		return doc, nil
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	doc, err := document.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	r.cache[abs] = doc
	return doc, nil
}

// FindReferencedFiles walks the reference graph from root and returns
// every file reachable through path references, in discovery order.
// The root itself is not part of the result. Unresolvable or
// unparseable references are collected as skips rather than aborting
// the walk, so one bad reference cannot hide the rest of the graph.
func (r *Resolver) FindReferencedFiles(root string) ([]string, []SkippedRef) {
	for k := range r.visited {
		delete(r.visited, k)
	}

	referenced := []string{}
	var skipped []SkippedRef
	r.walkReferences(root, &referenced, &skipped)
	return referenced, skipped
}

func (r *Resolver) walkReferences(file string, referenced *[]string, skipped *[]SkippedRef) {
	abs, err := filepath.Abs(file)
	if err != nil {
		*skipped = append(*skipped, SkippedRef{File: file, Reason: err.Error()})
		return
	}

	// Visited check happens before descending, so a cycle terminates
	// after each file has been seen once.
	if r.visited[abs] {
		return
	}
	r.visited[abs] = true

	doc, err := r.LoadFile(abs)
	if err != nil {
		*skipped = append(*skipped, SkippedRef{File: abs, Reason: err.Error()})
		return
	}

	r.extractReferences(doc.Root(), abs, referenced, skipped)
}

// extractReferences scans a node tree for mappings carrying a path key
// with a string value, resolving and descending into each.
func (r *Resolver) extractReferences(node *yaml.Node, base string, referenced *[]string, skipped *[]SkippedRef) {
	if document.IsMapping(node) {
		if ref, ok := document.AsString(document.MapGet(node, "path")); ok {
			resolved, err := r.ResolvePath(base, ref)
			if err != nil {
				*skipped = append(*skipped, SkippedRef{File: base, Reason: err.Error()})
			} else if !r.visited[resolved] {
				*referenced = append(*referenced, resolved)
				r.walkReferences(resolved, referenced, skipped)
			}
		}

		for _, key := range document.MapKeys(node) {
			r.extractReferences(document.MapGet(node, key), base, referenced, skipped)
		}
		return
	}

	for _, item := range document.Items(node) {
		r.extractReferences(item, base, referenced, skipped)
	}
}

// ClearCache drops all cached documents and the visited set.
func (r *Resolver) ClearCache() {
	r.cache = make(map[string]*document.Document)
	r.visited = make(map[string]bool)
}
