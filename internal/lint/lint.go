// Package lint checks configuration documents for structural problems
// the migration engine does not look at: malformed top-level shape,
// keys the current layout no longer supports, and broken path
// references. The engine never calls it; callers run it before or
// after a migration to validate the result.
package lint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/headmin/gitops-migrate/internal/document"
)

// Severity classifies a finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Finding is a single issue found in a document.
type Finding struct {
	Severity Severity
	Rule     string
	Message  string
	File     string
	Help     string
}

// Report collects findings by severity.
type Report struct {
	Errors   []Finding
	Warnings []Finding
	Infos    []Finding
}

// Add routes a finding into the matching severity bucket.
func (r *Report) Add(f Finding) {
	switch f.Severity {
	case SeverityError:
		r.Errors = append(r.Errors, f)
	case SeverityWarning:
		r.Warnings = append(r.Warnings, f)
	default:
		r.Infos = append(r.Infos, f)
	}
}

// Merge appends another report's findings.
func (r *Report) Merge(other Report) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	r.Infos = append(r.Infos, other.Infos...)
}

// HasErrors reports whether any error-severity findings exist.
func (r *Report) HasErrors() bool {
	return len(r.Errors) > 0
}

// TotalIssues returns the count of findings across all severities.
func (r *Report) TotalIssues() int {
	return len(r.Errors) + len(r.Warnings) + len(r.Infos)
}

// Rule is one lint check. Rules are plain function values so the rule
// set stays a closed, inspectable list.
type Rule struct {
	Name        string
	Description string
	Check       func(file string, doc *document.Document) []Finding
}

// oldLayoutKeys are top-level keys that moved into per-package files
// in the 4.74.0 layout.
var oldLayoutKeys = []string{
	"self_service",
	"categories",
	"labels_include_any",
	"labels_exclude_any",
}

// DefaultRules returns the built-in rule set.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:        "top-level-shape",
			Description: "Ensures the document root is a mapping",
			Check:       checkTopLevelShape,
		},
		{
			Name:        "deprecated-keys",
			Description: "Flags top-level keys the current layout no longer supports",
			Check:       checkDeprecatedKeys,
		},
		{
			Name:        "path-references",
			Description: "Verifies local path references point at existing files",
			Check:       checkPathReferences,
		},
	}
}

func checkTopLevelShape(file string, doc *document.Document) []Finding {
	if document.IsMapping(doc.Root()) {
		return nil
	}
	return []Finding{{
		Severity: SeverityError,
		Rule:     "top-level-shape",
		Message:  "document root must be a mapping",
		File:     file,
		Help:     "top-level sequences and scalars are not addressable by migrations",
	}}
}

func checkDeprecatedKeys(file string, doc *document.Document) []Finding {
	var findings []Finding
	for _, key := range oldLayoutKeys {
		if !document.MapHas(doc.Root(), key) {
			continue
		}
		findings = append(findings, Finding{
			Severity: SeverityWarning,
			Rule:     "deprecated-keys",
			Message:  fmt.Sprintf("top-level %q belongs in per-package files since 4.74.0", key),
			File:     file,
			Help:     "run a migration to move it under software.packages",
		})
	}
	return findings
}

func checkPathReferences(file string, doc *document.Document) []Finding {
	var findings []Finding
	base := filepath.Dir(file)
	walkNode(doc.Root(), func(n *yaml.Node) {
		ref := document.MapGet(n, "path")
		if ref == nil {
			return
		}
		rel, ok := document.AsString(ref)
		if !ok {
			return
		}
		resolved := filepath.Join(base, filepath.FromSlash(rel))
		if _, err := os.Stat(resolved); err != nil {
			findings = append(findings, Finding{
				Severity: SeverityError,
				Rule:     "path-references",
				Message:  fmt.Sprintf("reference %q does not exist", rel),
				File:     file,
			})
		}
	})
	return findings
}

// walkNode visits every mapping node in the tree.
func walkNode(n *yaml.Node, visit func(*yaml.Node)) {
	if n == nil {
		return
	}
	if document.IsMapping(n) {
		visit(n)
		for i := 0; i+1 < len(n.Content); i += 2 {
			walkNode(n.Content[i+1], visit)
		}
		return
	}
	if document.IsSequence(n) {
		for _, item := range document.Items(n) {
			walkNode(item, visit)
		}
	}
}

// Linter runs a rule set, plus an optional JSON Schema, over documents.
type Linter struct {
	rules  []Rule
	schema *jsonschema.Schema
}

// New returns a Linter with the default rules.
func New() *Linter {
	return &Linter{rules: DefaultRules()}
}

// Rules returns the active rule set.
func (l *Linter) Rules() []Rule {
	return l.rules
}

// LoadSchema compiles a JSON Schema; subsequent lints validate each
// document against it.
func (l *Linter) LoadSchema(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open schema: %w", err)
	}
	defer f.Close()

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", f); err != nil {
		return fmt.Errorf("failed to load schema %s: %w", path, err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", path, err)
	}
	l.schema = schema
	return nil
}

// LintDocument runs every rule against a parsed document.
func (l *Linter) LintDocument(file string, doc *document.Document) Report {
	var report Report
	for _, rule := range l.rules {
		for _, f := range rule.Check(file, doc) {
			report.Add(f)
		}
	}
	if l.schema != nil {
		if f := l.validateSchema(file, doc); f != nil {
			report.Add(*f)
		}
	}
	return report
}

// LintFile reads, parses, and lints one file. Unreadable or
// unparseable input becomes an error finding rather than aborting a
// multi-file lint.
func (l *Linter) LintFile(path string) Report {
	var report Report

	data, err := os.ReadFile(path)
	if err != nil {
		report.Add(Finding{
			Severity: SeverityError,
			Rule:     "parse",
			Message:  fmt.Sprintf("failed to read file: %v", err),
			File:     path,
		})
		return report
	}

	doc, err := document.Parse(data)
	if err != nil {
		report.Add(Finding{
			Severity: SeverityError,
			Rule:     "parse",
			Message:  fmt.Sprintf("failed to parse document: %v", err),
			File:     path,
		})
		return report
	}

	return l.LintDocument(path, doc)
}

func (l *Linter) validateSchema(file string, doc *document.Document) *Finding {
	value, err := canonicalValue(doc)
	if err != nil {
		return &Finding{
			Severity: SeverityError,
			Rule:     "schema",
			Message:  fmt.Sprintf("document cannot be schema-checked: %v", err),
			File:     file,
		}
	}
	if err := l.schema.Validate(value); err != nil {
		return &Finding{
			Severity: SeverityError,
			Rule:     "schema",
			Message:  err.Error(),
			File:     file,
		}
	}
	return nil
}

// canonicalValue decodes the document and round-trips it through JSON
// so the validator sees the value shapes it expects.
func canonicalValue(doc *document.Document) (interface{}, error) {
	var v interface{}
	if err := doc.Root().Decode(&v); err != nil {
		return nil, err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var canonical interface{}
	if err := json.Unmarshal(b, &canonical); err != nil {
		return nil, err
	}
	return canonical, nil
}
