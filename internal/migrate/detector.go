package migrate

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/headmin/gitops-migrate/internal/document"
)

// Schema versions with known structural fingerprints. Documents carry
// no version field, so detection scores weak signals against these.
var (
	versionNewLayout  = Version{Major: 4, Minor: 74}
	versionOldLayout  = Version{Major: 4, Minor: 73}
	versionMacOS      = Version{Major: 4, Minor: 30}
	versionOldestSeen = Version{Major: 4}
)

// detectThreshold is the minimum confidence before Detect commits to a
// version. Below it, ambiguous fingerprints yield no answer rather
// than a false positive.
const detectThreshold = 0.7

// Confident reports whether the result clears the detection threshold.
func (r DetectionResult) Confident() bool {
	return r.Confidence >= detectThreshold
}

// Detect reads and parses the file at path and returns its detected
// schema version, or nil when the fingerprints are too ambiguous.
func Detect(path string) (*Version, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	doc, err := document.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	result := DetectDocument(doc)
	if result.Confidence < detectThreshold {
		return nil, nil
	}
	return result.Version, nil
}

// DetectDocument scores the structural fingerprints of a parsed
// document. Indicators are additive: several weak signals can combine
// into a confident answer, and the strongest signal present sets the
// version floor.
func DetectDocument(doc *document.Document) DetectionResult {
	var result DetectionResult
	root := doc.Root()

	if hasInlinePackageFields(root) {
		result.Indicators = append(result.Indicators,
			fmt.Sprintf("software.packages entries carry inline fields (%s+)", versionNewLayout))
		result.Confidence += 0.3
		result.Version = versionPtr(versionNewLayout)
	}

	if hasTeamFieldsAtTopLevel(root) {
		result.Indicators = append(result.Indicators,
			fmt.Sprintf("self_service/categories at top level (< %s)", versionNewLayout))
		result.Confidence += 0.4
		if result.Version == nil {
			result.Version = versionPtr(versionOldLayout)
		}
	}

	if document.MapHas(root, "macos_settings") {
		result.Indicators = append(result.Indicators,
			fmt.Sprintf("macos_settings present (%s+)", versionMacOS))
		result.Confidence += 0.2
		if result.Version == nil {
			result.Version = versionPtr(versionMacOS)
		}
	}

	if result.Version == nil && len(result.Indicators) > 0 {
		result.Version = versionPtr(versionOldestSeen)
		result.Confidence = 0.5
	}

	return result
}

// DetectTree scores every document file under root and returns the
// most confident result. The version is nil when nothing under root
// crosses the confidence threshold.
func DetectTree(root string) (DetectionResult, error) {
	files, err := findDocumentFiles(root)
	if err != nil {
		return DetectionResult{}, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	var best DetectionResult
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		doc, err := document.Parse(content)
		if err != nil {
			continue
		}
		if result := DetectDocument(doc); result.Confidence > best.Confidence {
			best = result
		}
	}

	if best.Confidence < detectThreshold {
		best.Version = nil
	}
	return best, nil
}

// SupportedVersions lists the schema versions the catalog is expected
// to migrate between, oldest first.
func SupportedVersions() []Version {
	return []Version{versionOldLayout, versionNewLayout}
}

func versionPtr(v Version) *Version {
	return &v
}

// hasInlinePackageFields reports whether a software.packages entry
// carries more than a bare path reference. Inline package fields only
// exist in the new per-team layout.
func hasInlinePackageFields(root *yaml.Node) bool {
	packages := document.MapGet(document.MapGet(root, "software"), "packages")
	for _, pkg := range document.Items(packages) {
		if !document.IsMapping(pkg) {
			continue
		}
		if document.MapLen(pkg) > 1 || !document.MapHas(pkg, "path") {
			return true
		}
	}
	return false
}

// teamFields are per-team knobs that the old layout colocated with the
// package definition itself.
var teamFields = []string{"self_service", "categories", "labels_include_any", "labels_exclude_any"}

func hasTeamFieldsAtTopLevel(root *yaml.Node) bool {
	for _, field := range teamFields {
		if document.MapHas(root, field) {
			return true
		}
	}
	return false
}
