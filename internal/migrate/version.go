// Package migrate moves a configuration repository from one schema
// version to another. It detects the current version from structural
// fingerprints, loads a declarative transformation catalog, resolves
// cross-file path references, and builds and executes migration plans
// with backup, dry-run, and diff reporting.
package migrate

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a schema version triple. The zero value is "0.0.0".
type Version struct {
	Major int
	Minor int
	Patch int
}

// ParseVersion parses "major.minor" or "major.minor.patch". The patch
// component defaults to 0 when omitted. Returns false for any other
// shape; it never returns a partially-parsed version.
func ParseVersion(s string) (Version, bool) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 && len(parts) != 3 {
		return Version{}, false
	}

	nums := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return Version{}, false
		}
		nums[i] = int(n)
	}

	v := Version{Major: nums[0], Minor: nums[1]}
	if len(nums) == 3 {
		v.Patch = nums[2]
	}
	return v, true
}

// Compare returns -1, 0, or 1 ordering versions lexicographically on
// (major, minor, patch).
func (v Version) Compare(other Version) int {
	if v.Major != other.Major {
		return cmp(v.Major, other.Major)
	}
	if v.Minor != other.Minor {
		return cmp(v.Minor, other.Minor)
	}
	return cmp(v.Patch, other.Patch)
}

// Less reports whether v orders strictly before other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

func cmp(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
