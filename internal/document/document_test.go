package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, content string) *Document {
	t.Helper()
	doc, err := Parse([]byte(content))
	require.NoError(t, err)
	return doc
}

func TestParse_Mapping(t *testing.T) {
	doc := mustParse(t, "name: Workstations\nsoftware:\n  packages:\n    - path: ../lib/chrome.yml\n")

	name, ok := AsString(doc.Get("name"))
	require.True(t, ok)
	assert.Equal(t, "Workstations", name)

	packages := doc.Get("software.packages")
	require.NotNil(t, packages)
	assert.True(t, IsSequence(packages))
	assert.Len(t, Items(packages), 1)
}

func TestParse_Empty(t *testing.T) {
	doc := mustParse(t, "")

	assert.Nil(t, doc.Get("anything"))
	assert.True(t, IsMapping(doc.Root()))

	// An empty document accepts new fields, supporting steps that
	// create a file from scratch.
	require.NoError(t, doc.Set("name", NewString("fresh")))
	assert.True(t, doc.Has("name"))
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("key: [unclosed"))
	assert.Error(t, err)
}

func TestMarshal_RoundTrip(t *testing.T) {
	doc := mustParse(t, "name: Workstations\nself_service: true\ncategories:\n  - Browsers\n")

	out, err := doc.Marshal()
	require.NoError(t, err)

	again := mustParse(t, string(out))
	name, _ := AsString(again.Get("name"))
	assert.Equal(t, "Workstations", name)

	selfService, ok := AsBool(again.Get("self_service"))
	require.True(t, ok)
	assert.True(t, selfService)

	assert.Len(t, Items(again.Get("categories")), 1)
}

func TestMarshal_PreservesKeyOrder(t *testing.T) {
	doc := mustParse(t, "zebra: 1\nalpha: 2\nmiddle: 3\n")

	out, err := doc.Marshal()
	require.NoError(t, err)

	again := mustParse(t, string(out))
	assert.Equal(t, []string{"zebra", "alpha", "middle"}, MapKeys(again.Root()))
}

func TestClone_Independent(t *testing.T) {
	doc := mustParse(t, "settings:\n  enabled: true\n")
	clone := doc.Clone()

	require.NoError(t, clone.Set("settings.enabled", NewBool(false)))
	require.NoError(t, clone.Set("settings.extra", NewString("added")))

	enabled, ok := AsBool(doc.Get("settings.enabled"))
	require.True(t, ok)
	assert.True(t, enabled, "original must not see the clone's writes")
	assert.False(t, doc.Has("settings.extra"))
}

func TestMapHelpers(t *testing.T) {
	doc := mustParse(t, "a: 1\nb: 2\nc:\n  nested: true\n")

	root := doc.Root()
	assert.Equal(t, 3, MapLen(root))
	assert.True(t, MapHas(root, "b"))
	assert.False(t, MapHas(root, "missing"))
	assert.Equal(t, []string{"a", "b", "c"}, MapKeys(root))

	assert.Nil(t, MapGet(doc.Get("a"), "anything"), "scalars have no children")
}
