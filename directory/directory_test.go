package directory_test

import (
	"testing"

	"github.com/gostored/libstored/directory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	typeInt32 = 2
	typeInt16 = 1
	typeBlob  = 13
)

func sizeOf(tag byte) bool { return tag&0x7f == typeBlob }

func buildSchema(t *testing.T) []byte {
	t.Helper()
	dir, err := directory.Build([]directory.BuildEntry{
		{Name: "/x", Type: typeInt32, Offset: 0},
		{Name: "/a/b", Type: typeInt16, Offset: 4},
		{Name: "/a/c", Type: typeInt16, Offset: 6},
		{Name: "/ax", Type: typeInt32, Offset: 8},
		{Name: "/blob", Type: typeBlob, VariableLength: true, Length: 16, Offset: 12},
	})
	require.NoError(t, err)
	return dir
}

func TestFindExact(t *testing.T) {
	dir := buildSchema(t)

	e, ok := directory.Find(dir, "/x", sizeOf)
	require.True(t, ok)
	assert.Equal(t, byte(typeInt32), e.Type)
	assert.Equal(t, 0, e.Offset)

	e, ok = directory.Find(dir, "/a/b", sizeOf)
	require.True(t, ok)
	assert.Equal(t, 4, e.Offset)

	e, ok = directory.Find(dir, "/a/c", sizeOf)
	require.True(t, ok)
	assert.Equal(t, 6, e.Offset)

	e, ok = directory.Find(dir, "/ax", sizeOf)
	require.True(t, ok)
	assert.Equal(t, 8, e.Offset)

	e, ok = directory.Find(dir, "/blob", sizeOf)
	require.True(t, ok)
	assert.Equal(t, directory.Variable, e.Kind)
	assert.Equal(t, 16, e.Length)
	assert.Equal(t, 12, e.Offset)
}

func TestFindMissing(t *testing.T) {
	dir := buildSchema(t)

	_, ok := directory.Find(dir, "/y", sizeOf)
	assert.False(t, ok)
	_, ok = directory.Find(dir, "/a/z", sizeOf)
	assert.False(t, ok)
	_, ok = directory.Find(dir, "/a", sizeOf)
	assert.False(t, ok, "scope alone (no trailing var) must not resolve")
}

func TestFindAbbreviation(t *testing.T) {
	dir, err := directory.Build([]directory.BuildEntry{
		{Name: "/apple", Type: typeInt32, Offset: 0},
		{Name: "/banana", Type: typeInt32, Offset: 4},
	})
	require.NoError(t, err)

	// unambiguous: only one name starts with 'a' or 'b'.
	e, ok := directory.Find(dir, "/a", sizeOf)
	require.True(t, ok)
	assert.Equal(t, 0, e.Offset)

	e, ok = directory.Find(dir, "/b", sizeOf)
	require.True(t, ok)
	assert.Equal(t, 4, e.Offset)

	// ambiguous: nothing there to disambiguate with a bare "/".
	_, ok = directory.Find(dir, "/", sizeOf)
	assert.False(t, ok)
}

func TestFindAbbreviationAmbiguous(t *testing.T) {
	dir, err := directory.Build([]directory.BuildEntry{
		{Name: "/apple", Type: typeInt32, Offset: 0},
		{Name: "/apricot", Type: typeInt32, Offset: 4},
	})
	require.NoError(t, err)

	// "/ap" is still ambiguous between apple and apricot.
	_, ok := directory.Find(dir, "/ap", sizeOf)
	assert.False(t, ok)

	// "/appl" uniquely resolves to apple.
	e, ok := directory.Find(dir, "/appl", sizeOf)
	require.True(t, ok)
	assert.Equal(t, 0, e.Offset)
}

func TestList(t *testing.T) {
	dir := buildSchema(t)

	var names []string
	directory.List(dir, "", sizeOf, func(e directory.Entry) {
		names = append(names, e.Name)
	})
	assert.ElementsMatch(t, []string{"/x", "/a/b", "/a/c", "/ax", "/blob"}, names)
}

func TestDuplicateNameRejected(t *testing.T) {
	_, err := directory.Build([]directory.BuildEntry{
		{Name: "/x", Type: typeInt32, Offset: 0},
		{Name: "/x", Type: typeInt32, Offset: 4},
	})
	assert.Error(t, err)
}

func TestPrefixConflictRejected(t *testing.T) {
	_, err := directory.Build([]directory.BuildEntry{
		{Name: "/a", Type: typeInt32, Offset: 0},
		{Name: "/ab", Type: typeInt32, Offset: 4},
	})
	assert.Error(t, err)
}

func TestFunctionSlot(t *testing.T) {
	dir, err := directory.Build([]directory.BuildEntry{
		{Name: "/fn", Type: typeInt32 | 0x80, Offset: 3},
	})
	require.NoError(t, err)

	e, ok := directory.Find(dir, "/fn", sizeOf)
	require.True(t, ok)
	assert.Equal(t, directory.Function, e.Kind)
	assert.Equal(t, 3, e.Offset)
}

func TestAnalyzeCountsEntriesAndDepth(t *testing.T) {
	dir := buildSchema(t)

	st := directory.Analyze(dir, sizeOf)
	assert.Equal(t, 5, st.Entries)
	assert.Equal(t, 2, st.MaxDepth) // "/a/b" and "/a/c" are the deepest
}

func TestAnalyzeEmptyDirectory(t *testing.T) {
	dir, err := directory.Build(nil)
	require.NoError(t, err)

	st := directory.Analyze(dir, sizeOf)
	assert.Equal(t, 0, st.Entries)
	assert.Equal(t, 0, st.MaxDepth)
}
