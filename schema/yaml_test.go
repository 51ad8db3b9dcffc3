package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gostored/libstored/schema"
	"github.com/gostored/libstored/store"
)

const doc = `
variables:
  - name: /counter
    type: int32
  - name: /name
    type: string
    length: 8
  - name: /greet
    type: int32
    function: true
`

func TestLoadYAMLCompilesDirectoryAndLayout(t *testing.T) {
	d, err := schema.LoadYAML([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, 12, d.BufferSize) // 4 (int32) + 8 (string)
	assert.Equal(t, []string{"/greet"}, d.FunctionSlot)

	s := store.New(make([]byte, d.BufferSize), d.Directory, []store.Function{
		func(isSet bool, b []byte) (int, error) { return copy(b, []byte("hi")), nil },
	}, store.Config{})

	counter := s.Find("/counter")
	require.True(t, counter.Valid())
	assert.Equal(t, store.Int32, counter.Type())
	assert.Equal(t, 0, counter.Offset())

	name := s.Find("/name")
	require.True(t, name.Valid())
	assert.Equal(t, 8, name.Len())
	assert.Equal(t, 4, name.Offset())

	greet := s.Find("/greet")
	require.True(t, greet.Valid())
	assert.Equal(t, store.SlotFunction, greet.Kind())
}

func TestLoadYAMLRejectsUnknownType(t *testing.T) {
	_, err := schema.LoadYAML([]byte("variables:\n  - name: /x\n    type: nonsense\n"))
	assert.Error(t, err)
}

func TestLoadYAMLRejectsBlobWithoutLength(t *testing.T) {
	_, err := schema.LoadYAML([]byte("variables:\n  - name: /x\n    type: blob\n"))
	assert.Error(t, err)
}

func TestLoadYAMLEmptyDocument(t *testing.T) {
	d, err := schema.LoadYAML([]byte(""))
	require.NoError(t, err)
	assert.Equal(t, 0, d.BufferSize)
	assert.Empty(t, d.FunctionSlot)
}
