package debugger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gostored/libstored/debugger"
	"github.com/gostored/libstored/directory"
	"github.com/gostored/libstored/store"
)

func newTestStore(t *testing.T, entries []directory.BuildEntry, bufSize int) *store.Store {
	t.Helper()
	dir, err := directory.Build(entries)
	require.NoError(t, err)
	return store.New(make([]byte, bufSize), dir, nil, store.Config{})
}

func TestScenarioA_Int32RoundTrip(t *testing.T) {
	s := newTestStore(t, []directory.BuildEntry{
		{Name: "/x", Type: byte(store.Int32), Offset: 0},
	}, 4)
	d := debugger.New(s, false)

	assert.Equal(t, []byte("!"), d.Dispatch([]byte("wdeadbeef/x")))
	assert.Equal(t, []byte("deadbeef"), d.Dispatch([]byte("r/x")))
}

func TestScenarioB_Int16WithAlias(t *testing.T) {
	s := newTestStore(t, []directory.BuildEntry{
		{Name: "/a/b", Type: byte(store.Int16), Offset: 0},
	}, 2)
	d := debugger.New(s, false)

	require.Equal(t, []byte("!"), d.Dispatch([]byte("a0/a/b")))
	require.Equal(t, []byte("!"), d.Dispatch([]byte("w00ff0")))
	assert.Equal(t, []byte("ff"), d.Dispatch([]byte("r0")))
}

func TestScenarioC_Capabilities(t *testing.T) {
	s := newTestStore(t, nil, 0)
	d := debugger.New(s, false)
	caps := string(d.Dispatch([]byte("?")))
	for _, c := range "?rwlaemivRWsft" {
		assert.Contains(t, caps, string(c))
	}
	assert.NotContains(t, caps, "\n")
}

func TestScenarioD_Macro(t *testing.T) {
	s := newTestStore(t, []directory.BuildEntry{
		{Name: "/x", Type: byte(store.Uint8), Offset: 0},
		{Name: "/y", Type: byte(store.Uint8), Offset: 1},
	}, 2)
	d := debugger.New(s, false)

	// sep is ' '; "e;" echoes a literal ';' between the two reads,
	// reproducing the spec's worked example verbatim.
	require.Equal(t, []byte("!"), d.Dispatch([]byte("mZ r/x e; r/y")))

	require.Equal(t, []byte("!"), d.Dispatch([]byte("w10/x")))
	require.Equal(t, []byte("!"), d.Dispatch([]byte("w20/y")))

	assert.Equal(t, []byte("10;20"), d.Dispatch([]byte("Z")))
}

func TestUnknownCommandReturnsQuestionMark(t *testing.T) {
	s := newTestStore(t, nil, 0)
	d := debugger.New(s, false)
	assert.Equal(t, []byte("?"), d.Dispatch([]byte("Z")))
}

func TestEmptyRequestReturnsQuestionMark(t *testing.T) {
	s := newTestStore(t, nil, 0)
	d := debugger.New(s, false)
	assert.Equal(t, []byte("?"), d.Dispatch(nil))
}

func TestEchoVerbatim(t *testing.T) {
	s := newTestStore(t, nil, 0)
	d := debugger.New(s, false)
	assert.Equal(t, []byte("hello world"), d.Dispatch([]byte("ehello world")))
}

func TestListFormat(t *testing.T) {
	s := newTestStore(t, []directory.BuildEntry{
		{Name: "/x", Type: byte(store.Int32), Offset: 0},
	}, 4)
	d := debugger.New(s, false)
	out := string(d.Dispatch([]byte("l")))
	// type=Int32(2) len=4: "0204 /x"
	assert.Equal(t, "0204 /x", out)
}

func TestAliasRemovalOnEmptyName(t *testing.T) {
	s := newTestStore(t, []directory.BuildEntry{
		{Name: "/x", Type: byte(store.Int32), Offset: 0},
	}, 4)
	d := debugger.New(s, false)
	require.Equal(t, []byte("!"), d.Dispatch([]byte("a0/x")))
	require.Equal(t, []byte("!"), d.Dispatch([]byte("a0")))
	assert.Equal(t, []byte("?"), d.Dispatch([]byte("r0")))
}

func TestMacroDoesNotShadowBuiltin(t *testing.T) {
	s := newTestStore(t, nil, 0)
	d := debugger.New(s, false)
	// 'i' is a builtin; defining a macro under 'i' must not change its
	// behavior.
	require.Equal(t, []byte("!"), d.Dispatch([]byte("mi;e;X")))
	assert.Equal(t, []byte(""), d.Dispatch([]byte("i")))
}

func TestReadMemory(t *testing.T) {
	s := newTestStore(t, []directory.BuildEntry{
		{Name: "/x", Type: byte(store.Int32), Offset: 0},
	}, 4)
	d := debugger.New(s, false)
	// R reports raw memory order, with no endian conversion, unlike `r`.
	copy(s.Buffer(), []byte{0xde, 0xad, 0xbe, 0xef})
	out := d.Dispatch([]byte("R0 4"))
	assert.Equal(t, []byte("deadbeef"), out)
}

func TestWriteMemory(t *testing.T) {
	s := newTestStore(t, []directory.BuildEntry{
		{Name: "/x", Type: byte(store.Int32), Offset: 0},
	}, 4)
	d := debugger.New(s, false)
	require.Equal(t, []byte("!"), d.Dispatch([]byte("W0 cafebabe")))
	assert.Equal(t, []byte("cafebabe"), d.Dispatch([]byte("R0 4")))
}

func TestStreamListReadAndFlush(t *testing.T) {
	s := newTestStore(t, nil, 0)
	d := debugger.New(s, false)
	d.WriteStream('x', []byte("hello"))

	assert.Equal(t, []byte("x"), d.Dispatch([]byte("s")))
	assert.Equal(t, []byte("hello"), d.Dispatch([]byte("sx")))
	// drained: a second read returns nothing (stream exists, just empty)
	assert.Equal(t, []byte(nil), d.Dispatch([]byte("sx")))

	assert.Equal(t, []byte("?"), d.Dispatch([]byte("sy")))
	assert.Equal(t, []byte("!"), d.Dispatch([]byte("f")))
}

func TestTraceArmAndFire(t *testing.T) {
	s := newTestStore(t, []directory.BuildEntry{
		{Name: "/x", Type: byte(store.Int32), Offset: 0},
	}, 4)
	d := debugger.New(s, false)
	require.Equal(t, []byte("!"), d.Dispatch([]byte("w2a000000/x")))
	require.Equal(t, []byte("!"), d.Dispatch([]byte("mM;r/x")))

	require.Equal(t, []byte("!"), d.Dispatch([]byte("tMx")))
	d.Trace()
	assert.Equal(t, []byte("2a000000"), d.Dispatch([]byte("sx")))

	require.Equal(t, []byte("!"), d.Dispatch([]byte("t")))
}
