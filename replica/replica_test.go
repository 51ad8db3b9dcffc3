package replica_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gostored/libstored/directory"
	"github.com/gostored/libstored/replica"
	"github.com/gostored/libstored/store"
	"github.com/gostored/libstored/transport"
)

type harness struct {
	store *store.Store
	hub   *replica.Hub
	peer  *replica.Peer
}

func newHarness(t *testing.T, localID uint16, pipeRW *transport.InMemoryPipe) *harness {
	t.Helper()
	dir, err := directory.Build([]directory.BuildEntry{
		{Name: "/x", Type: byte(store.Int32), Offset: 0},
		{Name: "/y", Type: byte(store.Int32), Offset: 4},
	})
	require.NoError(t, err)

	hub := replica.NewHub()
	s := store.New(make([]byte, 8), dir, nil, store.Config{Hooks: hub})
	schema := replica.NewSchema(len(s.Buffer()), binary.BigEndian)
	pipe := transport.NewPipe(pipeRW, transport.NewStack(64), 4096)
	peer := replica.NewPeer(s, schema, pipe, hub, localID, noopLogger())

	return &harness{store: s, hub: hub, peer: peer}
}

func handshake(t *testing.T, a, b *harness) {
	t.Helper()
	require.NoError(t, a.peer.Open())
	// Deliver a's Hello to b, b's Welcome back to a.
	for i := 0; i < 4; i++ {
		require.NoError(t, b.peer.Poll())
		require.NoError(t, a.peer.Poll())
		if a.peer.State() == replica.Connected && b.peer.State() == replica.Connected {
			break
		}
	}
	require.Equal(t, replica.Connected, a.peer.State())
	require.Equal(t, replica.Connected, b.peer.State())
}

func setInt32(t *testing.T, s *store.Store, name string, v int32) {
	t.Helper()
	variant := s.Find(name)
	require.True(t, variant.Valid())
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(v))
	_, err := variant.Set(buf)
	require.NoError(t, err)
}

func getInt32(t *testing.T, s *store.Store, name string) int32 {
	t.Helper()
	variant := s.Find(name)
	require.True(t, variant.Valid())
	buf := make([]byte, 4)
	_, err := variant.Get(buf)
	require.NoError(t, err)
	return int32(binary.LittleEndian.Uint32(buf))
}

func TestHandshakeConverges(t *testing.T) {
	rwA, rwB := transport.NewInMemoryPipePair()
	a := newHarness(t, 1, rwA)
	b := newHarness(t, 2, rwB)

	setInt32(t, a.store, "/x", 42)
	handshake(t, a, b)

	// Welcome carried a's buffer at handshake time.
	assert.Equal(t, int32(42), getInt32(t, b.store, "/x"))
}

func TestUpdatePropagatesAndSuppressesEcho(t *testing.T) {
	rwA, rwB := transport.NewInMemoryPipePair()
	a := newHarness(t, 1, rwA)
	b := newHarness(t, 2, rwB)
	handshake(t, a, b)

	setInt32(t, a.store, "/x", 7)
	require.NoError(t, a.peer.Process())
	require.NoError(t, b.peer.Poll())

	assert.Equal(t, int32(7), getInt32(t, b.store, "/x"))

	// a moves on locally; an echo of its own update from b would put 7 back.
	setInt32(t, a.store, "/x", 9)

	// b's own journal must not have been dirtied by applying a's update
	// (echo-suppression): Process on b should have nothing to send.
	require.NoError(t, b.peer.Process())
	require.NoError(t, a.peer.Poll())
	assert.Equal(t, int32(9), getInt32(t, a.store, "/x"))
	assert.Equal(t, int32(0), getInt32(t, a.store, "/y")) // unrelated, sanity
}

func TestBidirectionalConvergence(t *testing.T) {
	rwA, rwB := transport.NewInMemoryPipePair()
	a := newHarness(t, 1, rwA)
	b := newHarness(t, 2, rwB)
	handshake(t, a, b)

	setInt32(t, a.store, "/x", 100)
	setInt32(t, b.store, "/y", 200)

	require.NoError(t, a.peer.Process())
	require.NoError(t, b.peer.Process())
	require.NoError(t, a.peer.Poll())
	require.NoError(t, b.peer.Poll())

	assert.Equal(t, int32(100), getInt32(t, b.store, "/x"))
	assert.Equal(t, int32(200), getInt32(t, a.store, "/y"))
}

func TestByeResetsState(t *testing.T) {
	rwA, rwB := transport.NewInMemoryPipePair()
	a := newHarness(t, 1, rwA)
	b := newHarness(t, 2, rwB)
	handshake(t, a, b)

	require.NoError(t, a.peer.Close())
	require.NoError(t, b.peer.Poll())

	assert.Equal(t, replica.Disconnected, b.peer.State())
}

func TestSchemaHashMismatchRejected(t *testing.T) {
	rwA, rwB := transport.NewInMemoryPipePair()
	a := newHarness(t, 1, rwA)

	dir, err := directory.Build([]directory.BuildEntry{
		{Name: "/z", Type: byte(store.Int64), Offset: 0},
	})
	require.NoError(t, err)
	hub := replica.NewHub()
	s := store.New(make([]byte, 8), dir, nil, store.Config{Hooks: hub})
	schema := replica.NewSchema(len(s.Buffer()), binary.BigEndian)
	pipe := transport.NewPipe(rwB, transport.NewStack(64), 4096)
	mismatched := replica.NewPeer(s, schema, pipe, hub, 2, noopLogger())

	require.NoError(t, a.peer.Open())
	require.NoError(t, mismatched.Poll())
	require.NoError(t, a.peer.Poll())

	assert.Equal(t, replica.Disconnected, a.peer.State())
}
