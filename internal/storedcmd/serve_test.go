package storedcmd

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gostored/libstored/directory"
	"github.com/gostored/libstored/store"
	"github.com/gostored/libstored/transport"
)

func TestServeSessionAnswersCapabilityRequest(t *testing.T) {
	dir, err := directory.Build([]directory.BuildEntry{
		{Name: "/counter", Type: byte(store.Int32), Offset: 0},
	})
	require.NoError(t, err)
	s := store.New(make([]byte, 4), dir, nil, store.Config{})

	client, server := transport.NewInMemoryPipePair()
	clientStack := transport.NewStack(64)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveSession(ctx, s, 64, false, server, zerolog.Nop()) }()

	_, err = client.Write(clientStack.Encode([]byte("?")))
	require.NoError(t, err)

	buf := make([]byte, 256)
	waitUntil(t, func() bool {
		n, _ := client.Read(buf)
		if n == 0 {
			return false
		}
		result := clientStack.Decode(buf[:n])
		if len(result.Messages) == 0 {
			return false
		}
		assert.Contains(t, string(result.Messages[0]), "?")
		return true
	})

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("serveSession did not stop after context cancellation")
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition was never satisfied")
}
