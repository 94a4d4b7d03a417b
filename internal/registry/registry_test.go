package registry_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AxlHim26/gview-server/internal/registry"
)

func TestBindAndLookup(t *testing.T) {
	reg := registry.New()
	reg.Bind("111-222-333", "sess-1")

	sessionID, ok := reg.SessionOf("111-222-333")
	require.True(t, ok)
	assert.Equal(t, "sess-1", sessionID)

	peerID, ok := reg.PeerOf("sess-1")
	require.True(t, ok)
	assert.Equal(t, "111-222-333", peerID)
	assert.Equal(t, 1, reg.ActiveCount())
}

func TestRebindSupersedesOldSession(t *testing.T) {
	reg := registry.New()
	reg.Bind("111-222-333", "sess-1")
	reg.Bind("111-222-333", "sess-2")

	sessionID, ok := reg.SessionOf("111-222-333")
	require.True(t, ok)
	assert.Equal(t, "sess-2", sessionID)

	// The old session must not be left dangling.
	_, ok = reg.PeerOf("sess-1")
	assert.False(t, ok)
	assert.Equal(t, 1, reg.ActiveCount())
}

func TestBindStealsSessionFromOtherPeer(t *testing.T) {
	reg := registry.New()
	reg.Bind("111-222-333", "sess-1")
	reg.Bind("444-555-666", "sess-1")

	peerID, ok := reg.PeerOf("sess-1")
	require.True(t, ok)
	assert.Equal(t, "444-555-666", peerID)

	_, ok = reg.SessionOf("111-222-333")
	assert.False(t, ok)
	assert.Equal(t, 1, reg.ActiveCount())
}

func TestUnbindBySession(t *testing.T) {
	reg := registry.New()
	reg.Bind("111-222-333", "sess-1")

	reg.UnbindBySession("sess-1")
	_, ok := reg.PeerOf("sess-1")
	assert.False(t, ok)
	_, ok = reg.SessionOf("111-222-333")
	assert.False(t, ok)
	assert.Equal(t, 0, reg.ActiveCount())

	// Unknown session is a no-op, not an error.
	reg.UnbindBySession("sess-1")
	assert.Equal(t, 0, reg.ActiveCount())
}

func TestUnbindByPeer(t *testing.T) {
	reg := registry.New()
	reg.Bind("111-222-333", "sess-1")

	reg.UnbindByPeer("111-222-333")
	_, ok := reg.SessionOf("111-222-333")
	assert.False(t, ok)
	_, ok = reg.PeerOf("sess-1")
	assert.False(t, ok)
}

func TestConcurrentBindUnbind(t *testing.T) {
	reg := registry.New()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		peerID := fmt.Sprintf("%03d-000-000", i+100)
		sessionID := fmt.Sprintf("sess-%d", i)
		go func() {
			defer wg.Done()
			reg.Bind(peerID, sessionID)
		}()
		go func() {
			defer wg.Done()
			reg.UnbindBySession(sessionID)
		}()
	}
	wg.Wait()

	// Every surviving binding must be consistent in both directions.
	for i := 0; i < 50; i++ {
		peerID := fmt.Sprintf("%03d-000-000", i+100)
		if sessionID, ok := reg.SessionOf(peerID); ok {
			got, ok := reg.PeerOf(sessionID)
			require.True(t, ok)
			assert.Equal(t, peerID, got)
		}
	}
}
