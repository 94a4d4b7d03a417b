package directory_test

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AxlHim26/gview-server/internal/directory"
	"github.com/AxlHim26/gview-server/internal/directory/store"
)

var peerIDPattern = regexp.MustCompile(`^\d{3}-\d{3}-\d{3}$`)

func setupDirectory(t *testing.T) *directory.Directory {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	s := store.NewPebbleStore(t.TempDir()+"/peers", logger)
	require.NoError(t, s.Init())
	t.Cleanup(func() { s.Close() })
	return directory.New(s, logger)
}

func TestRegisterGeneratesFormattedUniqueIDs(t *testing.T) {
	dir := setupDirectory(t)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		peerID, err := dir.Register("pw")
		require.NoError(t, err)
		assert.Regexp(t, peerIDPattern, peerID)
		assert.False(t, seen[peerID], "duplicate peer id generated: %s", peerID)
		seen[peerID] = true
	}
}

// saturatedStore reports every candidate id as taken.
type saturatedStore struct{}

func (saturatedStore) Init() error                         { return nil }
func (saturatedStore) Close() error                        { return nil }
func (saturatedStore) Get(string) (*directory.Peer, error) { return nil, directory.ErrNotFound }
func (saturatedStore) Put(*directory.Peer) error           { return nil }
func (saturatedStore) Exists(string) (bool, error)         { return true, nil }

func TestRegisterExhaustedRetries(t *testing.T) {
	dir := directory.New(saturatedStore{}, zap.NewNop())

	_, err := dir.Register("pw")
	assert.True(t, errors.Is(err, directory.ErrExhaustedRetries))
}

func TestAuthenticate(t *testing.T) {
	dir := setupDirectory(t)
	peerID, err := dir.Register("pw1")
	require.NoError(t, err)

	assert.True(t, dir.Authenticate(peerID, "pw1"))
	assert.False(t, dir.Authenticate(peerID, "wrong"))
	// Unknown peer and wrong credential are indistinguishable.
	assert.False(t, dir.Authenticate("000-000-000", "pw1"))
}

func TestUpdateConnectionInfo(t *testing.T) {
	dir := setupDirectory(t)
	peerID, err := dir.Register("pw1")
	require.NoError(t, err)

	require.NoError(t, dir.UpdateConnectionInfo(peerID, "10.0.0.5", 4200, "sess-1"))

	result, err := dir.Lookup(peerID)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", result.IPAddress)
	assert.Equal(t, 4200, result.Port)
	assert.True(t, result.Online)
	assert.True(t, dir.IsOnline(peerID))

	// A second call with a new session supersedes the first.
	require.NoError(t, dir.UpdateConnectionInfo(peerID, "10.0.0.5", 4200, "sess-2"))
	assert.True(t, dir.IsOnline(peerID))
}

func TestUpdateConnectionInfoUnknownPeer(t *testing.T) {
	dir := setupDirectory(t)

	err := dir.UpdateConnectionInfo("000-000-000", "10.0.0.5", 4200, "sess-1")
	assert.True(t, errors.Is(err, directory.ErrNotFound))
}

func TestMarkOffline(t *testing.T) {
	dir := setupDirectory(t)
	peerID, err := dir.Register("pw1")
	require.NoError(t, err)
	require.NoError(t, dir.UpdateConnectionInfo(peerID, "10.0.0.5", 4200, "sess-1"))

	dir.MarkOffline(peerID)
	assert.False(t, dir.IsOnline(peerID))

	result, err := dir.Lookup(peerID)
	require.NoError(t, err)
	assert.False(t, result.Online)

	// Unknown peer is a no-op, not a panic or error.
	dir.MarkOffline("000-000-000")
}

func TestHeartbeatUnknownPeerIgnored(t *testing.T) {
	dir := setupDirectory(t)
	dir.Heartbeat("000-000-000")
}

func TestLookupUnknownPeer(t *testing.T) {
	dir := setupDirectory(t)

	_, err := dir.Lookup("000-000-000")
	assert.True(t, errors.Is(err, directory.ErrNotFound))
}

func TestIsOnlineUnknownPeer(t *testing.T) {
	dir := setupDirectory(t)
	assert.False(t, dir.IsOnline("000-000-000"))
}

// Full lifecycle: register, connect, lookup, offline.
func TestPeerLifecycle(t *testing.T) {
	dir := setupDirectory(t)

	peerID, err := dir.Register("pw1")
	require.NoError(t, err)
	assert.Regexp(t, peerIDPattern, peerID)
	assert.False(t, dir.IsOnline(peerID))

	require.NoError(t, dir.UpdateConnectionInfo(peerID, "192.168.1.20", 5900, "sess-abc"))
	assert.True(t, dir.IsOnline(peerID))

	result, err := dir.Lookup(peerID)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.20", result.IPAddress)
	assert.Equal(t, 5900, result.Port)
	assert.True(t, result.Online)

	dir.Heartbeat(peerID)

	dir.MarkOffline(peerID)
	result, err = dir.Lookup(peerID)
	require.NoError(t, err)
	assert.False(t, result.Online)
}
