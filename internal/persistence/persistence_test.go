package persistence

import (
	"testing"

	"github.com/stretchr/testify/require"

	"cardlink/internal/cryptoprim"
	"cardlink/internal/domain"
)

func TestIdentityStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := NewIdentityStore(dir)

	priv, pub, err := cryptoprim.GenerateStaticKeyPair()
	require.NoError(t, err)
	keys := domain.StaticKeyPair{Private: priv, Public: pub}

	require.NoError(t, s.Save("correct-passphrase", keys, []byte("cert-der")))

	gotKeys, gotCert, err := s.Load("correct-passphrase")
	require.NoError(t, err)
	require.Equal(t, keys, gotKeys)
	require.Equal(t, []byte("cert-der"), gotCert)

	_, _, err = s.Load("wrong-passphrase")
	require.ErrorIs(t, err, errWrongPassphrase)
}

func TestContactFileStoreUpsertAndGet(t *testing.T) {
	dir := t.TempDir()
	s := NewContactFileStore(dir)

	require.NoError(t, s.Upsert("fp-a", "Alice", true))
	c, ok, err := s.Get("fp-a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Alice", c.DisplayName)
	firstPin := c.PinnedAt

	require.NoError(t, s.Upsert("fp-a", "Alice Renamed", false))
	c, ok, err = s.Get("fp-a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Alice Renamed", c.DisplayName)
	require.Equal(t, firstPin, c.PinnedAt)
}

func TestContactFileStoreTouchAndGetByEndpoint(t *testing.T) {
	dir := t.TempDir()
	s := NewContactFileStore(dir)

	require.NoError(t, s.Upsert("fp-a", "Alice", true))
	require.NoError(t, s.Touch("fp-a", "203.0.113.1:40000"))

	c, ok, err := s.GetByEndpoint("203.0.113.1:40000")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.Fingerprint("fp-a"), c.Fingerprint)

	_, ok, err = s.GetByEndpoint("203.0.113.1:50000")
	require.NoError(t, err)
	require.False(t, ok)

	require.ErrorIs(t, s.Touch("fp-unknown", "203.0.113.1:40001"), domain.ErrUnknownSession)
}

func TestMessageFileStoreAppendAndHistory(t *testing.T) {
	dir := t.TempDir()
	s := NewMessageFileStore(dir)

	require.NoError(t, s.Append(domain.StoredMessage{PeerFingerprint: "fp-a", UUID: "u1", Text: "hi"}))
	require.NoError(t, s.Append(domain.StoredMessage{PeerFingerprint: "fp-a", UUID: "u2", Text: "there"}))
	require.NoError(t, s.Append(domain.StoredMessage{PeerFingerprint: "fp-b", UUID: "u3", Text: "other peer"}))

	require.NoError(t, s.MarkDelivered("u1"))

	history, err := s.History("fp-a", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.True(t, history[0].Delivered)
	require.False(t, history[1].Delivered)
}

func TestSessionCacheFileStoreSaveLoadForget(t *testing.T) {
	dir := t.TempDir()
	s := NewSessionCacheFileStore(dir)

	var key domain.SessionKey
	key[0] = 1

	require.NoError(t, s.Save("fp-a", domain.CID(9), key))
	cid, gotKey, ok, err := s.Load("fp-a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.CID(9), cid)
	require.Equal(t, key, gotKey)

	require.NoError(t, s.Forget("fp-a"))
	_, _, ok, err = s.Load("fp-a")
	require.NoError(t, err)
	require.False(t, ok)
}
