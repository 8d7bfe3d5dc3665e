package sessiontable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cardlink/internal/domain"
	"cardlink/internal/record"
)

func newSession(cid domain.CID, fp domain.Fingerprint) *Session {
	var key domain.SessionKey
	return &Session{
		CID:          cid,
		PeerIdentity: domain.Identity{Fingerprint: fp},
		State:        domain.SessionEstablished,
		Layer:        record.NewLayer(key),
		SeenUUIDs:    map[string]struct{}{},
		CreatedAt:    time.Now(),
	}
}

func TestAllocateCIDAvoidsInUse(t *testing.T) {
	tbl := NewTable()
	sess := newSession(1, "peer-a")
	tbl.Insert(sess)

	for i := 0; i < 100; i++ {
		cid, err := tbl.AllocateCID()
		require.NoError(t, err)
		require.NotEqual(t, domain.CID(1), cid)
	}
}

func TestInsertSupersedesOlderSessionForSamePeer(t *testing.T) {
	tbl := NewTable()
	old := newSession(1, "peer-a")
	tbl.Insert(old)

	newer := newSession(2, "peer-a")
	superseded := tbl.Insert(newer)

	require.Same(t, old, superseded)
	require.Equal(t, domain.SessionClosed, old.State)

	got, ok := tbl.GetByPeer("peer-a")
	require.True(t, ok)
	require.Same(t, newer, got)

	_, stillThere := tbl.Get(1)
	require.False(t, stillThere)
}

func TestRemovePlacesCIDOnCooldown(t *testing.T) {
	tbl := NewTable()
	sess := newSession(5, "peer-a")
	tbl.Insert(sess)
	tbl.Remove(5)

	_, ok := tbl.Get(5)
	require.False(t, ok)

	_, cooling := tbl.allocator.cooldown[5]
	require.True(t, cooling)
}
