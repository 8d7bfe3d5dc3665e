package persistence

import (
	"time"

	"cardlink/internal/domain"
)

const sessionCacheFilename = "session_cache.json"

// SessionCacheFileStore is the file-backed domain.SessionCache: the
// resume table keyed by peer fingerprint, caching the last session key
// and CID used with that peer (spec §4.8, §6).
type SessionCacheFileStore struct {
	file *jsonFile
}

// NewSessionCacheFileStore returns a SessionCacheFileStore rooted at dir.
func NewSessionCacheFileStore(dir string) *SessionCacheFileStore {
	return &SessionCacheFileStore{file: newJSONFile(dir, sessionCacheFilename)}
}

type sessionCacheFile struct {
	Entries map[domain.Fingerprint]domain.CachedSession `json:"entries"`
}

// Save caches key for peer/cid, overwriting any previous entry.
func (s *SessionCacheFileStore) Save(peer domain.Fingerprint, cid domain.CID, key domain.SessionKey) error {
	var f sessionCacheFile
	return s.file.update(&f, 0o600, func() error {
		if f.Entries == nil {
			f.Entries = make(map[domain.Fingerprint]domain.CachedSession)
		}
		f.Entries[peer] = domain.CachedSession{PeerFingerprint: peer, CID: cid, SessionKey: key, UpdatedAt: time.Now()}
		return nil
	})
}

// Load returns the cached session for peer, if any.
func (s *SessionCacheFileStore) Load(peer domain.Fingerprint) (domain.CID, domain.SessionKey, bool, error) {
	var f sessionCacheFile
	if err := s.file.view(&f); err != nil {
		return 0, domain.SessionKey{}, false, err
	}
	entry, ok := f.Entries[peer]
	if !ok {
		return 0, domain.SessionKey{}, false, nil
	}
	return entry.CID, entry.SessionKey, true, nil
}

// Forget discards the cached session for peer, forcing a fresh handshake
// next time.
func (s *SessionCacheFileStore) Forget(peer domain.Fingerprint) error {
	var f sessionCacheFile
	return s.file.update(&f, 0o600, func() error {
		delete(f.Entries, peer)
		return nil
	})
}

var _ domain.SessionCache = (*SessionCacheFileStore)(nil)
