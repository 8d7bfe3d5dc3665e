package types

import "time"

// StoredMessage is one row of the message log persisted through
// PersistenceGateway (spec §6: append/mark_delivered/history).
type StoredMessage struct {
	SessionCID  CID         `json:"session_cid"`
	PeerFingerprint Fingerprint `json:"peer_fingerprint"`
	Direction   Direction   `json:"direction"`
	UUID        string      `json:"uuid"`
	Text        string      `json:"text"`
	Timestamp   time.Time   `json:"timestamp"`
	Delivered   bool        `json:"delivered"`
}

// CachedSession is what SessionCache persists to support resume (spec
// §4.8): the session key keyed by (peer_fingerprint, cid).
type CachedSession struct {
	PeerFingerprint Fingerprint `json:"peer_fingerprint"`
	CID             CID         `json:"cid"`
	SessionKey      SessionKey  `json:"session_key"`
	UpdatedAt       time.Time   `json:"updated_at"`
}
