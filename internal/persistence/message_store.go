package persistence

import (
	"cardlink/internal/domain"
)

const messagesFilename = "messages.json"

// MessageFileStore is the file-backed domain.MessageStore: an append-only
// log of every sent and received message, read from disk and rewritten
// wholesale on every change (spec §6). Acceptable for the single-process,
// single-user scope this core targets.
type MessageFileStore struct {
	file *jsonFile
}

// NewMessageFileStore returns a MessageFileStore rooted at dir.
func NewMessageFileStore(dir string) *MessageFileStore {
	return &MessageFileStore{file: newJSONFile(dir, messagesFilename)}
}

type messagesFile struct {
	Messages []domain.StoredMessage `json:"messages"`
}

// Append adds msg to the log.
func (s *MessageFileStore) Append(msg domain.StoredMessage) error {
	var f messagesFile
	return s.file.update(&f, 0o600, func() error {
		f.Messages = append(f.Messages, msg)
		return nil
	})
}

// MarkDelivered flips the Delivered flag on the message with the given
// UUID.
func (s *MessageFileStore) MarkDelivered(uuid string) error {
	var f messagesFile
	return s.file.update(&f, 0o600, func() error {
		for i := range f.Messages {
			if f.Messages[i].UUID == uuid {
				f.Messages[i].Delivered = true
				return nil
			}
		}
		return domain.ErrUnknownSession
	})
}

// History returns up to limit most-recent messages exchanged with peer,
// newest last.
func (s *MessageFileStore) History(peer domain.Fingerprint, limit int) ([]domain.StoredMessage, error) {
	var f messagesFile
	if err := s.file.view(&f); err != nil {
		return nil, err
	}
	var matching []domain.StoredMessage
	for _, m := range f.Messages {
		if m.PeerFingerprint == peer {
			matching = append(matching, m)
		}
	}
	if limit > 0 && len(matching) > limit {
		matching = matching[len(matching)-limit:]
	}
	return matching, nil
}

var _ domain.MessageStore = (*MessageFileStore)(nil)
