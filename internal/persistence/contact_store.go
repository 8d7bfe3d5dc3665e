package persistence

import (
	"net"
	"time"

	"cardlink/internal/domain"
)

const contactsFilename = "contacts.json"

// ContactFileStore is the file-backed domain.ContactStore: one JSON file
// holding every TOFU-pinned contact (spec §6).
type ContactFileStore struct {
	file *jsonFile
}

// NewContactFileStore returns a ContactFileStore rooted at dir.
func NewContactFileStore(dir string) *ContactFileStore {
	return &ContactFileStore{file: newJSONFile(dir, contactsFilename)}
}

type contactsFile struct {
	Contacts map[domain.Fingerprint]domain.Contact `json:"contacts"`
}

// Upsert pins or updates a contact. firstSeen is accepted for interface
// symmetry with the original sighting event but does not change the
// write itself: PinnedAt is set only the first time a fingerprint is
// seen.
func (s *ContactFileStore) Upsert(fp domain.Fingerprint, displayName string, firstSeen bool) error {
	var f contactsFile
	return s.file.update(&f, 0o600, func() error {
		if f.Contacts == nil {
			f.Contacts = make(map[domain.Fingerprint]domain.Contact)
		}
		c, existed := f.Contacts[fp]
		c.Fingerprint = fp
		c.DisplayName = displayName
		if !existed {
			c.PinnedAt = time.Now()
		}
		f.Contacts[fp] = c
		return nil
	})
}

// Get returns the contact for fp, if pinned.
func (s *ContactFileStore) Get(fp domain.Fingerprint) (domain.Contact, bool, error) {
	var f contactsFile
	if err := s.file.view(&f); err != nil {
		return domain.Contact{}, false, err
	}
	c, ok := f.Contacts[fp]
	return c, ok, nil
}

// GetByEndpoint returns the contact whose LastSeenEndpoint matches
// endpoint, if any — the reverse of Get, keyed by transport address
// instead of fingerprint. This is what lets IdentityBinding catch spec
// §4.3's "the endpoint previously served a different fingerprint" case:
// a fingerprint that's never been pinned before can still collide with
// one already associated with this address.
func (s *ContactFileStore) GetByEndpoint(endpoint string) (domain.Contact, bool, error) {
	var f contactsFile
	if err := s.file.view(&f); err != nil {
		return domain.Contact{}, false, err
	}
	for _, c := range f.Contacts {
		if c.LastSeenEndpoint != nil && c.LastSeenEndpoint.String() == endpoint {
			return c, true, nil
		}
	}
	return domain.Contact{}, false, nil
}

// List returns every pinned contact.
func (s *ContactFileStore) List() ([]domain.Contact, error) {
	var f contactsFile
	if err := s.file.view(&f); err != nil {
		return nil, err
	}
	out := make([]domain.Contact, 0, len(f.Contacts))
	for _, c := range f.Contacts {
		out = append(out, c)
	}
	return out, nil
}

// Touch records the most recently observed UDP endpoint for fp.
func (s *ContactFileStore) Touch(fp domain.Fingerprint, endpoint string) error {
	var f contactsFile
	return s.file.update(&f, 0o600, func() error {
		c, ok := f.Contacts[fp]
		if !ok {
			return domain.ErrUnknownSession
		}
		if addr, err := net.ResolveUDPAddr("udp", endpoint); err == nil {
			c.LastSeenEndpoint = addr
		}
		f.Contacts[fp] = c
		return nil
	})
}

var _ domain.ContactStore = (*ContactFileStore)(nil)
