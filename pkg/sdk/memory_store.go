package sdk

import "sync"

// MemoryStore keeps a credential in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	cred *Credential
}

var _ CredentialStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Save(credential *Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if credential == nil {
		m.cred = nil
		return nil
	}
	c := *credential
	m.cred = &c
	return nil
}

func (m *MemoryStore) Load() (*Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cred == nil {
		return nil, nil
	}
	c := *m.cred
	return &c, nil
}

func (m *MemoryStore) Delete() error {
	m.mu.Lock()
	m.cred = nil
	m.mu.Unlock()
	return nil
}
