package sdk

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// TokenStore owns the current credential. Expiry is evaluated lazily on Read;
// there is no background timer. Store, Read and Clear are mutually exclusive.
type TokenStore struct {
	mu    sync.Mutex
	store CredentialStore
	now   func() time.Time
}

// TokenStoreOption configures a TokenStore.
type TokenStoreOption func(*TokenStore)

// WithClock overrides the time source used for expiry computation.
func WithClock(now func() time.Time) TokenStoreOption {
	return func(t *TokenStore) {
		t.now = now
	}
}

// NewTokenStore wraps the given persistence medium. A nil medium falls back to
// an in-memory store.
func NewTokenStore(store CredentialStore, opts ...TokenStoreOption) *TokenStore {
	if store == nil {
		store = NewMemoryStore()
	}
	t := &TokenStore{store: store, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Store persists a new credential expiring expiresIn from now. The triple is
// written in a single call to the medium.
func (t *TokenStore) Store(accessToken, sessionID string, expiresIn time.Duration) (*Credential, error) {
	if accessToken == "" || sessionID == "" || expiresIn <= 0 {
		return nil, ErrInvalidCredential
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	cred := &Credential{
		AccessToken: accessToken,
		SessionID:   sessionID,
		ExpiresAt:   t.now().Add(expiresIn),
	}
	if err := t.store.Save(cred); err != nil {
		return nil, fmt.Errorf("failed to save credential: %w", err)
	}
	c := *cred
	return &c, nil
}

// Read returns the stored credential, or nil when none is stored, the stored
// record is partial, or it has expired. Partial and expired records are
// removed from the medium.
func (t *TokenStore) Read() (*Credential, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cred, err := t.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	if cred == nil {
		return nil, nil
	}
	if !cred.Complete() || cred.IsExpired(t.now()) {
		if err := t.store.Delete(); err != nil {
			return nil, fmt.Errorf("failed to discard stale credential: %w", err)
		}
		return nil, nil
	}
	return cred, nil
}

// Clear removes the stored credential. Clearing an empty store is a no-op.
func (t *TokenStore) Clear() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.store.Delete(); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

// ClearIf removes the stored credential only while it still matches sent,
// and reports whether it did. A credential stored after sent was read is left
// in place.
func (t *TokenStore) ClearIf(sent *Credential) (bool, error) {
	if sent == nil {
		return false, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	current, err := t.store.Load()
	if err != nil {
		return false, fmt.Errorf("failed to load credential: %w", err)
	}
	if current == nil || current.AccessToken != sent.AccessToken || current.SessionID != sent.SessionID {
		return false, nil
	}
	if err := t.store.Delete(); err != nil {
		return false, fmt.Errorf("failed to delete credential: %w", err)
	}
	return true, nil
}

func bearerToken(cred *Credential) *oauth2.Token {
	return &oauth2.Token{
		AccessToken: cred.AccessToken,
		TokenType:   "Bearer",
		Expiry:      cred.ExpiresAt,
	}
}
