package sdk

import (
	"encoding/json"
	"time"
)

// Credential is the triple identifying an authenticated client. It is either
// complete or treated as absent.
type Credential struct {
	AccessToken string
	SessionID   string
	ExpiresAt   time.Time
}

// credentialRecord is the persisted shape. Expiry is stored as epoch millis.
type credentialRecord struct {
	AccessToken string `json:"access_token"`
	SessionID   string `json:"session_id"`
	ExpiresAtMs int64  `json:"expires_at_ms"`
}

// Complete reports whether all three fields are set.
func (c *Credential) Complete() bool {
	return c != nil && c.AccessToken != "" && c.SessionID != "" && !c.ExpiresAt.IsZero()
}

// IsExpired reports whether now is past the expiry instant.
func (c *Credential) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// ExpiresAtMillis returns the expiry as epoch milliseconds.
func (c *Credential) ExpiresAtMillis() int64 {
	if c.ExpiresAt.IsZero() {
		return 0
	}
	return c.ExpiresAt.UnixMilli()
}

func (c Credential) MarshalJSON() ([]byte, error) {
	return json.Marshal(credentialRecord{
		AccessToken: c.AccessToken,
		SessionID:   c.SessionID,
		ExpiresAtMs: c.ExpiresAtMillis(),
	})
}

func (c *Credential) UnmarshalJSON(data []byte) error {
	var rec credentialRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	c.AccessToken = rec.AccessToken
	c.SessionID = rec.SessionID
	c.ExpiresAt = time.Time{}
	if rec.ExpiresAtMs > 0 {
		c.ExpiresAt = time.UnixMilli(rec.ExpiresAtMs)
	}
	return nil
}

// CredentialStore is the persistence medium behind a TokenStore.
// Load returns (nil, nil) when nothing is stored.
type CredentialStore interface {
	Save(credential *Credential) error
	Load() (*Credential, error)
	Delete() error
}
