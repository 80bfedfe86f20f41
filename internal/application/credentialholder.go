package application

import (
	"sync"

	"github.com/fduhole/dxkit/internal/domain/model"
)

// CredentialHolder holds the current credential behind an RWMutex. The HTTP
// client reads the access token from it on every request; only Session
// replaces it, after the credential has been persisted.
type CredentialHolder struct {
	mu   sync.RWMutex
	cred *model.Credential
}

// NewCredentialHolder creates a holder with the given initial credential,
// which may be nil when signed out.
func NewCredentialHolder(cred *model.Credential) *CredentialHolder {
	h := &CredentialHolder{}
	h.Replace(cred)
	return h
}

// Get returns a copy of the current credential, or nil when signed out.
func (h *CredentialHolder) Get() *model.Credential {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.cred == nil {
		return nil
	}
	c := *h.cred
	return &c
}

// AccessToken returns the current access token, or "" when signed out.
func (h *CredentialHolder) AccessToken() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.cred == nil {
		return ""
	}
	return h.cred.Access
}

// Replace swaps the held credential. A nil credential signs out.
func (h *CredentialHolder) Replace(cred *model.Credential) {
	var stored *model.Credential
	if cred != nil {
		c := *cred
		stored = &c
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.cred = stored
}

// HasCredential returns true if a credential is currently held.
func (h *CredentialHolder) HasCredential() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cred != nil
}
