// Package secwcrypto implements the passphrase-wrapping contract used by the
// SRR save/restore feature and the in-memory hardening applied to decoded
// document secrets.
package secwcrypto

import (
	"sync"

	"github.com/awnumar/memguard"
)

// SecureBytes holds secret bytes in a memguard enclave, so a process
// memory dump does not trivially expose them. It does not change any wire
// or file format; callers still see plain []byte in and out.
// document.Document does not use it: a decoded document keeps its secret
// sub-object in its plain Secret map.
type SecureBytes struct {
	enclave *memguard.Enclave
	mu      sync.RWMutex
	wiped   bool
}

// NewSecureBytes copies data into a protected enclave. memguard wipes the
// caller's data slice once it has been copied.
func NewSecureBytes(data []byte) *SecureBytes {
	return &SecureBytes{enclave: memguard.NewEnclave(data)}
}

// Open decrypts the enclave into a locked buffer. The caller must call
// Destroy on the returned buffer once done with the plaintext.
func (s *SecureBytes) Open() (*memguard.LockedBuffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.wiped {
		return memguard.NewBufferFromBytes([]byte{}), nil
	}
	return s.enclave.Open()
}

// Wipe marks the enclave unusable. Safe to call more than once.
func (s *SecureBytes) Wipe() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.wiped {
		return
	}
	s.enclave = nil
	s.wiped = true
}
