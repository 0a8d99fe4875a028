package session

import (
	"context"
	"strings"
	"sync"
	"time"
)

// RevocationList records tokens that must no longer be accepted.
//
// Revoke reports ErrAlreadyRevoked for a duplicate; any other error means
// the token could not be revoked. IsRevoked is a pure existence check.
type RevocationList interface {
	Revoke(ctx context.Context, tok string) error
	IsRevoked(ctx context.Context, tok string) (bool, error)
}

// MemoryRevocations is a mutex-guarded in-process RevocationList.
type MemoryRevocations struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocations returns an empty list.
func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (m *MemoryRevocations) Revoke(ctx context.Context, tok string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return ErrInvalidToken
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.revoked[tok]; ok {
		return ErrAlreadyRevoked
	}
	m.revoked[tok] = m.now().UTC()
	return nil
}

func (m *MemoryRevocations) IsRevoked(ctx context.Context, tok string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.revoked[strings.TrimSpace(tok)]
	return ok, nil
}

// Len returns the number of revoked tokens.
func (m *MemoryRevocations) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.revoked)
}
