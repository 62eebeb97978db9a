// AngelaMos | 2026
// memory.go

package token

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/angelamos/gatekeeper/internal/core"
)

// MemoryRepository is a mutex-guarded, map-backed Repository used by tests
// and local tooling. Redeem applies the same conditional-update semantics
// as the SQL implementation, under the lock.
type MemoryRepository struct {
	mu     sync.RWMutex
	tokens map[string]*Token
	ips    map[string]map[string]struct{}
	order  []string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		tokens: make(map[string]*Token),
		ips:    make(map[string]map[string]struct{}),
	}
}

func (m *MemoryRepository) Create(_ context.Context, token *Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tokens[token.Name]; exists {
		return fmt.Errorf("create token: %w", core.ErrDuplicateKey)
	}

	token.CreatedAt = time.Now()
	clone := *token
	m.tokens[token.Name] = &clone
	m.order = append(m.order, token.Name)
	return nil
}

func (m *MemoryRepository) GetByName(
	_ context.Context,
	name string,
) (*Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	token, exists := m.tokens[name]
	if !exists {
		return nil, fmt.Errorf("get token: %w", core.ErrNotFound)
	}

	clone := *token
	return &clone, nil
}

func (m *MemoryRepository) List(_ context.Context) ([]Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tokens := make([]Token, 0, len(m.order))
	for _, name := range m.order {
		if token, exists := m.tokens[name]; exists {
			tokens = append(tokens, *token)
		}
	}
	return tokens, nil
}

func (m *MemoryRepository) Update(_ context.Context, token *Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, exists := m.tokens[token.Name]
	if !exists {
		return fmt.Errorf("update token: %w", core.ErrNotFound)
	}

	stored.ExpirationDate = token.ExpirationDate
	stored.MaxUsage = token.MaxUsage
	stored.Used = token.Used
	stored.Disabled = token.Disabled
	return nil
}

func (m *MemoryRepository) Redeem(
	_ context.Context,
	name string,
) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, exists := m.tokens[name]
	if !exists || !token.Active() {
		return false, nil
	}

	token.Used++
	return true, nil
}

func (m *MemoryRepository) Disable(
	_ context.Context,
	name string,
) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, exists := m.tokens[name]
	if !exists || token.Disabled {
		return false, nil
	}

	token.Disabled = true
	return true, nil
}

func (m *MemoryRepository) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tokens[name]; !exists {
		return fmt.Errorf("delete token: %w", core.ErrNotFound)
	}

	delete(m.tokens, name)
	delete(m.ips, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryRepository) AddIP(
	_ context.Context,
	name, address string,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tokens[name]; !exists {
		return fmt.Errorf("record ip: %w", core.ErrNotFound)
	}

	if m.ips[name] == nil {
		m.ips[name] = make(map[string]struct{})
	}
	m.ips[name][address] = struct{}{}
	return nil
}

func (m *MemoryRepository) AssociatedIPs(
	_ context.Context,
	name string,
) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	addresses := make([]string, 0, len(m.ips[name]))
	for address := range m.ips[name] {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)
	return addresses, nil
}

var _ Repository = (*MemoryRepository)(nil)
