package accounts

import (
	"context"
	"fmt"
	"maps"
	"sync"
)

type memRecord struct {
	flag  any
	usage map[string]int64
}

// Memory is an in-process Store. The zero value is not usable, use NewMemory.
type Memory struct {
	mu       sync.RWMutex
	accounts map[string]*memRecord
}

var (
	_ Store       = (*Memory)(nil)
	_ Incrementer = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{accounts: make(map[string]*memRecord)}
}

// SetSubscriptionFlag stores the raw flag of an account, creating the account
// when needed.
func (m *Memory) SetSubscriptionFlag(accountID string, flag any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(accountID).flag = flag
}

func (m *Memory) ReadSubscriptionFlag(ctx context.Context, accountID string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.accounts[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return rec.flag, nil
}

func (m *Memory) ReadUsageCounter(ctx context.Context, accountID, feature string) (int64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.accounts[accountID]
	if !ok {
		return 0, false, nil
	}
	n, ok := rec.usage[feature]
	return n, ok, nil
}

func (m *Memory) WriteUsageCounter(ctx context.Context, accountID, feature string, value int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if value < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCounter, value)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(accountID).usage[feature] = value
	return nil
}

func (m *Memory) IncrementUsageCounter(ctx context.Context, accountID, feature string, delta int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.record(accountID)
	next := rec.usage[feature] + delta
	if next < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidCounter, next)
	}
	rec.usage[feature] = next
	return next, nil
}

// Usage returns a copy of all counters of an account.
func (m *Memory) Usage(accountID string) map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.accounts[accountID]
	if !ok {
		return map[string]int64{}
	}
	return maps.Clone(rec.usage)
}

// record must be called with the write lock held.
func (m *Memory) record(accountID string) *memRecord {
	rec, ok := m.accounts[accountID]
	if !ok {
		rec = &memRecord{usage: make(map[string]int64)}
		m.accounts[accountID] = rec
	}
	return rec
}
