// Package ledger keeps an audit trail of the commands the bot handled.
// User ids are stored as keyed hashes, never in the clear.
package ledger

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"spadesbot/apps/bot/internal/config"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500
	memoryCapacity     = 1000
)

// Entry is one handled command as reported by the router.
type Entry struct {
	At      time.Time
	Scope   string
	UserID  string
	Command string
	Args    []string
	Outcome string
}

// Record is an Entry as stored.
type Record struct {
	Seq      int64
	At       time.Time
	Scope    string
	UserHash string
	Command  string
	Args     []string
	Outcome  string
}

type Service interface {
	// Record stores e. Storage failures are logged, not returned, so a broken
	// ledger never blocks gameplay.
	Record(ctx context.Context, e Entry)
	// Recent returns the latest records of scope, newest first.
	Recent(ctx context.Context, scope string, limit int) ([]Record, error)
	Close() error
}

// NewServiceFromConfig picks the backend named by cfg.LedgerMode and
// reports the mode actually used.
func NewServiceFromConfig(cfg config.Config) (Service, string, error) {
	hasher, err := NewUserHasher(cfg.LedgerKey)
	if err != nil {
		return nil, "", err
	}
	switch cfg.LedgerMode {
	case config.LedgerModeMemory:
		return NewMemoryService(hasher, memoryCapacity), config.LedgerModeMemory, nil
	case config.LedgerModeSQLite:
		s, err := NewSQLiteService(cfg.LedgerPath, hasher)
		if err != nil {
			return nil, "", err
		}
		return s, config.LedgerModeSQLite, nil
	case config.LedgerModePostgres:
		s, err := NewPostgresService(cfg.LedgerDSN, hasher)
		if err != nil {
			return nil, "", err
		}
		return s, config.LedgerModePostgres, nil
	default:
		return nil, "", fmt.Errorf("invalid ledger mode %q", cfg.LedgerMode)
	}
}

// UserHasher turns platform user ids into stable keyed digests.
type UserHasher struct {
	key []byte
}

func NewUserHasher(key string) (*UserHasher, error) {
	k := []byte(strings.TrimSpace(key))
	if len(k) > blake2b.Size {
		sum := blake2b.Sum256(k)
		k = sum[:]
	}
	// validate the key once so Hash can't fail later
	if _, err := blake2b.New256(k); err != nil {
		return nil, fmt.Errorf("ledger key: %w", err)
	}
	return &UserHasher{key: k}, nil
}

func (h *UserHasher) Hash(userID string) string {
	d, _ := blake2b.New256(h.key)
	d.Write([]byte(userID))
	return hex.EncodeToString(d.Sum(nil))
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultRecentLimit
	}
	if limit > maxRecentLimit {
		return maxRecentLimit
	}
	return limit
}

func toRecord(seq int64, h *UserHasher, e Entry) Record {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	return Record{
		Seq:      seq,
		At:       at.UTC(),
		Scope:    e.Scope,
		UserHash: h.Hash(e.UserID),
		Command:  e.Command,
		Args:     append([]string(nil), e.Args...),
		Outcome:  e.Outcome,
	}
}

// MemoryService keeps the most recent records in process memory.
type MemoryService struct {
	mu       sync.Mutex
	hasher   *UserHasher
	capacity int
	nextSeq  int64
	records  []Record
}

func NewMemoryService(h *UserHasher, capacity int) *MemoryService {
	if capacity <= 0 {
		capacity = memoryCapacity
	}
	return &MemoryService{hasher: h, capacity: capacity}
}

func (m *MemoryService) Record(_ context.Context, e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSeq++
	m.records = append(m.records, toRecord(m.nextSeq, m.hasher, e))
	if over := len(m.records) - m.capacity; over > 0 {
		m.records = append([]Record(nil), m.records[over:]...)
	}
}

func (m *MemoryService) Recent(_ context.Context, scope string, limit int) ([]Record, error) {
	limit = clampLimit(limit)
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, 0, limit)
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		if m.records[i].Scope == scope {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}

func (m *MemoryService) Close() error { return nil }
