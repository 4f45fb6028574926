package dedup

import (
	"context"
	"sync"
)

// MemoryStore keeps records in process memory. Used for local runs and tests.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) IsAlreadyNotified(ctx context.Context, transactionID, payeeKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[memoryKey(transactionID, payeeKey)]
	return ok, nil
}

func (s *MemoryStore) MarkNotified(ctx context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[memoryKey(record.TransactionID, record.PayeeKey)] = record
	return nil
}

func (s *MemoryStore) Claim(ctx context.Context, record Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memoryKey(record.TransactionID, record.PayeeKey)
	if _, ok := s.records[key]; ok {
		return false, nil
	}
	s.records[key] = record
	return true, nil
}

func (s *MemoryStore) Release(ctx context.Context, transactionID, payeeKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, memoryKey(transactionID, payeeKey))
	return nil
}

// Get returns the stored record for the pair.
func (s *MemoryStore) Get(transactionID, payeeKey string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[memoryKey(transactionID, payeeKey)]
	return r, ok
}

func memoryKey(transactionID, payeeKey string) string {
	return transactionID + "\x00" + payeeKey
}
