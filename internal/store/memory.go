package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tuanngo/cashbook/internal/domain"
)

// MemoryStore is an in-memory TransactionStore and ImportRunStore, safe for
// concurrent use. Data is lost on restart; it backs tests and local runs
// without GCP credentials.
type MemoryStore struct {
	mu   sync.RWMutex
	txs  map[int64]domain.Transaction
	runs map[string]*ImportRun
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		txs:  make(map[int64]domain.Transaction),
		runs: make(map[string]*ImportRun),
	}
}

func (s *MemoryStore) Insert(ctx context.Context, tx domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.txs[tx.ID]; exists {
		return fmt.Errorf("MemoryStore.Insert: duplicate id %d", tx.ID)
	}
	s.txs[tx.ID] = tx
	return nil
}

func (s *MemoryStore) BulkInsert(ctx context.Context, txs []domain.Transaction) error {
	for _, tx := range txs {
		if err := s.Insert(ctx, tx); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, tx domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.txs[tx.ID]; !exists {
		return fmt.Errorf("MemoryStore.Update: id %d not found", tx.ID)
	}
	s.txs[tx.ID] = tx
	return nil
}

func (s *MemoryStore) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for _, id := range ids {
		if _, exists := s.txs[id]; exists {
			delete(s.txs, id)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Transaction, 0, len(s.txs))
	for _, tx := range s.txs {
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) StartRun(ctx context.Context, source, filename string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runID := uuid.NewString()
	s.runs[runID] = &ImportRun{
		RunID:     runID,
		Source:    source,
		Filename:  filename,
		Status:    RunStatusRunning,
		StartedAt: time.Now(),
	}
	return runID, nil
}

func (s *MemoryStore) MarkRunSucceeded(ctx context.Context, runID string, accepted, rejected int) error {
	return s.finishRun(runID, RunStatusSuccess, "", accepted, rejected)
}

func (s *MemoryStore) MarkRunFailed(ctx context.Context, runID string, runErr error) error {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	return s.finishRun(runID, RunStatusFailed, msg, 0, 0)
}

func (s *MemoryStore) finishRun(runID, status, msg string, accepted, rejected int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, exists := s.runs[runID]
	if !exists {
		return fmt.Errorf("MemoryStore: run %s not found", runID)
	}
	now := time.Now()
	run.Status = status
	run.Error = msg
	run.FinishedAt = &now
	run.Accepted = accepted
	run.Rejected = rejected
	return nil
}

// GetRun returns a copy of the run record, for tests and status endpoints.
func (s *MemoryStore) GetRun(runID string) (ImportRun, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.runs[runID]
	if !exists {
		return ImportRun{}, false
	}
	return *run, true
}

var (
	_ TransactionStore = (*MemoryStore)(nil)
	_ ImportRunStore   = (*MemoryStore)(nil)
)
