package session

import (
	"sync"

	"ocppcs/models"
)

// MemoryStore keeps transactions in memory. It backs the manager when no
// database is configured; everything is lost on restart.
type MemoryStore struct {
	mux          sync.Mutex
	transactions map[int]*models.Transaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{transactions: make(map[int]*models.Transaction)}
}

func (s *MemoryStore) AddTransaction(t *models.Transaction) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	copied := *t
	s.transactions[t.Id] = &copied
	return nil
}

func (s *MemoryStore) UpdateTransaction(t *models.Transaction) error {
	return s.AddTransaction(t)
}

func (s *MemoryStore) GetTransaction(id int) (*models.Transaction, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if t, ok := s.transactions[id]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, nil
}

func (s *MemoryStore) GetTransactionByRef(ref string) (*models.Transaction, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	for _, t := range s.transactions {
		if t.Ref == ref {
			copied := *t
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) GetLastTransaction() (*models.Transaction, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	var last *models.Transaction
	for _, t := range s.transactions {
		if last == nil || t.Id > last.Id {
			last = t
		}
	}
	if last == nil {
		return nil, nil
	}
	copied := *last
	return &copied, nil
}

func (s *MemoryStore) FindOpenTransaction(chargePointId string, connectorId int) (*models.Transaction, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	for _, t := range s.transactions {
		if t.ChargePointId == chargePointId && t.ConnectorId == connectorId && !t.IsFinished {
			copied := *t
			return &copied, nil
		}
	}
	return nil, nil
}

// FindOpenTransactionByTag serves the concurrency policy lookup in
// database-less mode.
func (s *MemoryStore) FindOpenTransactionByTag(idTag string) (*models.Transaction, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	for _, t := range s.transactions {
		if t.IdTag == idTag && !t.IsFinished {
			copied := *t
			return &copied, nil
		}
	}
	return nil, nil
}
