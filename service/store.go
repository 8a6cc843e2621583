package service

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/pslima001/govy-function-current-sub002/config"
	"github.com/pslima001/govy-function-current-sub002/model"
)

// EditalStore is an in-memory registry of uploaded editais. Records are
// copied in and out so callers never share a pointer with the store.
type EditalStore struct {
	editais    map[string]*model.Edital
	mu         sync.RWMutex
	maxEditais int // 0 = unlimited
}

var (
	globalStore *EditalStore
	storeOnce   sync.Once
)

// NewEditalStore creates a store keeping at most maxEditais records.
func NewEditalStore(maxEditais int) *EditalStore {
	if maxEditais < 0 {
		maxEditais = 0
	}
	return &EditalStore{
		editais:    make(map[string]*model.Edital),
		maxEditais: maxEditais,
	}
}

// InitEditalStore initializes the global edital store with configuration
func InitEditalStore(cfg *config.StoreConfig) {
	storeOnce.Do(func() {
		globalStore = NewEditalStore(cfg.MaxEditais)
		slog.Info("edital store initialized", "max_editais", globalStore.maxEditais)
	})
}

// GetEditalStore returns the global edital store
func GetEditalStore() *EditalStore {
	storeOnce.Do(func() {
		globalStore = NewEditalStore(100)
	})
	return globalStore
}

func (s *EditalStore) Save(e *model.Edital) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *e
	stored.UpdatedAt = time.Now()
	s.editais[e.ID] = &stored

	s.cleanupIfNeeded()
}

func (s *EditalStore) Get(id string) *model.Edital {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.editais[id]
	if !ok {
		return nil
	}
	out := *e
	return &out
}

// GetByTenant returns the tenant's editais, newest first.
func (s *EditalStore) GetByTenant(tenant string) []*model.Edital {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.Edital, 0)
	for _, e := range s.editais {
		if e.Tenant == tenant {
			out := *e
			result = append(result, &out)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// FindByObject returns the edital whose uploaded object is objectName.
func (s *EditalStore) FindByObject(objectName string) *model.Edital {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.editais {
		if e.ObjectName == objectName {
			out := *e
			return &out
		}
	}
	return nil
}

func (s *EditalStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.editais, id)
}

func (s *EditalStore) UpdateStatus(id, status string, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.editais[id]; ok {
		e.Status = status
		e.ErrorMsg = errMsg
		e.UpdatedAt = time.Now()
	}
}

func (s *EditalStore) UpdateTaskID(id, taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.editais[id]; ok {
		e.MineruTaskID = taskID
		e.Status = model.StatusProcessing
		e.UpdatedAt = time.Now()
	}
}

// UpdateContent records where the parsed content was stored and marks the
// edital completed.
func (s *EditalStore) UpdateContent(id, contentKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.editais[id]; ok {
		e.ContentKey = contentKey
		e.Status = model.StatusCompleted
		e.ErrorMsg = ""
		e.UpdatedAt = time.Now()
	}
}

// cleanupIfNeeded removes oldest editais if store exceeds maxEditais
// Must be called with lock held
func (s *EditalStore) cleanupIfNeeded() {
	if s.maxEditais <= 0 {
		return
	}

	if len(s.editais) <= s.maxEditais {
		return
	}

	editais := make([]*model.Edital, 0, len(s.editais))
	for _, e := range s.editais {
		editais = append(editais, e)
	}
	sort.Slice(editais, func(i, j int) bool {
		return editais[i].CreatedAt.Before(editais[j].CreatedAt)
	})

	removeCount := len(editais) - s.maxEditais
	for i := 0; i < removeCount; i++ {
		slog.Info("auto-cleaning old edital",
			"edital_id", editais[i].ID,
			"created_at", editais[i].CreatedAt,
		)
		delete(s.editais, editais[i].ID)
	}
}

// Count returns the number of editais in the store
func (s *EditalStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.editais)
}
