package document

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory document store for development and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]Fields
}

// NewMemoryStore creates an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]Fields)}
}

// Put seeds a document.
func (s *MemoryStore) Put(docType, docID string, fields Fields) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[docType+"/"+docID] = cloneFields(fields)
}

func (s *MemoryStore) GetDocument(ctx context.Context, docType, docID string) (Fields, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fields, ok := s.docs[docType+"/"+docID]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return cloneFields(fields), nil
}

func (s *MemoryStore) SetField(ctx context.Context, docType, docID, field string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields, ok := s.docs[docType+"/"+docID]
	if !ok {
		return ErrDocumentNotFound
	}
	fields[field] = value
	return nil
}

func cloneFields(fields Fields) Fields {
	cp := make(Fields, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return cp
}

var _ Store = (*MemoryStore)(nil)
