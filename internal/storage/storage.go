package storage

import (
	"errors"
	"sync"

	"github.com/eugenenazirov/envoverlay/internal/overlay"
)

var (
	// ErrNotFound indicates no value exists at the requested path.
	ErrNotFound = errors.New("no value at the requested path")
)

// Storage provides access to the current overlaid configuration document.
type Storage interface {
	GetDocument() (overlay.Document, error)
	SetDocument(doc overlay.Document) error
	Value(path []string) (any, error)
}

// MemoryStorage keeps the document in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu  sync.RWMutex
	doc overlay.Document
}

// NewMemoryStorage initialises storage with an empty document.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		doc: overlay.Document{},
	}
}

// GetDocument returns a deep copy of the current document.
func (s *MemoryStorage) GetDocument() (overlay.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.doc.Clone(), nil
}

// SetDocument stores a deep copy of doc, replacing the previous document.
func (s *MemoryStorage) SetDocument(doc overlay.Document) error {
	if doc == nil {
		return overlay.ErrNilDocument
	}
	clone := doc.Clone()

	s.mu.Lock()
	s.doc = clone
	s.mu.Unlock()

	return nil
}

// Value returns a copy of the value stored at path.
func (s *MemoryStorage) Value(path []string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.doc.Value(path)
	if !ok {
		return nil, ErrNotFound
	}
	if m, isMapping := overlay.AsMapping(v); isMapping {
		return overlay.Document(m).Clone(), nil
	}
	return v, nil
}
