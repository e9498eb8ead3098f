package inmemory

import (
	"sync"

	ss "github.com/AnishMulay/sandfs/internal/snapshot_service"
)

type InMemorySnapshotStore struct {
	mu    sync.Mutex
	data  []byte
	saved bool
	saves int

	// FailSave makes Save return ErrSnapshotSaveFailed.
	FailSave bool
}

func NewInMemorySnapshotStore() *InMemorySnapshotStore {
	return &InMemorySnapshotStore{}
}

func (s *InMemorySnapshotStore) Save(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSave {
		return ss.ErrSnapshotSaveFailed
	}
	s.data = append([]byte(nil), data...)
	s.saved = true
	s.saves++
	return nil
}

func (s *InMemorySnapshotStore) Load() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.saved {
		return nil, ss.ErrSnapshotNotFound
	}
	return append([]byte(nil), s.data...), nil
}

// Put replaces the stored blob, e.g. with garbage.
func (s *InMemorySnapshotStore) Put(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
	s.saved = true
}

// Saves counts successful Save calls.
func (s *InMemorySnapshotStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

var _ ss.SnapshotStore = (*InMemorySnapshotStore)(nil)
