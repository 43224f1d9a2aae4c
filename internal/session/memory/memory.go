package memory

import (
	"context"
	"sync"

	"pharmapos/terminal/internal/domain"
)

// Store keeps the session in process memory. It is lost on restart.
type Store struct {
	mu    sync.RWMutex
	user  *domain.SessionUser
	shift *domain.ShiftSnapshot
}

func New() *Store {
	return &Store{}
}

func (s *Store) User(_ context.Context) (domain.SessionUser, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return domain.SessionUser{}, false, nil
	}
	return *s.user, true, nil
}

func (s *Store) SaveUser(_ context.Context, user domain.SessionUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &user
	return nil
}

func (s *Store) Shift(_ context.Context) (domain.ShiftSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.shift == nil {
		return domain.ShiftSnapshot{}, false, nil
	}
	return copyShift(*s.shift), true, nil
}

func (s *Store) SaveShift(_ context.Context, snap domain.ShiftSnapshot) error {
	snap = copyShift(snap)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shift = &snap
	return nil
}

func (s *Store) ClearShift(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shift = nil
	return nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.shift = nil
	return nil
}

func (s *Store) Close() error {
	return nil
}

func copyShift(snap domain.ShiftSnapshot) domain.ShiftSnapshot {
	if snap.CashMovements != nil {
		snap.CashMovements = append([]domain.CashMovement(nil), snap.CashMovements...)
	}
	return snap
}
