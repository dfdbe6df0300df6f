package storage

import (
	"context"
	"sort"
	"sync"

	"boolnet/internal/errors"
	"boolnet/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	sessions    map[string]model.Session
	results     map[string]map[int]model.TopologyResult
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.sessions = make(map[string]model.Session)
	s.results = make(map[string]map[int]model.TopologyResult)
	return nil
}

func (s *MemoryStore) SaveSession(_ context.Context, session model.Session) error {
	if session.ID == "" {
		return errors.New("session id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	s.sessions[session.ID] = session
	return nil
}

func (s *MemoryStore) GetSession(_ context.Context, id string) (model.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	return session, ok, nil
}

// ListSessions returns sessions newest first.
func (s *MemoryStore) ListSessions(_ context.Context) ([]model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	sortSessions(out)
	return out, nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	delete(s.results, id)
	return nil
}

func (s *MemoryStore) SaveTopologyResult(_ context.Context, result model.TopologyResult) error {
	if result.SessionID == "" {
		return errors.New("topology result session id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	bySession, ok := s.results[result.SessionID]
	if !ok {
		bySession = make(map[int]model.TopologyResult)
		s.results[result.SessionID] = bySession
	}
	bySession[result.Index] = result
	return nil
}

func (s *MemoryStore) GetTopologyResult(_ context.Context, sessionID string, index int) (model.TopologyResult, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.results[sessionID][index]
	return result, ok, nil
}

// ListTopologyResults returns a session's results ordered by topology index.
func (s *MemoryStore) ListTopologyResults(_ context.Context, sessionID string) ([]model.TopologyResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bySession := s.results[sessionID]
	out := make([]model.TopologyResult, 0, len(bySession))
	for _, result := range bySession {
		out = append(out, result)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func sortSessions(sessions []model.Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].CreatedAtUTC == sessions[j].CreatedAtUTC {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAtUTC > sessions[j].CreatedAtUTC
	})
}
