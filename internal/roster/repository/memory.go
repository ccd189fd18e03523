package repository

import (
	"context"
	"sync"

	"attendance-control-plane/internal/roster/domain"
)

// MemoryRepository is an in-memory Repository for tests and dev mode.
// Unlike the other memory stores it has seeding helpers, since roster data is
// owned externally and tests need to stand in for that owner.
type MemoryRepository struct {
	mu             sync.Mutex
	students       map[string]*domain.Student // by identity
	classRosters   map[string]map[string]bool // roster_ref -> identities
	sessionRosters map[string]map[string]bool // session_id -> identities
	sessionRefs    map[string]string          // session_id -> roster_ref
}

// NewMemoryRepository returns an empty in-memory roster repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		students:       make(map[string]*domain.Student),
		classRosters:   make(map[string]map[string]bool),
		sessionRosters: make(map[string]map[string]bool),
		sessionRefs:    make(map[string]string),
	}
}

// AddStudent registers a student identity.
func (r *MemoryRepository) AddStudent(s *domain.Student) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.students[cp.Identity] = &cp
}

// AddToClassRoster puts an identity into a class roster.
func (r *MemoryRepository) AddToClassRoster(rosterRef, identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.classRosters[rosterRef] == nil {
		r.classRosters[rosterRef] = make(map[string]bool)
	}
	r.classRosters[rosterRef][identity] = true
}

// AddToSessionRoster puts an identity into a session's own roster.
func (r *MemoryRepository) AddToSessionRoster(sessionID, identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessionRosters[sessionID] == nil {
		r.sessionRosters[sessionID] = make(map[string]bool)
	}
	r.sessionRosters[sessionID][identity] = true
}

// SetSessionRef links a session to a class roster.
func (r *MemoryRepository) SetSessionRef(sessionID, rosterRef string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessionRefs[sessionID] = rosterRef
}

func (r *MemoryRepository) GetStudent(ctx context.Context, identity string) (*domain.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.students[identity]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *MemoryRepository) SessionRosterRef(ctx context.Context, sessionID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionRefs[sessionID], nil
}

func (r *MemoryRepository) HasSessionRoster(ctx context.Context, sessionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessionRosters[sessionID]) > 0, nil
}

func (r *MemoryRepository) IsInSessionRoster(ctx context.Context, sessionID, identity string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionRosters[sessionID][identity], nil
}

func (r *MemoryRepository) IsInClassRoster(ctx context.Context, rosterRef, identity string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.classRosters[rosterRef][identity], nil
}

func (r *MemoryRepository) AllIdentities(ctx context.Context, sessionID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set := r.sessionRosters[sessionID]; len(set) > 0 {
		out := make([]string, 0, len(set))
		for id := range set {
			out = append(out, id)
		}
		return out, nil
	}
	set := r.classRosters[r.sessionRefs[sessionID]]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out, nil
}
