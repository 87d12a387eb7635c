package rooms

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/privatevc/internal/models"
)

// Registry holds active private room sessions keyed by (scope, code).
// It owns the canonical copy of every session; reads return clones.
// One mutex covers all scopes, so every operation is linearizable per scope.
type Registry struct {
	mu     sync.RWMutex
	scopes map[uuid.UUID]map[string]*models.Session
	logger *zap.Logger
}

// NewRegistry creates an empty session registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		scopes: make(map[uuid.UUID]map[string]*models.Session),
		logger: logger,
	}
}

// Put stores session under (scopeID, code). It fails with ErrDuplicateKey when
// the slot is taken and never overwrites.
func (r *Registry) Put(scopeID uuid.UUID, code string, session models.Session) error {
	s := session.Clone()
	s.ScopeID = scopeID
	s.Code = code
	if len(s.Participants) == 0 || s.Participants[0] != s.CreatorID {
		rest := make([]uuid.UUID, 0, len(s.Participants))
		for _, p := range s.Participants {
			if p != s.CreatorID {
				rest = append(rest, p)
			}
		}
		s.Participants = append([]uuid.UUID{s.CreatorID}, rest...)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	byCode := r.scopes[scopeID]
	if byCode == nil {
		byCode = make(map[string]*models.Session)
		r.scopes[scopeID] = byCode
	}
	if _, taken := byCode[code]; taken {
		return ErrDuplicateKey
	}
	byCode[code] = &s
	r.logger.Info("session stored",
		zap.String("scope_id", scopeID.String()),
		zap.String("room_id", s.RoomID.String()),
		zap.String("creator_id", s.CreatorID.String()))
	return nil
}

// Get returns a copy of the session for (scopeID, code).
func (r *Registry) Get(scopeID uuid.UUID, code string) (models.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scopes[scopeID][code]
	if !ok {
		return models.Session{}, false
	}
	return s.Clone(), true
}

// Contains reports whether code is active within scopeID.
func (r *Registry) Contains(scopeID uuid.UUID, code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.scopes[scopeID][code]
	return ok
}

// FindByRoomHandle returns the session backed by roomID.
func (r *Registry) FindByRoomHandle(scopeID, roomID uuid.UUID) (models.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.scopes[scopeID] {
		if s.RoomID == roomID {
			return s.Clone(), true
		}
	}
	return models.Session{}, false
}

// RemoveByRoomHandle finds and removes the session backed by roomID in one step.
func (r *Registry) RemoveByRoomHandle(scopeID, roomID uuid.UUID) (models.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byCode := r.scopes[scopeID]
	for code, s := range byCode {
		if s.RoomID != roomID {
			continue
		}
		delete(byCode, code)
		if len(byCode) == 0 {
			delete(r.scopes, scopeID)
		}
		r.logger.Info("session removed",
			zap.String("scope_id", scopeID.String()),
			zap.String("room_id", roomID.String()))
		return *s, true
	}
	return models.Session{}, false
}

// AppendParticipant grants userID a place in the session's participant list.
// Repeat grants for the same identity are ignored. Returns ErrNotFound when the
// session is gone.
func (r *Registry) AppendParticipant(scopeID uuid.UUID, code string, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.scopes[scopeID][code]
	if !ok {
		return ErrNotFound
	}
	r.appendLocked(s, userID)
	return nil
}

// AppendParticipantByRoomHandle is AppendParticipant for the session backed by
// roomID, looked up under the same lock. A code reused by a later session
// never receives the participant. It returns the updated session.
func (r *Registry) AppendParticipantByRoomHandle(scopeID, roomID, userID uuid.UUID) (models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.scopes[scopeID] {
		if s.RoomID == roomID {
			r.appendLocked(s, userID)
			return s.Clone(), nil
		}
	}
	return models.Session{}, ErrNotFound
}

func (r *Registry) appendLocked(s *models.Session, userID uuid.UUID) {
	if s.HasParticipant(userID) {
		return
	}
	s.Participants = append(s.Participants, userID)
	r.logger.Debug("participant added",
		zap.String("scope_id", s.ScopeID.String()),
		zap.String("room_id", s.RoomID.String()),
		zap.String("user_id", userID.String()))
}

// List returns copies of every session in scopeID, oldest first.
func (r *Registry) List(scopeID uuid.UUID) []models.Session {
	r.mu.RLock()
	out := make([]models.Session, 0, len(r.scopes[scopeID]))
	for _, s := range r.scopes[scopeID] {
		out = append(out, s.Clone())
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// ResetScope drops every session in scopeID without touching the rooms behind
// them. It is an administrative override and returns how many were dropped.
func (r *Registry) ResetScope(scopeID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.scopes[scopeID])
	delete(r.scopes, scopeID)
	r.logger.Warn("sessions reset", zap.String("scope_id", scopeID.String()), zap.Int("dropped", n))
	return n
}

// Close discards all sessions. Called once at shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scopes = make(map[uuid.UUID]map[string]*models.Session)
}
