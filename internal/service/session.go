package service

import (
	"sync"

	"coffeebeat/internal/models"
)

// Session holds the current user identity and exposes the role predicates
// used by route guards. Role strings are normalized once, at sign-in.
type Session struct {
	mu   sync.RWMutex
	user *models.User
}

func NewSession() *Session {
	return &Session{}
}

// SignIn installs the authenticated user, normalizing the role.
func (s *Session) SignIn(user *models.User) {
	if user != nil {
		user.Role = models.ParseRole(string(user.Role))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

// SignOut drops the session.
func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
}

// User returns the current user, nil when signed out.
func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Role returns the current role, RoleUnknown when signed out.
func (s *Session) Role() models.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return models.RoleUnknown
	}
	return s.user.Role
}

// IsAuthenticated reports whether a user is signed in.
func (s *Session) IsAuthenticated() bool {
	return s.User() != nil
}

// IsStaff reports whether the current user may see venue-wide data.
func (s *Session) IsStaff() bool {
	return s.Role().IsStaff()
}

// HasAnyRole reports whether the current role is one of the required ones.
// An empty requirement list allows everyone.
func (s *Session) HasAnyRole(required ...models.Role) bool {
	if len(required) == 0 {
		return true
	}
	role := s.Role()
	for _, r := range required {
		if role == r {
			return true
		}
	}
	return false
}
