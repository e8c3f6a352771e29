package session

import (
	"context"
	"errors"
	"strings"

	"3tcapital/goglosas/internal/core/seccion"
)

// Role determines what a signed-in user may do.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleViewer Role = "viewer"
)

// ParseRole maps a claim value to a Role. Anything unknown is a viewer.
func ParseRole(raw string) Role {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "admin", "administrador":
		return RoleAdmin
	default:
		return RoleViewer
	}
}

var (
	// ErrNoSession is returned when an operation needs a signed-in user.
	ErrNoSession = errors.New("sesión no iniciada")
	// ErrForbidden is returned when a viewer attempts a mutation.
	ErrForbidden = errors.New("operación no permitida para el rol actual")
)

// Session is the identity of the signed-in user.
type Session struct {
	UserID          string          `json:"user_id"`
	Email           string          `json:"email,omitempty"`
	Role            Role            `json:"role"`
	AssignedSection seccion.Seccion `json:"seccion,omitempty"`
}

// Authenticated reports whether the session carries a user.
func (s Session) Authenticated() bool {
	return strings.TrimSpace(s.UserID) != ""
}

// IsAdmin reports whether the session may mutate records.
func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// RequireAdmin returns nil only for an authenticated administrator.
func (s Session) RequireAdmin() error {
	if !s.Authenticated() {
		return ErrNoSession
	}
	if !s.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// Scope resolves the section a request may read. Viewers are pinned to
// their assigned section; administrators may pick any valid one.
func (s Session) Scope(requested string) seccion.Seccion {
	if !s.IsAdmin() && s.AssignedSection != "" {
		return s.AssignedSection.Normalize()
	}
	if parsed, ok := seccion.Parse(requested); ok {
		return parsed
	}
	return seccion.Glosas
}

type contextKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored in ctx, if any.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok
}
