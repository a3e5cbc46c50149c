package auth

import (
	"context"
	"fmt"
)

const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
	RoleAdmin   = "admin"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller. DoctorID and PatientID are set only
// when the user owns the matching profile.
type Identity struct {
	UserID    int64
	Role      string
	DoctorID  *int64
	PatientID *int64
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

func validRole(role string) bool {
	switch role {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

// WithIdentity stores id on ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the caller set by the auth middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// UserIDFromContext returns the caller's user id as a string, or "" when the
// request is anonymous. Used for log and audit fields.
func UserIDFromContext(ctx context.Context) string {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%d", id.UserID)
}

func RoleFromContext(ctx context.Context) string {
	id, _ := IdentityFromContext(ctx)
	return id.Role
}
